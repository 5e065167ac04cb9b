package google

import (
	"context"
	"errors"
	"testing"
)

func TestParseTable_SkipsLeadingBlankRows(t *testing.T) {
	values := [][]interface{}{
		{},
		{"", ""},
		{"Order Date", "Category", "Segment", "Sales", "Profit"},
		{"11/8/2016", "Furniture", "Consumer", 261.96, 41.9136},
		{"11/8/2016", "Furniture"},
		{},
	}
	tbl := parseTable("Orders", values)
	if tbl.Name != "Orders" {
		t.Fatalf("name: %q", tbl.Name)
	}
	if len(tbl.Values) != 4 {
		t.Fatalf("rows: got %d, want 4", len(tbl.Values))
	}
	if tbl.Values[0][0] != "Order Date" {
		t.Fatalf("header not first: %v", tbl.Values[0])
	}
	if tbl.Values[1][3] != "261.96" {
		t.Fatalf("numeric cell: %q", tbl.Values[1][3])
	}
	if len(tbl.Values[2]) != 2 {
		t.Fatalf("short row should stay short: %v", tbl.Values[2])
	}
}

func TestParseTable_Empty(t *testing.T) {
	tbl := parseTable("Orders", nil)
	if len(tbl.Values) != 0 {
		t.Fatalf("expected no rows, got %v", tbl.Values)
	}
}

func TestReadTable_UsesConfiguredRange(t *testing.T) {
	var gotID, gotRange string
	c := newClient(func(_ context.Context, id, rng string) ([][]interface{}, error) {
		gotID, gotRange = id, rng
		return [][]interface{}{{"Sales"}, {"10"}}, nil
	}, Config{SpreadsheetID: " abc ", Range: ""})

	tbl, err := c.ReadTable(context.Background())
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if gotID != "abc" || gotRange != "Orders" {
		t.Fatalf("got id=%q range=%q", gotID, gotRange)
	}
	if len(tbl.Values) != 2 {
		t.Fatalf("rows: %d", len(tbl.Values))
	}
}

func TestReadTable_WrapsError(t *testing.T) {
	boom := errors.New("quota exceeded")
	c := newClient(func(context.Context, string, string) ([][]interface{}, error) {
		return nil, boom
	}, Config{SpreadsheetID: "abc", Range: "Orders!A:U"})
	if _, err := c.ReadTable(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing spreadsheet id")
	}
}
