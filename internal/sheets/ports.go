package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// Table is a rectangular block of cell values read from a spreadsheet.
	// Values[0] is the header row.
	Table struct {
		Name   string
		Values [][]string
	}

	// TableReader provides the default sales table when no file is uploaded.
	TableReader interface {
		ReadTable(ctx context.Context) (Table, error)
	}
)
