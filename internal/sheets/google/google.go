package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"salesboard/internal/log"
	ports "salesboard/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valuesGetter is the slice of the Sheets API the client needs.
type valuesGetter func(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)

type Client struct {
	get           valuesGetter
	spreadsheetID string
	sheetRange    string
}

// Ensure interface conformance
var _ ports.TableReader = (*Client)(nil)

// Config selects the spreadsheet and range holding the sales table.
type Config struct {
	SpreadsheetID string
	// Range in A1 notation, e.g. "Orders!A:U". Defaults to "Orders".
	Range string
}

// New creates a Sheets client using service account credentials from the
// environment.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	get := func(ctx context.Context, id, rng string) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
	return newClient(get, cfg), nil
}

func newClient(get valuesGetter, cfg Config) *Client {
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = "Orders"
	}
	return &Client{get: get, spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID), sheetRange: rng}
}

// newSheetsService initializes a read-only Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		log.Default().WithComponent(log.ComponentSheets).InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadTable reads the configured range. The first non-empty row is the header.
func (c *Client) ReadTable(ctx context.Context) (ports.Table, error) {
	if c.get == nil {
		return ports.Table{}, errors.New("sheets service not initialized")
	}
	values, err := c.get(ctx, c.spreadsheetID, c.sheetRange)
	if err != nil {
		return ports.Table{}, fmt.Errorf("read %s: %w", c.sheetRange, err)
	}
	return parseTable(c.sheetRange, values), nil
}
