package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ports "bankreport/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID, "sheet", sheetName(cfg))
	return NewWithService(svc, cfg.SpreadsheetID, sheetName(cfg)), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, summarySheet: sheet}
}

func sheetName(cfg Config) string {
	if s := strings.TrimSpace(cfg.SheetName); s != "" {
		return s
	}
	return "Monthly Summary"
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendSummary appends rows below the existing data, writing the header
// first when the sheet is empty. It returns the updated A1 range.
func (c *Client) AppendSummary(ctx context.Context, rows []ports.SummaryRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	hasHeader, err := c.hasHeader(ctx)
	if err != nil {
		return "", err
	}

	values := make([][]any, 0, len(rows)+1)
	if !hasHeader {
		values = append(values, toAny(ports.SummaryHeader()))
	}
	for _, r := range rows {
		values = append(values, toAny(r.Values()))
	}

	rng := fmt.Sprintf("%s!A1", quoteSheet(c.summarySheet))
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append summary to %s: %w", c.summarySheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Appended monthly summary", "sheet", c.summarySheet, "rows", len(rows), "range", ref)
	return ref, nil
}

func (c *Client) hasHeader(ctx context.Context) (bool, error) {
	rng := fmt.Sprintf("%s!A1:A1", quoteSheet(c.summarySheet))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	return len(resp.Values) > 0 && len(resp.Values[0]) > 0, nil
}

// quoteSheet quotes sheet names that contain spaces or punctuation.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!-") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
