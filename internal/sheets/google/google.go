package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gagyebu/internal/core"
	ports "gagyebu/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors transactions into one sheet. Column A holds the
// transaction id and is the lookup key for every write.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ ports.TransactionMirror = (*Client)(nil)

// Credentials names where the service account key comes from. JSON wins
// over File; an empty File falls back to GOOGLE_APPLICATION_CREDENTIALS.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load(ctx context.Context) ([]byte, error) {
	file := strings.TrimSpace(c.File)
	if strings.TrimSpace(c.JSON) == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case strings.TrimSpace(c.JSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(c.JSON), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// New builds a mirror authenticated with a service account.
func New(ctx context.Context, spreadsheetID, sheet string, creds Credentials) (*Client, error) {
	credentialsJSON, err := creds.load(ctx)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, spreadsheetID, sheet,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions builds a mirror from raw client options.
func NewWithOptions(ctx context.Context, spreadsheetID, sheet string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Transactions"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready", "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func (c *Client) Append(ctx context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction without id")
	}

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}

	row := findRow(ids, tx.ID)
	if row == 0 {
		row = len(ids) + 1
		if row == 1 {
			if err := c.writeRow(ctx, 1, toAny(ports.Header)); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			row = 2
		}
	}

	if err := c.writeRow(ctx, row, ports.Row(tx)); err != nil {
		return fmt.Errorf("write transaction %s: %w", tx.ID, err)
	}

	slog.InfoContext(ctx, "Mirrored transaction", "id", tx.ID, "row", row)
	return nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}

	row := findRow(ids, id)
	if row == 0 {
		slog.DebugContext(ctx, "Transaction not mirrored, nothing to remove", "id", id)
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rowRange(row), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %d in %s: %w", row, c.sheet, err)
	}

	slog.InfoContext(ctx, "Removed mirrored transaction", "id", id, "row", row)
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(row), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:G%d", c.sheet, row, row)
}

// findRow returns the 1-based row holding id, or 0. Row 1 is the header.
func findRow(ids []string, id string) int {
	for i, v := range ids {
		if i > 0 && v == id {
			return i + 1
		}
	}
	return 0
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
