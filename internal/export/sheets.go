// Package export writes dashboard reports and the expense event journal to
// Google Sheets.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/amqp"
	"expensetracker/internal/log"
)

const valueInputOption = "USER_ENTERED"

type Options struct {
	SpreadsheetID    string
	SheetName        string
	JournalSheetName string

	// Service account credentials, inline or as a file path. Inline wins.
	CredentialsJSON string
	CredentialsFile string

	// ClientOptions are appended after the credentials, e.g. a test endpoint.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	journal       string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.SheetName == "" {
		opts.SheetName = "Expenses"
	}
	if opts.JournalSheetName == "" {
		opts.JournalSheetName = "Journal"
	}

	var clientOpts []goption.ClientOption
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(b))
	case len(opts.ClientOptions) == 0:
		return nil, errors.New("missing service account credentials")
	}
	clientOpts = append(clientOpts, goption.WithScopes(gsheet.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheet:         opts.SheetName,
		journal:       opts.JournalSheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// WriteReport replaces the contents of the report sheet with r and returns
// the range that was written.
func (c *Client) WriteReport(ctx context.Context, r Report) (string, error) {
	rows := r.Rows()
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", c.sheet, err)
	}

	rng := fmt.Sprintf("%s!A1", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write sheet %s: %w", c.sheet, err)
	}

	c.logger.InfoContext(ctx, "Report exported",
		log.FieldOperation, log.OpExport,
		"range", resp.UpdatedRange,
		"expenses", len(r.Expenses))
	return resp.UpdatedRange, nil
}

// AppendJournal adds one event row below the last row of the journal sheet.
func (c *Client) AppendJournal(ctx context.Context, ev *amqp.ExpenseEvent) error {
	rng := fmt.Sprintf("%s!A:H", c.journal)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{JournalRow(ev)}}).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to journal %s: %w", c.journal, err)
	}
	c.logger.DebugContext(ctx, "Journal row appended",
		log.FieldOperation, log.OpAppend,
		log.FieldEventType, ev.Type,
		log.FieldExpenseID, ev.ExpenseID)
	return nil
}

// EnsureJournalHeader writes the column titles when the journal is empty.
func (c *Client) EnsureJournalHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:H1", c.journal)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read journal header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{journalHeader}}).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write journal header: %w", err)
	}
	return nil
}
