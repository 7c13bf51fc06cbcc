// Package sheets appends one row per processed CV to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/pkg/config"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Appender writes a submission row to the tracking spreadsheet
type Appender interface {
	AppendRow(ctx context.Context, row domain.SheetRow) error
}

const (
	defaultRange   = "Sheet1!A1"
	defaultTimeout = 15 * time.Second
)

// SheetsAppender appends rows through the Sheets v4 values.append call
type SheetsAppender struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
	timeout       time.Duration
}

// New authenticates with the service-account JSON from cfg
func New(ctx context.Context, cfg config.SheetsConfig) (*SheetsAppender, error) {
	if cfg.CredentialsJSON == "" {
		return nil, fmt.Errorf("sheets: credentials not configured")
	}

	return NewWithOptions(ctx, cfg,
		option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

// NewWithOptions builds the appender with explicit client options
func NewWithOptions(ctx context.Context, cfg config.SheetsConfig, opts ...option.ClientOption) (*SheetsAppender, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id not configured")
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	a := &SheetsAppender{
		service:       svc,
		spreadsheetID: cfg.SpreadsheetID,
		writeRange:    cfg.Range,
		timeout:       cfg.Timeout,
	}
	if a.writeRange == "" {
		a.writeRange = defaultRange
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	return a, nil
}

// AppendRow appends the row's values after the last row of the table in range.
// Values are stored as given, without formula or date parsing.
func (a *SheetsAppender) AppendRow(ctx context.Context, row domain.SheetRow) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body := &sheets.ValueRange{Values: [][]interface{}{row.Values()}}
	_, err := a.service.Spreadsheets.Values.
		Append(a.spreadsheetID, a.writeRange, body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append to %s: %w", a.spreadsheetID, err)
	}
	return nil
}
