package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-bot/internal/domain"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultWorksheet is the tab transactions are appended to.
const DefaultWorksheet = "Registro"

// ValueInputOption stores cells exactly as sent. Submitter names and model
// concepts are untrusted, so nothing is parsed as a formula or a date.
const ValueInputOption = "RAW"

// valuesAPI is the slice of the Sheets values API the writer needs.
type valuesAPI interface {
	Append(ctx context.Context, spreadsheetID, rng, inputOption string, row []interface{}) error
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

// Sheets appends rows to one worksheet of a Google spreadsheet.
type Sheets struct {
	values        valuesAPI
	spreadsheetID string
	worksheet     string
	loc           *time.Location
}

// SheetsConfig selects the spreadsheet and the service-account credential.
type SheetsConfig struct {
	CredentialsJSON string
	SpreadsheetID   string
	Worksheet       string
	Location        *time.Location
}

// NewSheets authorizes a Sheets client with the service-account JSON.
func NewSheets(ctx context.Context, cfg SheetsConfig) (*Sheets, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("NewSheets: creating service: %w", err)
	}
	return newSheetsWithValues(&sheetsValues{srv: srv}, cfg), nil
}

func newSheetsWithValues(values valuesAPI, cfg SheetsConfig) *Sheets {
	ws := cfg.Worksheet
	if ws == "" {
		ws = DefaultWorksheet
	}
	return &Sheets{
		values:        values,
		spreadsheetID: cfg.SpreadsheetID,
		worksheet:     ws,
		loc:           cfg.Location,
	}
}

// Append implements Writer. The amount is sent as a number so sheet formulas
// can sum the column; every other cell is text.
func (s *Sheets) Append(ctx context.Context, tx domain.Transaction) error {
	cells := Row(tx, s.loc)
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	row[5] = tx.Amount.InexactFloat64()

	if err := s.values.Append(ctx, s.spreadsheetID, s.rangeA1(), ValueInputOption, row); err != nil {
		return fmt.Errorf("Sheets.Append: %w: %v", domain.ErrLedgerUnavailable, err)
	}
	return nil
}

// LastRecord implements Writer. The first row of the worksheet is the header.
func (s *Sheets) LastRecord(ctx context.Context) (*domain.Record, error) {
	values, err := s.values.Get(ctx, s.spreadsheetID, s.rangeA1())
	if err != nil {
		return nil, fmt.Errorf("Sheets.LastRecord: %w: %v", domain.ErrLedgerUnavailable, err)
	}
	if len(values) <= 1 {
		return nil, nil
	}

	last := values[len(values)-1]
	row := make([]string, len(last))
	for i, v := range last {
		row[i] = fmt.Sprint(v)
	}
	return RecordFromRow(row), nil
}

// Provision writes the header row when the worksheet is empty.
func (s *Sheets) Provision(ctx context.Context) error {
	values, err := s.values.Get(ctx, s.spreadsheetID, s.rangeA1())
	if err != nil {
		return fmt.Errorf("Sheets.Provision: reading worksheet: %w", err)
	}
	if len(values) > 0 {
		return nil
	}
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := s.values.Append(ctx, s.spreadsheetID, s.rangeA1(), ValueInputOption, header); err != nil {
		return fmt.Errorf("Sheets.Provision: writing header: %w", err)
	}
	return nil
}

func (s *Sheets) rangeA1() string {
	return "'" + strings.ReplaceAll(s.worksheet, "'", "''") + "'!A:G"
}

type sheetsValues struct {
	srv *sheets.Service
}

func (v *sheetsValues) Append(ctx context.Context, spreadsheetID, rng, inputOption string, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := v.srv.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption(inputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (v *sheetsValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := v.srv.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

var (
	_ Writer      = (*Sheets)(nil)
	_ Provisioner = (*Sheets)(nil)
)
