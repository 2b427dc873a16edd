package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// LedgerRow is one record in the BigQuery ledger table.
type LedgerRow struct {
	RecordID string `bigquery:"record_id"` // REQUIRED

	RecordedAt time.Time  `bigquery:"recorded_at"` // REQUIRED TIMESTAMP
	RecordedOn civil.Date `bigquery:"recorded_on"` // REQUIRED DATE, local calendar day

	Submitter string   `bigquery:"submitter"`
	Type      string   `bigquery:"type"`
	Category  string   `bigquery:"category"`
	Concept   string   `bigquery:"concept"`
	Amount    *big.Rat `bigquery:"amount"` // NUMERIC
	Period    string   `bigquery:"period"`

	Source       string              `bigquery:"source"`
	InferredDate bigquery.NullString `bigquery:"inferred_date"` // NULLABLE
}

// BigQuery appends records to <project>.<dataset>.<table>.
type BigQuery struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
	loc     *time.Location
}

// NewBigQuery creates a ledger backed by a shared BigQuery client.
func NewBigQuery(ctx context.Context, project, dataset, table string, loc *time.Location) (*BigQuery, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuery: creating client: %w", err)
	}
	return &BigQuery{client: client, project: project, dataset: dataset, table: table, loc: loc}, nil
}

// Close closes the BigQuery client connection.
func (b *BigQuery) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// Append implements Writer.
func (b *BigQuery) Append(ctx context.Context, tx domain.Transaction) error {
	row := NewLedgerRow(tx, b.loc, uuid.New().String())
	if err := InsertLedgerRowWithClient(ctx, b.client, b.project, b.dataset, b.table, row); err != nil {
		return fmt.Errorf("BigQuery.Append: %w: %v", domain.ErrLedgerUnavailable, err)
	}
	return nil
}

// LastRecord implements Writer.
func (b *BigQuery) LastRecord(ctx context.Context) (*domain.Record, error) {
	row, err := QueryLastLedgerRowWithClient(ctx, b.client, b.project, b.dataset, b.table)
	if err != nil {
		return nil, fmt.Errorf("BigQuery.LastRecord: %w: %v", domain.ErrLedgerUnavailable, err)
	}
	if row == nil {
		return nil, nil
	}
	return row.Record(b.loc), nil
}

// NewLedgerRow maps a transaction to a table row.
func NewLedgerRow(tx domain.Transaction, loc *time.Location, recordID string) *LedgerRow {
	local := tx.Timestamp
	if loc != nil {
		local = local.In(loc)
	}
	row := &LedgerRow{
		RecordID:   recordID,
		RecordedAt: tx.Timestamp,
		RecordedOn: civil.DateOf(local),
		Submitter:  tx.Submitter,
		Type:       tx.Type.Label(),
		Category:   tx.Category.Label(),
		Concept:    tx.Concept,
		Amount:     tx.Amount.Rat(),
		Period:     tx.PeriodLabel,
		Source:     string(tx.Source),
	}
	if tx.InferredDate != "" {
		row.InferredDate = bigquery.NullString{StringVal: tx.InferredDate, Valid: true}
	}
	return row
}

// Record renders the row the way the sheet shows it.
func (r *LedgerRow) Record(loc *time.Location) *domain.Record {
	ts := r.RecordedAt
	if loc != nil {
		ts = ts.In(loc)
	}
	amount := ""
	if r.Amount != nil {
		amount = r.Amount.FloatString(2)
	}
	return &domain.Record{
		Timestamp: ts.Format(TimestampLayout),
		Submitter: r.Submitter,
		Type:      r.Type,
		Category:  r.Category,
		Concept:   r.Concept,
		Amount:    amount,
		Period:    r.Period,
	}
}

// InsertLedgerRowWithClient streams one row into the ledger table.
func InsertLedgerRowWithClient(ctx context.Context, client *bigquery.Client, project, dataset, table string, row *LedgerRow) error {
	inserter := client.DatasetInProject(project, dataset).Table(table).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertLedgerRow: inserting row: %w", err)
	}
	return nil
}

// QueryLastLedgerRowWithClient returns the most recently recorded row, or nil
// when the table is empty.
func QueryLastLedgerRowWithClient(ctx context.Context, client *bigquery.Client, project, dataset, table string) (*LedgerRow, error) {
	query := fmt.Sprintf(`
		SELECT
			record_id,
			recorded_at,
			recorded_on,
			submitter,
			type,
			category,
			concept,
			amount,
			period,
			source,
			inferred_date
		FROM `+"`%s.%s.%s`"+`
		ORDER BY recorded_at DESC
		LIMIT 1
	`, project, dataset, table)

	it, err := client.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryLastLedgerRow: reading query: %w", err)
	}

	var row LedgerRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("QueryLastLedgerRow: reading row: %w", err)
	}
	return &row, nil
}

// Provision creates the dataset and the ledger table if they do not exist.
func (b *BigQuery) Provision(ctx context.Context) error {
	for _, ddl := range LedgerDDL(b.project, b.dataset, b.table) {
		if err := runDDL(ctx, b.client, ddl); err != nil {
			return fmt.Errorf("BigQuery.Provision: %w", err)
		}
	}
	return nil
}

// LedgerDDL returns the statements that create the dataset and the table
// LedgerRow is stored in. Both are idempotent.
func LedgerDDL(project, dataset, table string) []string {
	return []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS `%s.%s`", project, dataset),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.%s`"+` (
			record_id      STRING NOT NULL,
			recorded_at    TIMESTAMP NOT NULL,
			recorded_on    DATE NOT NULL,
			submitter      STRING,
			type           STRING,
			category       STRING,
			concept        STRING,
			amount         NUMERIC,
			period         STRING,
			source         STRING,
			inferred_date  STRING
		)
		PARTITION BY recorded_on
	`, project, dataset, table),
	}
}

func runDDL(ctx context.Context, client *bigquery.Client, sql string) error {
	job, err := client.Query(sql).Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var (
	_ Writer      = (*BigQuery)(nil)
	_ Provisioner = (*BigQuery)(nil)
)
