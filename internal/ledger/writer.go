// Package ledger appends finalized transactions to the household ledger and
// reads back the most recent record. Exactly one backend is active per process.
package ledger

import (
	"context"
	"time"

	"github.com/dvloznov/ledger-bot/internal/domain"
)

// Writer is the ledger collaborator. Every error it returns wraps
// domain.ErrLedgerUnavailable.
type Writer interface {
	Append(ctx context.Context, tx domain.Transaction) error
	// LastRecord returns nil, nil when the ledger holds no records yet.
	LastRecord(ctx context.Context) (*domain.Record, error)
}

// Provisioner is implemented by backends that need their table or header
// created before the first append.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// TimestampLayout is the day-first timestamp the household sheet uses.
const TimestampLayout = "02/01/2006 15:04:05"

// Header is the column order of every backend.
var Header = []string{"Fecha", "Usuario", "Tipo", "Categoría", "Concepto", "Monto", "Mes"}

// Row renders tx as the seven ledger columns in order: timestamp, submitter,
// type, category, concept, amount, period label. loc may be nil to keep the
// timestamp's own location.
func Row(tx domain.Transaction, loc *time.Location) []string {
	ts := tx.Timestamp
	if loc != nil {
		ts = ts.In(loc)
	}
	return []string{
		ts.Format(TimestampLayout),
		tx.Submitter,
		tx.Type.Label(),
		tx.Category.Label(),
		tx.Concept,
		tx.Amount.String(),
		tx.PeriodLabel,
	}
}

// RecordFromRow maps a stored row back to a record. Short rows leave the
// missing trailing columns empty.
func RecordFromRow(row []string) *domain.Record {
	col := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return &domain.Record{
		Timestamp: col(0),
		Submitter: col(1),
		Type:      col(2),
		Category:  col(3),
		Concept:   col(4),
		Amount:    col(5),
		Period:    col(6),
	}
}
