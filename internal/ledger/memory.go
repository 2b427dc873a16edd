package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/ledger-bot/internal/domain"
)

// Memory keeps rows in process memory. It backs tests and the CLI dry run.
type Memory struct {
	mu   sync.RWMutex
	rows [][]string
	loc  *time.Location

	// FailWith, when set, makes every call fail with it wrapped in
	// domain.ErrLedgerUnavailable.
	FailWith error
}

// NewMemory creates an empty in-memory ledger rendering timestamps in loc.
func NewMemory(loc *time.Location) *Memory {
	return &Memory{loc: loc}
}

// Append implements Writer.
func (m *Memory) Append(ctx context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return fmt.Errorf("Memory.Append: %w: %v", domain.ErrLedgerUnavailable, m.FailWith)
	}
	m.rows = append(m.rows, Row(tx, m.loc))
	return nil
}

// LastRecord implements Writer.
func (m *Memory) LastRecord(ctx context.Context) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailWith != nil {
		return nil, fmt.Errorf("Memory.LastRecord: %w: %v", domain.ErrLedgerUnavailable, m.FailWith)
	}
	if len(m.rows) == 0 {
		return nil, nil
	}
	return RecordFromRow(m.rows[len(m.rows)-1]), nil
}

// Rows returns a copy of every appended row.
func (m *Memory) Rows() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

var _ Writer = (*Memory)(nil)
