package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source records which intake path produced a transaction.
type Source string

const (
	SourceGuided    Source = "guided"
	SourceShorthand Source = "shorthand"
	SourceAI        Source = "ai"
)

// Draft is a transaction being assembled one field at a time by the guided dialogue.
// Fields are pointers so an unset field is distinguishable from a zero value.
type Draft struct {
	Submitter string
	Type      *TxType
	Category  *Category
	Concept   *string
	Amount    *decimal.Decimal
}

// NewDraft starts an empty draft for the given submitter.
func NewDraft(submitter string) *Draft {
	return &Draft{Submitter: submitter}
}

// Complete reports whether every field required for finalization is set.
func (d *Draft) Complete() bool {
	return d != nil &&
		d.Submitter != "" &&
		d.Type != nil &&
		d.Category != nil &&
		d.Concept != nil &&
		d.Amount != nil
}

// Clone returns a deep copy so callers never share pointers into a stored draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := &Draft{Submitter: d.Submitter}
	if d.Type != nil {
		t := *d.Type
		out.Type = &t
	}
	if d.Category != nil {
		c := *d.Category
		out.Category = &c
	}
	if d.Concept != nil {
		s := *d.Concept
		out.Concept = &s
	}
	if d.Amount != nil {
		a := *d.Amount
		out.Amount = &a
	}
	return out
}

// SetType, SetCategory, SetConcept and SetAmount populate the draft in dialogue order.
func (d *Draft) SetType(t TxType)            { d.Type = &t }
func (d *Draft) SetCategory(c Category)      { d.Category = &c }
func (d *Draft) SetConcept(concept string)   { d.Concept = &concept }
func (d *Draft) SetAmount(a decimal.Decimal) { d.Amount = &a }

// Finalize stamps the draft with now and returns the immutable transaction.
func (d *Draft) Finalize(now time.Time) (Transaction, error) {
	if !d.Complete() {
		return Transaction{}, fmt.Errorf("Finalize: draft is incomplete")
	}
	return NewTransaction(now, d.Submitter, *d.Type, *d.Category, *d.Concept, *d.Amount, SourceGuided), nil
}

// Transaction is the finalized record handed to the ledger. It is built once
// and never mutated afterwards.
type Transaction struct {
	Timestamp   time.Time
	Submitter   string
	Type        TxType
	Category    Category
	Concept     string
	Amount      decimal.Decimal
	PeriodLabel string

	Source Source
	// InferredDate is the date phrase the extraction model attributed to the
	// message. It is descriptive only; Timestamp is always the wall clock.
	InferredDate string
}

// NewTransaction builds a finalized transaction and derives its period label.
func NewTransaction(now time.Time, submitter string, t TxType, c Category, concept string, amount decimal.Decimal, src Source) Transaction {
	return Transaction{
		Timestamp:   now,
		Submitter:   submitter,
		Type:        t,
		Category:    c,
		Concept:     concept,
		Amount:      amount,
		PeriodLabel: PeriodLabel(now),
		Source:      src,
	}
}

// PeriodLabel groups a timestamp by month, e.g. "October 2026".
func PeriodLabel(t time.Time) string {
	return t.Format("January 2006")
}

// Record is the most recent ledger row as the ledger renders it.
type Record struct {
	Timestamp string
	Submitter string
	Type      string
	Category  string
	Concept   string
	Amount    string
	Period    string
}
