package domain

import "fmt"

// TxType is the direction of a transaction. Its zero value is invalid.
type TxType int

const (
	Income TxType = iota + 1
	Expense
)

// Wire labels as they appear in chat buttons, shorthand messages and the ledger.
const (
	LabelIncome   = "INGRESO"
	LabelExpense  = "GASTO"
	LabelFixed    = "FIJO"
	LabelVariable = "VARIABLE"
)

// TxTypes lists the valid transaction types in menu order.
var TxTypes = []TxType{Income, Expense}

// Label returns the ledger label for t.
func (t TxType) Label() string {
	switch t {
	case Income:
		return LabelIncome
	case Expense:
		return LabelExpense
	default:
		return fmt.Sprintf("TxType(%d)", int(t))
	}
}

func (t TxType) String() string { return t.Label() }

// ParseTxType matches a label exactly. Callers normalise case beforehand.
func ParseTxType(label string) (TxType, error) {
	switch label {
	case LabelIncome:
		return Income, nil
	case LabelExpense:
		return Expense, nil
	default:
		return 0, &TypeError{Label: label}
	}
}

// TypeError reports a type label that is neither INGRESO nor GASTO.
type TypeError struct {
	Label string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("invalid type: %q", e.Label)
}

func (e *TypeError) Unwrap() error { return ErrInvalidType }

// Category marks a transaction as recurring (fixed) or ad hoc (variable).
type Category int

const (
	Fixed Category = iota + 1
	Variable
)

// Categories lists the valid categories in menu order.
var Categories = []Category{Fixed, Variable}

// Label returns the ledger label for c.
func (c Category) Label() string {
	switch c {
	case Fixed:
		return LabelFixed
	case Variable:
		return LabelVariable
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

func (c Category) String() string { return c.Label() }

// ParseCategory matches a label exactly.
func ParseCategory(label string) (Category, error) {
	switch label {
	case LabelFixed:
		return Fixed, nil
	case LabelVariable:
		return Variable, nil
	default:
		return 0, fmt.Errorf("invalid category: %q", label)
	}
}
