package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountError explains why an amount was rejected. It unwraps to ErrInvalidAmount.
type AmountError struct {
	Text string
	// NotPositive is set when Text was a number but not greater than zero.
	NotPositive bool
	// OutOfRange is set when Text has more digits than MaxIntegerDigits or
	// MaxFractionDigits allow.
	OutOfRange bool
}

// Bounds on a typed amount. Anything larger is a typo or an attack, and
// rendering huge decimals is slow.
const (
	MaxIntegerDigits  = 12
	MaxFractionDigits = 4
)

// plainAmount is an optional sign, digits and an optional "." fraction.
// Exponent forms such as "1e9" are not money.
var plainAmount = regexp.MustCompile(`^([+-]?)([0-9]+)(?:\.([0-9]+))?$`)

func (e *AmountError) Error() string {
	if e.NotPositive {
		return "invalid amount: " + e.Text + " must be greater than zero"
	}
	if e.OutOfRange {
		return "invalid amount: " + e.Text + " is out of range"
	}
	return "invalid amount: " + e.Text + " is not a number"
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// ParseAmount parses user-typed money. Either "." or "," is accepted as the
// decimal separator and the result must be strictly positive, with at most
// MaxIntegerDigits before the separator and MaxFractionDigits after it.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	m := plainAmount.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, &AmountError{Text: text}
	}
	if len(strings.TrimLeft(m[2], "0")) > MaxIntegerDigits || len(m[3]) > MaxFractionDigits {
		return decimal.Zero, &AmountError{Text: text, OutOfRange: true}
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &AmountError{Text: text}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &AmountError{Text: text, NotPositive: true}
	}
	return amount, nil
}
