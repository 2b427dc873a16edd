package domain

import "errors"

// Per-message failures. Every one of them is recoverable and is turned into a
// chat reply at the transport boundary; only ErrConfigMissing is fatal.
var (
	ErrMalformedInput    = errors.New("malformed input")
	ErrInvalidType       = errors.New("invalid type")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownConcept    = errors.New("unknown concept")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrAICallFailed      = errors.New("ai call failed")
	ErrAIResponseInvalid = errors.New("ai response invalid")
	ErrConfigMissing     = errors.New("startup config missing")
)

// ExtractionError is the explicit error text the extraction model returned
// instead of a transaction, e.g. when the message carries no amount.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string {
	return "extraction rejected message: " + e.Message
}

// UnknownConceptError carries the unmatched concept text and, when one is
// close enough, the catalog label the user probably meant.
type UnknownConceptError struct {
	Text       string
	Suggestion string
}

func (e *UnknownConceptError) Error() string {
	return "unknown concept: " + e.Text
}

func (e *UnknownConceptError) Unwrap() error { return ErrUnknownConcept }
