// Package intake turns a single chat message into a finalized transaction,
// first with the deterministic shorthand parser and, when that rejects the
// message, optionally with model-based extraction.
package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
)

// ShorthandFormat is the one-line syntax the parser accepts.
const ShorthandFormat = "TIPO MONTO CONCEPTO"

// ParseShorthand parses "TYPE AMOUNT CONCEPT..." into a transaction. The
// concept tail is resolved against the catalog by first substring match and
// the category comes from the catalog's classification rule.
func ParseShorthand(cat *catalog.Catalog, submitter, text string, now time.Time) (domain.Transaction, error) {
	tokens := strings.Fields(strings.ToUpper(text))
	if len(tokens) < 3 {
		return domain.Transaction{}, fmt.Errorf("%w: want %s, got %d token(s)", domain.ErrMalformedInput, ShorthandFormat, len(tokens))
	}

	typ, err := domain.ParseTxType(tokens[0])
	if err != nil {
		return domain.Transaction{}, err
	}

	amount, err := domain.ParseAmount(tokens[1])
	if err != nil {
		return domain.Transaction{}, err
	}

	conceptText := strings.Join(tokens[2:], " ")
	concept, ok := cat.Resolve(typ, conceptText)
	if !ok {
		return domain.Transaction{}, &domain.UnknownConceptError{
			Text:       conceptText,
			Suggestion: cat.Suggest(typ, conceptText),
		}
	}

	return domain.NewTransaction(now, submitter, typ, cat.Classify(concept), concept, amount, domain.SourceShorthand), nil
}
