package intake

import (
	"fmt"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/extract"
)

// ValidateExtraction checks model output field by field before any of it is
// used. Type and amount are hard requirements; an unknown category silently
// becomes VARIABLE; the concept is kept as free text even when it is not in
// the catalog. The record timestamp is always now, the model's date is only
// carried along as InferredDate.
func ValidateExtraction(f extract.Fields, submitter string, now time.Time) (domain.Transaction, error) {
	if f.Error != nil {
		return domain.Transaction{}, &domain.ExtractionError{Message: *f.Error}
	}

	if f.Amount == nil {
		return domain.Transaction{}, &domain.AmountError{Text: ""}
	}
	amount, err := domain.ParseAmount(*f.Amount)
	if err != nil {
		return domain.Transaction{}, err
	}

	if f.Type == nil {
		return domain.Transaction{}, &domain.TypeError{Label: ""}
	}
	typ, err := domain.ParseTxType(catalog.Normalize(*f.Type))
	if err != nil {
		return domain.Transaction{}, err
	}

	category := domain.Variable
	if f.Category != nil {
		if c, err := domain.ParseCategory(catalog.Normalize(*f.Category)); err == nil {
			category = c
		}
	}

	if f.Concept == nil {
		return domain.Transaction{}, fmt.Errorf("%w: missing concept", domain.ErrAIResponseInvalid)
	}
	concept := catalog.Normalize(*f.Concept)

	tx := domain.NewTransaction(now, submitter, typ, category, concept, amount, domain.SourceAI)
	if f.Date != nil {
		tx.InferredDate = *f.Date
	}
	return tx, nil
}
