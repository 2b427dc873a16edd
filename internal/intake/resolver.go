package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/extract"
	"github.com/dvloznov/ledger-bot/internal/logger"
)

// minFallbackTokens is the fewest words a message needs before it is worth
// sending to the model. A lone word such as "GASTO" has nothing to extract.
const minFallbackTokens = 2

// Message is one standalone chat message to resolve.
type Message struct {
	Submitter string
	Text      string
	Image     []byte
	ImageMIME string
}

// Resolver applies the shorthand parser and the extraction fallback policy.
type Resolver struct {
	catalog   *catalog.Catalog
	extractor extract.Extractor
	now       func() time.Time
}

// NewResolver creates a resolver. extractor may be nil, in which case
// shorthand rejections are final.
func NewResolver(cat *catalog.Catalog, extractor extract.Extractor, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{catalog: cat, extractor: extractor, now: now}
}

// FallbackEnabled reports whether rejected messages can be sent to the model.
func (r *Resolver) FallbackEnabled() bool {
	return r.extractor != nil
}

// Resolve turns a text message into a transaction. The shorthand parser runs
// first; if it rejects the message and an extractor is configured, the
// message is handed to the model and its answer validated.
func (r *Resolver) Resolve(ctx context.Context, msg Message) (domain.Transaction, error) {
	log := logger.FromContext(ctx)
	now := r.now()

	tx, err := ParseShorthand(r.catalog, msg.Submitter, msg.Text, now)
	if err == nil {
		return tx, nil
	}

	if r.extractor == nil || len(strings.Fields(msg.Text)) < minFallbackTokens {
		return domain.Transaction{}, err
	}

	log.Info().Err(err).Msg("Shorthand rejected message, falling back to extraction")

	return r.extract(ctx, msg, now)
}

// ResolvePhoto extracts a transaction from a receipt photo and its caption.
func (r *Resolver) ResolvePhoto(ctx context.Context, msg Message) (domain.Transaction, error) {
	if r.extractor == nil {
		return domain.Transaction{}, fmt.Errorf("%w: no extractor configured", domain.ErrAICallFailed)
	}
	if len(msg.Image) == 0 {
		return domain.Transaction{}, fmt.Errorf("ResolvePhoto: %w: empty image", domain.ErrMalformedInput)
	}
	return r.extract(ctx, msg, r.now())
}

func (r *Resolver) extract(ctx context.Context, msg Message, now time.Time) (domain.Transaction, error) {
	log := logger.FromContext(ctx)

	prompt := extract.BuildPrompt(r.catalog, msg.Text, now, len(msg.Image) > 0)
	fields, err := r.extractor.Extract(ctx, extract.Request{
		Prompt:    prompt,
		Image:     msg.Image,
		ImageMIME: msg.ImageMIME,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAICallFailed) && !errors.Is(err, domain.ErrAIResponseInvalid) {
			err = fmt.Errorf("%w: %v", domain.ErrAICallFailed, err)
		}
		log.Error().Err(err).Msg("Extraction call failed")
		return domain.Transaction{}, err
	}

	tx, err := ValidateExtraction(fields, msg.Submitter, now)
	if err != nil {
		log.Warn().Err(err).Msg("Extraction result rejected")
		return domain.Transaction{}, err
	}

	log.Info().
		Str("type", tx.Type.Label()).
		Str("concept", tx.Concept).
		Str("inferred_date", tx.InferredDate).
		Msg("Extraction accepted")

	return tx, nil
}
