package extract

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted by Open.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Open builds the extractor for provider.
func Open(ctx context.Context, provider, apiKey, model string, timeout time.Duration) (Extractor, error) {
	switch provider {
	case ProviderGemini, "":
		g, err := NewGemini(ctx, apiKey, model, timeout)
		if err != nil {
			return nil, fmt.Errorf("extract.Open: %w", err)
		}
		return g, nil
	case ProviderAnthropic:
		return NewAnthropic(apiKey, model, timeout), nil
	default:
		return nil, fmt.Errorf("extract.Open: unknown provider %q", provider)
	}
}
