package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-bot/internal/domain"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini extracts fields with Google's Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini extractor sharing one API client.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Extract implements Extractor.
func (g *Gemini) Extract(ctx context.Context, req Request) (Fields, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	if len(req.Image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: imageMIME(req.ImageMIME),
				Data:     req.Image,
			},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return Fields{}, fmt.Errorf("%w: gemini generate content: %v", domain.ErrAICallFailed, err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return Fields{}, fmt.Errorf("%w: empty response from gemini", domain.ErrAIResponseInvalid)
	}
	return DecodeFields(rawText)
}

func imageMIME(mime string) string {
	if mime == "" {
		return "image/jpeg"
	}
	return mime
}
