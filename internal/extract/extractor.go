// Package extract asks an external language model to pull transaction fields
// out of free text or a receipt photo. Nothing it returns is trusted: callers
// validate Fields before building a transaction.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/domain"
)

// Extractor is implemented by each model provider.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Fields, error)
}

// Request is one extraction call. Image is optional.
type Request struct {
	Prompt    string
	Image     []byte
	ImageMIME string
}

// Fields is the partial result decoded from the model. Every field is
// optional; a field of the wrong JSON type is treated as absent.
type Fields struct {
	Type     *string
	Amount   *string
	Concept  *string
	Category *string
	Date     *string
	Error    *string
}

// DecodeFields parses a raw model reply into Fields. The reply must contain a
// single JSON object; code fences and surrounding prose are stripped first.
func DecodeFields(raw string) (Fields, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return Fields{}, fmt.Errorf("%w: empty response from model", domain.ErrAIResponseInvalid)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return Fields{}, fmt.Errorf("%w: unmarshal JSON: %v", domain.ErrAIResponseInvalid, err)
	}
	if obj == nil {
		return Fields{}, fmt.Errorf("%w: response is not a JSON object", domain.ErrAIResponseInvalid)
	}

	return Fields{
		Type:     getOptionalStringField(obj, "type"),
		Amount:   getOptionalNumberField(obj, "amount"),
		Concept:  getOptionalStringField(obj, "concept"),
		Category: getOptionalStringField(obj, "category"),
		Date:     getOptionalStringField(obj, "date"),
		Error:    getOptionalStringField(obj, "error"),
	}, nil
}

func getOptionalStringField(m map[string]interface{}, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// getOptionalNumberField keeps the number's text so decimals are not rounded
// through float64. Models sometimes quote numbers; strings are kept as-is.
func getOptionalNumberField(m map[string]interface{}, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case json.Number:
		s := val.String()
		return &s
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		return &s
	default:
		return nil
	}
}

// cleanModelJSON removes Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
