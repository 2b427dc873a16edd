package ledger

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Backend names accepted by Open.
const (
	BackendSheets   = "sheets"
	BackendBigQuery = "bigquery"
	BackendNotion   = "notion"
	BackendMemory   = "memory"
)

// Config carries the settings of every backend; only the selected one is read.
type Config struct {
	Backend  string
	Location *time.Location

	CredentialsJSON string
	SpreadsheetID   string
	Worksheet       string

	ProjectID string
	Dataset   string
	Table     string

	NotionToken      string
	NotionDatabaseID string
}

// Open builds the configured backend. The returned closer releases its
// client and is never nil.
func Open(ctx context.Context, cfg Config) (Writer, io.Closer, error) {
	switch cfg.Backend {
	case BackendSheets, "":
		w, err := NewSheets(ctx, SheetsConfig{
			CredentialsJSON: cfg.CredentialsJSON,
			SpreadsheetID:   cfg.SpreadsheetID,
			Worksheet:       cfg.Worksheet,
			Location:        cfg.Location,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("ledger.Open: %w", err)
		}
		return w, nopCloser{}, nil
	case BackendBigQuery:
		w, err := NewBigQuery(ctx, cfg.ProjectID, cfg.Dataset, cfg.Table, cfg.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger.Open: %w", err)
		}
		return w, w, nil
	case BackendNotion:
		return NewNotion(NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID, cfg.Location), nopCloser{}, nil
	case BackendMemory:
		return NewMemory(cfg.Location), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("ledger.Open: unknown backend %q", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
