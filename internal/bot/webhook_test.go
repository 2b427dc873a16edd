package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/ledger-bot/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shorthandUpdate = `{"update_id":7,"message":{"message_id":3,"from":{"id":11,"first_name":"Ana"},"chat":{"id":11,"type":"private"},"date":1760781600,"text":"GASTO 50 ALIMENTOS"}}`

func TestWebhookQueuesUpdate(t *testing.T) {
	h := newHarness(t, nil, Options{})
	queue := dispatch.NewQueue(2, 8)

	req := httptest.NewRequest(http.MethodPost, "/webhook/x", strings.NewReader(shorthandUpdate))
	rec := httptest.NewRecorder()
	WebhookHandler(h.router, queue).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, queue.Stop(ctx))

	rows := h.ledger.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0][1])
}

func TestWebhookRejects(t *testing.T) {
	h := newHarness(t, nil, Options{})
	closed := dispatch.NewQueue(1, 1)
	require.NoError(t, closed.Stop(context.Background()))

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad body", http.MethodPost, "{not json", http.StatusBadRequest},
		{"shutting down", http.MethodPost, shorthandUpdate, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/webhook/x", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			WebhookHandler(h.router, closed).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Empty(t, h.ledger.Rows())
}
