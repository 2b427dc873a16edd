package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/ledger-bot/internal/api/middleware"
	"github.com/dvloznov/ledger-bot/internal/dispatch"
	"github.com/dvloznov/ledger-bot/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Submitter queues work for a user. *dispatch.Queue implements it.
type Submitter interface {
	Submit(ctx context.Context, key int64, task dispatch.Task) error
}

// WebhookHandler decodes Telegram updates and queues them per user, so the
// HTTP response does not wait on the ledger or the model.
func WebhookHandler(router *Router, queue Submitter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		log := logger.FromContext(r.Context())

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Warn().Err(err).Msg("Failed to decode update")
			middleware.WriteError(w, http.StatusBadRequest, "Invalid update")
			return
		}

		err := queue.Submit(r.Context(), UserKey(update), func(ctx context.Context) {
			router.HandleUpdate(ctx, update)
		})
		if errors.Is(err, dispatch.ErrClosed) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Shutting down")
			return
		}
		if err != nil {
			log.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to queue update")
			middleware.WriteError(w, http.StatusServiceUnavailable, "Busy")
			return
		}

		w.WriteHeader(http.StatusOK)
	})
}

// SetWebhook points Telegram at url and registers the secret token Telegram
// must echo back in every call.
func SetWebhook(bot *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{}
	params["url"] = url
	params.AddNonEmpty("secret_token", secret)
	if _, err := bot.MakeRequest("setWebhook", params); err != nil {
		return err
	}
	return nil
}
