// Package bot connects the intake core to Telegram: it routes updates to the
// guided dialogue or the single-message resolver and renders their replies.
package bot

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/ledger-bot/internal/dialogue"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/intake"
	"github.com/dvloznov/ledger-bot/internal/ledger"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/receipts"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the part of the Telegram Bot API the router calls.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Options tunes the optional parts of the router.
type Options struct {
	// ReceiptImages enables extraction from photographed receipts.
	ReceiptImages bool
	// Archive, when set, keeps a copy of every receipt photo.
	Archive receipts.Archive
	// HTTPClient downloads photos. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	Now        func() time.Time
}

// Router handles one Telegram update at a time. It never returns errors:
// every failure becomes a chat reply and a log entry.
type Router struct {
	sender   Sender
	machine  *dialogue.Machine
	resolver *intake.Resolver
	ledger   ledger.Writer

	receiptImages bool
	archive       receipts.Archive
	httpClient    *http.Client
	now           func() time.Time
}

// NewRouter wires the router.
func NewRouter(sender Sender, machine *dialogue.Machine, resolver *intake.Resolver, lw ledger.Writer, opts Options) *Router {
	r := &Router{
		sender:        sender,
		machine:       machine,
		resolver:      resolver,
		ledger:        lw,
		receiptImages: opts.ReceiptImages,
		archive:       opts.Archive,
		httpClient:    opts.HTTPClient,
		now:           opts.Now,
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// UserKey returns the user an update belongs to, used to keep one user's
// updates in order. It is 0 for updates without a sender.
func UserKey(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	default:
		return 0
	}
}

// HandleUpdate routes one update.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := logger.FromContext(ctx).With().Int("update_id", update.UpdateID).Logger()

	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		from := update.CallbackQuery.From
		log = logger.ForUser(log, from.ID, from.FirstName)
		r.handleCallback(logger.WithContext(ctx, log), update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		from := update.Message.From
		log = logger.ForUser(log, from.ID, from.FirstName)
		r.handleMessage(logger.WithContext(ctx, log), update.Message)
	default:
		log.Debug().Msg("Ignoring update without message or callback")
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		r.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.handlePhoto(ctx, msg)
	case msg.Text != "":
		r.handleText(ctx, msg)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	log := logger.FromContext(ctx)
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		reply, err := r.machine.Start(ctx, msg.From.ID, displayName(msg.From))
		if err != nil {
			log.Error().Err(err).Msg("Failed to start guided session")
			r.sendText(ctx, chatID, textGenericError)
			return
		}
		r.render(ctx, chatID, 0, reply)
	case "cancelar", "cancel":
		reply, err := r.machine.Cancel(ctx, msg.From.ID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to cancel guided session")
			r.sendText(ctx, chatID, textGenericError)
			return
		}
		log.Info().Msg("User cancelled the conversation")
		r.render(ctx, chatID, 0, reply)
	case "ayuda", "help":
		r.render(ctx, chatID, 0, dialogue.Reply{Text: HelpText, Markdown: true})
	default:
		r.sendText(ctx, chatID, textUnknownCommand)
	}
}

func (r *Router) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	log := logger.FromContext(ctx)

	if _, err := r.sender.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Warn().Err(err).Msg("Failed to answer callback query")
	}
	if cq.Message == nil || cq.Message.Chat == nil {
		log.Warn().Msg("Callback without originating message")
		return
	}
	chatID := cq.Message.Chat.ID

	reply, _, err := r.machine.Handle(ctx, dialogue.Input{
		UserID:     cq.From.ID,
		FirstName:  displayName(cq.From),
		IsCallback: true,
		Data:       cq.Data,
	})
	if err != nil {
		log.Error().Err(err).Str("data", cq.Data).Msg("Dialogue step failed")
		r.sendText(ctx, chatID, textGenericError)
		return
	}
	r.render(ctx, chatID, cq.Message.MessageID, reply)
}

func (r *Router) handleText(ctx context.Context, msg *tgbotapi.Message) {
	log := logger.FromContext(ctx)
	chatID := msg.Chat.ID

	reply, handled, err := r.machine.Handle(ctx, dialogue.Input{
		UserID:    msg.From.ID,
		FirstName: displayName(msg.From),
		Text:      msg.Text,
	})
	if err != nil {
		log.Error().Err(err).Msg("Dialogue step failed")
		r.sendText(ctx, chatID, textGenericError)
		return
	}
	if handled {
		r.render(ctx, chatID, 0, reply)
		return
	}

	tx, err := r.resolver.Resolve(ctx, intake.Message{
		Submitter: displayName(msg.From),
		Text:      msg.Text,
	})
	r.record(ctx, chatID, tx, err)
}

func (r *Router) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	log := logger.FromContext(ctx)
	chatID := msg.Chat.ID

	if !r.receiptImages || !r.resolver.FallbackEnabled() {
		r.sendText(ctx, chatID, textPhotosDisabled)
		return
	}

	image, mimeType, err := r.downloadPhoto(ctx, msg.Photo)
	if err != nil {
		log.Error().Err(err).Msg("Failed to download receipt photo")
		r.sendText(ctx, chatID, textPhotoDownload)
		return
	}

	if r.archive != nil {
		uri, err := r.archive.Store(ctx, image, mimeType, r.now())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to archive receipt photo")
		} else {
			log.Info().Str("uri", uri).Msg("Receipt photo archived")
		}
	}

	tx, err := r.resolver.ResolvePhoto(ctx, intake.Message{
		Submitter: displayName(msg.From),
		Text:      msg.Caption,
		Image:     image,
		ImageMIME: mimeType,
	})
	r.record(ctx, chatID, tx, err)
}

// record appends a transaction resolved from a single message and reports
// the outcome. resolveErr is the resolver's error, if any.
func (r *Router) record(ctx context.Context, chatID int64, tx domain.Transaction, resolveErr error) {
	log := logger.FromContext(ctx)

	if resolveErr != nil {
		logRejection(log, resolveErr)
		r.sendText(ctx, chatID, UserMessage(resolveErr))
		return
	}

	if err := r.ledger.Append(ctx, tx); err != nil {
		log.Error().Err(err).Msg("Failed to append transaction")
		r.sendText(ctx, chatID, UserMessage(err))
		return
	}

	log.Info().
		Str("source", string(tx.Source)).
		Str("type", tx.Type.Label()).
		Str("concept", tx.Concept).
		Str("amount", tx.Amount.String()).
		Msg("Transaction recorded")
	r.sendText(ctx, chatID, recordedText(tx))
}

func logRejection(log zerolog.Logger, err error) {
	if isModelFailure(err) {
		log.Error().Err(err).Msg("Extraction failed")
		return
	}
	log.Info().Err(err).Msg("Message rejected")
}

func displayName(u *tgbotapi.User) string {
	switch {
	case u == nil:
		return ""
	case u.FirstName != "":
		return u.FirstName
	case u.UserName != "":
		return u.UserName
	default:
		return strconv.FormatInt(u.ID, 10)
	}
}
