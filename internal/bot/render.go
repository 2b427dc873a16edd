package bot

import (
	"context"
	"errors"

	"github.com/dvloznov/ledger-bot/internal/dialogue"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// render sends reply to chatID. Replies marked Edit replace messageID when
// it is known.
func (r *Router) render(ctx context.Context, chatID int64, messageID int, reply dialogue.Reply) {
	log := logger.FromContext(ctx)
	markup := keyboard(reply.Buttons)

	var c tgbotapi.Chattable
	if reply.Edit && messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
		if reply.Markdown {
			edit.ParseMode = tgbotapi.ModeMarkdown
		}
		edit.ReplyMarkup = markup
		c = edit
	} else {
		msg := tgbotapi.NewMessage(chatID, reply.Text)
		if reply.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		c = msg
	}

	if _, err := r.sender.Send(c); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func (r *Router) sendText(ctx context.Context, chatID int64, text string) {
	r.render(ctx, chatID, 0, dialogue.Reply{Text: text})
}

func keyboard(rows [][]dialogue.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &markup
}

func isModelFailure(err error) bool {
	return errors.Is(err, domain.ErrAICallFailed) || errors.Is(err, domain.ErrAIResponseInvalid)
}
