package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/adviserbot/internal/conversation"
)

// MaxMessageLength is Telegram's limit for one text message, in characters.
const MaxMessageLength = 4096

const optionsPerRow = 3

// MessageSender is the part of *bot.Bot used to deliver messages.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Sender renders conversation replies as Telegram messages. Users talk to
// the bot in private chats, so the user ID is also the chat ID.
type Sender struct {
	client MessageSender
	logger *slog.Logger
}

func NewSender(client MessageSender, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{client: client, logger: logger.With("component", "sender")}
}

// Send delivers r. Long texts are split; the keyboard goes with the last part.
func (s *Sender) Send(ctx context.Context, userID int64, r conversation.Reply) error {
	parts := SplitText(r.Text, MaxMessageLength)
	markup := replyMarkup(r)

	for i, part := range parts {
		params := &bot.SendMessageParams{ChatID: userID, Text: part}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}
		if _, err := s.client.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("send message to %d: %w", userID, err)
		}
	}

	s.logger.DebugContext(ctx, "Message sent", "user_id", userID, "parts", len(parts))
	return nil
}

func replyMarkup(r conversation.Reply) models.ReplyMarkup {
	switch {
	case len(r.Buttons) > 0:
		rows := make([][]models.InlineKeyboardButton, 0, len(r.Buttons))
		for _, b := range r.Buttons {
			rows = append(rows, []models.InlineKeyboardButton{{Text: b.Label, CallbackData: b.Payload.Encode()}})
		}
		return &models.InlineKeyboardMarkup{InlineKeyboard: rows}

	case len(r.Options) > 0:
		var rows [][]models.KeyboardButton
		for i := 0; i < len(r.Options); i += optionsPerRow {
			end := min(i+optionsPerRow, len(r.Options))
			row := make([]models.KeyboardButton, 0, end-i)
			for _, o := range r.Options[i:end] {
				row = append(row, models.KeyboardButton{Text: o})
			}
			rows = append(rows, row)
		}
		return &models.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true, OneTimeKeyboard: true}

	case r.RemoveKeyboard:
		return &models.ReplyKeyboardRemove{RemoveKeyboard: true}
	}
	return nil
}

// SplitText cuts text into parts of at most limit runes, preferring to break
// at a newline and then at a space. Empty text yields one empty part.
func SplitText(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := breakPoint(runes[:limit])
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
		for len(runes) > 0 && (runes[0] == '\n' || runes[0] == ' ') {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func breakPoint(window []rune) int {
	for _, sep := range []rune{'\n', ' '} {
		for i := len(window) - 1; i > len(window)/2; i-- {
			if window[i] == sep {
				return i
			}
		}
	}
	return len(window)
}

var _ conversation.Sender = (*Sender)(nil)
