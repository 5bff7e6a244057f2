package handlers

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	apperrors "github.com/edgard/adviserbot/internal/errors"
)

// reply sends a plain message straight through the bot client.
func reply(ctx context.Context, b *tgbot.Bot, log *slog.Logger, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// logOutcome logs a conversation error. Rejected user input is expected
// and logged quietly; the user has already been answered either way.
func logOutcome(ctx context.Context, log *slog.Logger, userID int64, err error) {
	if err == nil {
		return
	}
	switch apperrors.Code(err) {
	case apperrors.CodeValidation, apperrors.CodeInvalidTransition:
		log.InfoContext(ctx, "User input rejected", "user_id", userID, "error", err)
	default:
		log.ErrorContext(ctx, "Failed to handle update", "user_id", userID, "error", err, "code", apperrors.Code(err))
	}
}
