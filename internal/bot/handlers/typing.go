package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TypingInterval is how often the typing action is refreshed; Telegram
// clears it after about five seconds.
const TypingInterval = 4 * time.Second

// ChatActionSender is the part of *bot.Bot used for chat actions.
type ChatActionSender interface {
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// KeepTyping shows the typing indicator in chatID until the returned stop
// function is called or ctx is done.
func KeepTyping(ctx context.Context, client ChatActionSender, chatID int64, logger *slog.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(TypingInterval)
		defer ticker.Stop()

		for {
			_, err := client.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
			if err != nil && ctx.Err() == nil {
				logger.DebugContext(ctx, "Typing action failed", "chat_id", chatID, "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
