// Package handlers contains the Telegram update handlers of the adviser bot,
// their registration and middleware.
package handlers

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly lets only the configured admin through. Everyone else gets the
// "not authorized" message.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			userID := update.Message.From.ID
			adminID := deps.Config.Telegram.AdminID
			if adminID == 0 || userID != adminID {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
				reply(ctx, bot, log, chatID, deps.Config.Messages.NotAuthorized)
				return
			}

			next(ctx, bot, update)
		}
	}
}

// PrivateOnly drops messages from groups and channels. Callback queries
// pass through since they only come from the bot's own keyboards.
func PrivateOnly(logger *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message != nil && update.Message.Chat.Type != models.ChatTypePrivate {
				logger.DebugContext(ctx, "Ignoring non-private message", "chat_id", update.Message.Chat.ID, "chat_type", update.Message.Chat.Type)
				return
			}
			next(ctx, bot, update)
		}
	}
}
