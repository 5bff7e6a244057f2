package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/adviserbot/internal/conversation"
)

// NewTextHandler returns the default handler: free text goes to the
// conversation machine, unknown commands get the "not understood" reply.
func NewTextHandler(deps HandlerDeps) bot.HandlerFunc {
	return textHandler{deps}.Handle
}

type textHandler struct {
	deps HandlerDeps
}

func (h textHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "text")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
		return
	}

	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "":
		log.DebugContext(ctx, "Ignoring non-text message", "user_id", userID)
		reply(ctx, b, log, msg.Chat.ID, h.deps.Config.Messages.UnknownAction)
		return
	case strings.HasPrefix(text, "/"):
		log.InfoContext(ctx, "Unknown command", "user_id", userID, "text", text)
		reply(ctx, b, log, msg.Chat.ID, h.deps.Config.Messages.UnknownAction)
		return
	}

	if h.deps.Machine.Sessions().Mode(userID) == conversation.ModeChatting {
		stop := KeepTyping(ctx, b, msg.Chat.ID, log)
		defer stop()
	}

	logOutcome(ctx, log, userID, h.deps.Machine.HandleText(ctx, userID, text))
}
