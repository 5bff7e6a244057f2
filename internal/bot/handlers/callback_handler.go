package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/adviserbot/internal/conversation"
)

// NewCallbackHandler returns the handler for inline button presses.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.Handle
}

type callbackHandler struct {
	deps HandlerDeps
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "callback")

	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	userID := cq.From.ID

	// Stops the client's loading spinner.
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err, "user_id", userID)
	}

	payload, err := conversation.ParsePayload(cq.Data)
	if err != nil {
		log.InfoContext(ctx, "Unrecognized callback data", "user_id", userID, "data", cq.Data)
		reply(ctx, b, log, userID, h.deps.Config.Messages.UnknownAction)
		return
	}

	log.DebugContext(ctx, "Handling button", "user_id", userID, "action", payload.Action)
	logOutcome(ctx, log, userID, h.deps.Machine.HandleButton(ctx, userID, payload))
}
