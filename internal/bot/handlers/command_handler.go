package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/adviserbot/internal/conversation"
)

// NewCommandHandler returns a handler that feeds the slash command name to
// the conversation machine.
func NewCommandHandler(deps HandlerDeps, name conversation.CommandName) bot.HandlerFunc {
	return commandHandler{deps: deps, name: name}.Handle
}

type commandHandler struct {
	deps HandlerDeps
	name conversation.CommandName
}

func (h commandHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "command", "command", h.name)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Command handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	from := update.Message.From
	log.InfoContext(ctx, "Handling command", "user_id", from.ID)

	err := h.deps.Machine.HandleCommand(ctx, conversation.Command{
		Name:      h.name,
		UserID:    from.ID,
		FirstName: from.FirstName,
	})
	logOutcome(ctx, log, from.ID, err)
}
