package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewSubscribersHandler returns a handler for the admin /subscribers command.
func NewSubscribersHandler(deps HandlerDeps) bot.HandlerFunc {
	return subscribersHandler{deps}.Handle
}

type subscribersHandler struct {
	deps HandlerDeps
}

func (h subscribersHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "subscribers")
	if update.Message == nil {
		return
	}

	n := h.deps.Subscriptions.Subscribers()
	log.InfoContext(ctx, "Admin requested subscription count", "count", n)
	reply(ctx, b, log, update.Message.Chat.ID, fmt.Sprintf(h.deps.Config.Messages.SubscribersFmt, n))
}

// NewProfilesHandler returns a handler for the admin /profiles command.
func NewProfilesHandler(deps HandlerDeps) bot.HandlerFunc {
	return profilesHandler{deps}.Handle
}

type profilesHandler struct {
	deps HandlerDeps
}

func (h profilesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "profiles")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages

	profiles, err := h.deps.Store.ListProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list profiles", "error", err)
		reply(ctx, b, log, chatID, msgs.GeneralError)
		return
	}
	if len(profiles) == 0 {
		reply(ctx, b, log, chatID, msgs.NoProfiles)
		return
	}

	var sb strings.Builder
	sb.WriteString(msgs.ProfilesHeader)
	for _, p := range profiles {
		fmt.Fprintf(&sb, "\nUID %d | %s | %s | %d/day | %s | %s", p.UserID, p.Name, p.Topic, p.Frequency, p.Persona, p.Level)
	}

	log.InfoContext(ctx, "Sending profiles list", "count", len(profiles))
	reply(ctx, b, log, chatID, sb.String())
}
