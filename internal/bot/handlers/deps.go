package handlers

import (
	"log/slog"

	"github.com/edgard/adviserbot/internal/config"
	"github.com/edgard/adviserbot/internal/conversation"
	"github.com/edgard/adviserbot/internal/profile"
)

// SubscriptionCounter reports how many users have a live advice job.
type SubscriptionCounter interface {
	Subscribers() int
}

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger        *slog.Logger
	Config        *config.Config
	Store         profile.Store
	Machine       *conversation.Machine
	Subscriptions SubscriptionCounter
}
