package handlers

import (
	"sort"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/adviserbot/internal/conversation"
)

// RegisteredHandler is a handler with its routing and middleware.
// Handlers with a Description are listed in the command menu.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	Description string
}

// RegisterAllCommands returns every command and callback handler. Plain
// text goes to NewTextHandler, which is installed as the default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	userCommands := []struct {
		name        conversation.CommandName
		description string
	}{
		{conversation.CommandStart, "Open the main menu"},
		{conversation.CommandHelp, "Show available commands"},
		{conversation.CommandAddTopic, "Set up your advice profile"},
		{conversation.CommandProfile, "Show your saved profile"},
		{conversation.CommandExit, "Leave chat mode"},
	}
	for _, c := range userCommands {
		handlers["/"+string(c.name)] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     string(c.name),
			Handler:     NewCommandHandler(deps, c.name),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Description: c.description,
		}
	}

	handlers["callback"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     "",
		Handler:     NewCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	handlers["/subscribers"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "subscribers",
		Handler:     NewSubscribersHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}
	handlers["/profiles"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "profiles",
		Handler:     NewProfilesHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}

	return handlers
}

// MenuCommands lists the described commands, sorted by name.
func MenuCommands(registered map[string]RegisteredHandler) []models.BotCommand {
	var commands []models.BotCommand
	for _, h := range registered {
		if h.Description == "" || h.HandlerType != tgbot.HandlerTypeMessageText {
			continue
		}
		commands = append(commands, models.BotCommand{Command: h.Pattern, Description: h.Description})
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Command < commands[j].Command })
	return commands
}
