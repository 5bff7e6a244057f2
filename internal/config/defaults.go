package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultDBDriver           = DriverSQLite
	DefaultDBPath             = "storage.db"
	DefaultDBOperationTimeout = 15 * time.Second

	DefaultAIProvider         = ProviderOpenAI
	DefaultAICompletionModel  = "gpt-3.5-turbo-instruct"
	DefaultAIChatModel        = "gpt-4o-mini"
	DefaultAITemperature      = 0
	DefaultAITopP             = 0.4
	DefaultAIFrequencyPenalty = 1.5
	DefaultAIPresencePenalty  = 1
	DefaultAIMaxTokens        = 500
	DefaultAITimeout          = 2 * time.Minute
	DefaultAIMaxRetries       = 2
	DefaultAIRetryDelay       = 2 * time.Second
	DefaultAIBreakerFailures  = 5
	DefaultAIBreakerCooldown  = time.Minute

	DefaultSearchResults = 5

	DefaultChatHistoryLimit = 20
	DefaultChatExitKeyword  = "exit"

	DefaultAdviceTimeout = 5 * time.Minute
)

// DefaultMessages are the stock user-facing strings.
var DefaultMessages = MessagesConfig{
	Welcome:            "👋 Hello, %s! I send personalised advice on the topic you care about.",
	Help:               "/add_topic - set up your advice profile\n/profile - show your saved profile\n/exit - leave chat mode\n/help - show this message",
	MenuPrompt:         "Press Add Topic or send /add_topic to set up your advice profile.",
	AddTopicButton:     "Add Topic",
	SummaryHeader:      "Please check your answers:",
	ConfirmButton:      "Confirm",
	EditButton:         "Edit",
	ChooseField:        "Which answer would you like to change?",
	Confirmed:          "✅ Saved! Advice will arrive on your schedule. Ask me anything about your topic, send /profile to review your answers, /add_topic to start over or /exit to leave the chat.",
	SubscribeFailed:    "✅ Saved! Advice delivery could not start right now; it will begin automatically shortly. Meanwhile ask me anything about your topic or send /profile to review your answers.",
	SaveFailed:         "❌ I couldn't save your profile right now. Please press Confirm again in a moment.",
	InvalidProfile:     "⚠️ Some answers look wrong (%s). Press Edit to fix them.",
	OnboardingComplete: "Onboarding is already completed.",
	UnknownAction:      "I didn't understand that. Please use the buttons or /help.",
	ExitChat:           "Exiting the chat. Returning to the main menu.",
	ProfileNotFound:    "Your preferences were not found. Use /add_topic to set them up.",
	ProfileHeader:      "Your profile:",
	AdviceHeader:       "💡 Your advice",
	AdviceFailed:       "🤖 I couldn't generate advice right now. I'll try again at the next scheduled time.",
	ChatFailed:         "🤖 I couldn't answer right now. Please try again later.",
	GeneralError:       "❌ An error occurred. Please try again later.",
	NotAuthorized:      "🚫 You are not authorized to use this command.",
	SubscribersFmt:     "Active advice subscriptions: %d",
	ProfilesHeader:     "Stored profiles:",
	NoProfiles:         "No profiles stored yet.",
}

// DefaultTasks are the cron maintenance tasks enabled out of the box.
var DefaultTasks = map[string]any{
	"sql_maintenance": map[string]any{
		"enabled":  true,
		"schedule": "0 0 4 * * 0",
	},
	"advice_reconcile": map[string]any{
		"enabled":  true,
		"schedule": "0 30 * * * *",
	},
}

// setDefaults registers every key with viper so BOT_* variables can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", true)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.drop_pending_updates", true)

	v.SetDefault("database.driver", DefaultDBDriver)
	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.operation_timeout", DefaultDBOperationTimeout)

	v.SetDefault("ai.provider", DefaultAIProvider)
	v.SetDefault("ai.token", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.completion_model", DefaultAICompletionModel)
	v.SetDefault("ai.chat_model", DefaultAIChatModel)
	v.SetDefault("ai.temperature", DefaultAITemperature)
	v.SetDefault("ai.top_p", DefaultAITopP)
	v.SetDefault("ai.frequency_penalty", DefaultAIFrequencyPenalty)
	v.SetDefault("ai.presence_penalty", DefaultAIPresencePenalty)
	v.SetDefault("ai.max_tokens", DefaultAIMaxTokens)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("ai.max_retries", DefaultAIMaxRetries)
	v.SetDefault("ai.retry_delay", DefaultAIRetryDelay)
	v.SetDefault("ai.breaker_failures", DefaultAIBreakerFailures)
	v.SetDefault("ai.breaker_cooldown", DefaultAIBreakerCooldown)

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.results", DefaultSearchResults)

	v.SetDefault("chat.history_limit", DefaultChatHistoryLimit)
	v.SetDefault("chat.exit_keyword", DefaultChatExitKeyword)

	v.SetDefault("scheduler.advice_timeout", DefaultAdviceTimeout)
	v.SetDefault("scheduler.tasks", DefaultTasks)

	m := DefaultMessages
	v.SetDefault("messages.welcome", m.Welcome)
	v.SetDefault("messages.help", m.Help)
	v.SetDefault("messages.menu_prompt", m.MenuPrompt)
	v.SetDefault("messages.add_topic_button", m.AddTopicButton)
	v.SetDefault("messages.summary_header", m.SummaryHeader)
	v.SetDefault("messages.confirm_button", m.ConfirmButton)
	v.SetDefault("messages.edit_button", m.EditButton)
	v.SetDefault("messages.choose_field", m.ChooseField)
	v.SetDefault("messages.confirmed", m.Confirmed)
	v.SetDefault("messages.subscribe_failed", m.SubscribeFailed)
	v.SetDefault("messages.save_failed", m.SaveFailed)
	v.SetDefault("messages.invalid_profile", m.InvalidProfile)
	v.SetDefault("messages.onboarding_complete", m.OnboardingComplete)
	v.SetDefault("messages.unknown_action", m.UnknownAction)
	v.SetDefault("messages.exit_chat", m.ExitChat)
	v.SetDefault("messages.profile_not_found", m.ProfileNotFound)
	v.SetDefault("messages.profile_header", m.ProfileHeader)
	v.SetDefault("messages.advice_header", m.AdviceHeader)
	v.SetDefault("messages.advice_failed", m.AdviceFailed)
	v.SetDefault("messages.chat_failed", m.ChatFailed)
	v.SetDefault("messages.general_error", m.GeneralError)
	v.SetDefault("messages.not_authorized", m.NotAuthorized)
	v.SetDefault("messages.subscribers_fmt", m.SubscribersFmt)
	v.SetDefault("messages.profiles_header", m.ProfilesHeader)
	v.SetDefault("messages.no_profiles", m.NoProfiles)
}
