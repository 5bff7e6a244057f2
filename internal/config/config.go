// Package config loads the bot configuration from defaults, an optional YAML
// file, a .env file and BOT_* environment variables, then validates it.
package config

import "time"

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// AI providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the complete application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Search    SearchConfig    `mapstructure:"search"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type TelegramConfig struct {
	Token              string `mapstructure:"token"                validate:"required"`
	AdminID            int64  `mapstructure:"admin_id"             validate:"gte=0"`
	DropPendingUpdates bool   `mapstructure:"drop_pending_updates"`
}

type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"            validate:"oneof=sqlite postgres"`
	Path             string        `mapstructure:"path"              validate:"required_if=Driver sqlite"`
	DSN              string        `mapstructure:"dsn"               validate:"required_if=Driver postgres"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"min=1s,max=5m"`
}

// AIConfig configures the text and chat completion backend. Sampling
// parameters apply to chat completions; plain completions use Temperature only.
type AIConfig struct {
	Provider         string        `mapstructure:"provider"          validate:"oneof=openai gemini"`
	Token            string        `mapstructure:"token"             validate:"required"`
	BaseURL          string        `mapstructure:"base_url"          validate:"omitempty,url"`
	CompletionModel  string        `mapstructure:"completion_model"  validate:"required"`
	ChatModel        string        `mapstructure:"chat_model"        validate:"required"`
	Temperature      float32       `mapstructure:"temperature"       validate:"min=0,max=2"`
	TopP             float32       `mapstructure:"top_p"             validate:"min=0,max=1"`
	FrequencyPenalty float32       `mapstructure:"frequency_penalty" validate:"min=-2,max=2"`
	PresencePenalty  float32       `mapstructure:"presence_penalty"  validate:"min=-2,max=2"`
	MaxTokens        int           `mapstructure:"max_tokens"        validate:"min=1,max=32000"`
	Timeout          time.Duration `mapstructure:"timeout"           validate:"min=1s,max=10m"`
	MaxRetries       int           `mapstructure:"max_retries"       validate:"min=0,max=10"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"       validate:"min=0,max=1m"`
	BreakerFailures  int           `mapstructure:"breaker_failures"  validate:"min=0,max=100"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"  validate:"min=0,max=1h"`
}

// SearchConfig configures Google Programmable Search.
type SearchConfig struct {
	APIKey   string `mapstructure:"api_key"   validate:"required"`
	EngineID string `mapstructure:"engine_id" validate:"required"`
	Results  int    `mapstructure:"results"   validate:"min=1,max=10"`
}

type ChatConfig struct {
	HistoryLimit int    `mapstructure:"history_limit" validate:"min=2,max=200"`
	ExitKeyword  string `mapstructure:"exit_keyword"  validate:"required"`
}

// SchedulerConfig holds the advice cycle budget and the cron maintenance tasks.
type SchedulerConfig struct {
	AdviceTimeout time.Duration         `mapstructure:"advice_timeout" validate:"min=1s,max=30m"`
	Tasks         map[string]TaskConfig `mapstructure:"tasks"          validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-visible string.
type MessagesConfig struct {
	Welcome            string `mapstructure:"welcome"             validate:"required"`
	Help               string `mapstructure:"help"                validate:"required"`
	MenuPrompt         string `mapstructure:"menu_prompt"         validate:"required"`
	AddTopicButton     string `mapstructure:"add_topic_button"    validate:"required"`
	SummaryHeader      string `mapstructure:"summary_header"      validate:"required"`
	ConfirmButton      string `mapstructure:"confirm_button"      validate:"required"`
	EditButton         string `mapstructure:"edit_button"         validate:"required"`
	ChooseField        string `mapstructure:"choose_field"        validate:"required"`
	Confirmed          string `mapstructure:"confirmed"           validate:"required"`
	SubscribeFailed    string `mapstructure:"subscribe_failed"    validate:"required"`
	SaveFailed         string `mapstructure:"save_failed"         validate:"required"`
	InvalidProfile     string `mapstructure:"invalid_profile"     validate:"required"`
	OnboardingComplete string `mapstructure:"onboarding_complete" validate:"required"`
	UnknownAction      string `mapstructure:"unknown_action"      validate:"required"`
	ExitChat           string `mapstructure:"exit_chat"           validate:"required"`
	ProfileNotFound    string `mapstructure:"profile_not_found"   validate:"required"`
	ProfileHeader      string `mapstructure:"profile_header"      validate:"required"`
	AdviceHeader       string `mapstructure:"advice_header"`
	AdviceFailed       string `mapstructure:"advice_failed"       validate:"required"`
	ChatFailed         string `mapstructure:"chat_failed"         validate:"required"`
	GeneralError       string `mapstructure:"general_error"       validate:"required"`
	NotAuthorized      string `mapstructure:"not_authorized"      validate:"required"`
	SubscribersFmt     string `mapstructure:"subscribers_fmt"     validate:"required"`
	ProfilesHeader     string `mapstructure:"profiles_header"     validate:"required"`
	NoProfiles         string `mapstructure:"no_profiles"         validate:"required"`
}
