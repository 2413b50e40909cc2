// Package config loads and validates the bot configuration from a YAML file,
// BOT_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Config holds every setting the bot needs at runtime.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Quota        QuotaConfig        `mapstructure:"quota"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Speech       SpeechConfig       `mapstructure:"speech"`
	Notices      NoticesConfig      `mapstructure:"notices"`
	Broadcast    BroadcastConfig    `mapstructure:"broadcast"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Messages     MessagesConfig     `mapstructure:"messages"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RedisConfig enables the shared in-flight guard. An empty Addr keeps the guard in memory.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" validate:"min=1s"`
}

type TelegramConfig struct {
	Token              string  `mapstructure:"token" validate:"required"`
	AdminIDs           []int64 `mapstructure:"admin_ids" validate:"dive,gt=0"`
	SupportURL         string  `mapstructure:"support_url" validate:"omitempty,url"`
	DropPendingUpdates bool    `mapstructure:"drop_pending_updates"`
	Workers            int     `mapstructure:"workers" validate:"min=1,max=256"`

	// BotInfo is filled from getMe at startup.
	BotInfo *models.User `mapstructure:"-"`
}

type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ProvidersConfig struct {
	Timeout         time.Duration  `mapstructure:"timeout" validate:"min=1s,max=10m"`
	BreakerFailures uint32         `mapstructure:"breaker_failures" validate:"min=1"`
	BreakerCooldown time.Duration  `mapstructure:"breaker_cooldown" validate:"min=1s"`
	OpenAI          ProviderConfig `mapstructure:"openai"`
	Perplexity      ProviderConfig `mapstructure:"perplexity"`
	DeepSeek        ProviderConfig `mapstructure:"deepseek"`
	Gemini          GeminiConfig   `mapstructure:"gemini"`
}

// QuotaConfig controls the free tier and the context window. Limits overrides
// FreeLimit per model key, QuotaKeys maps a model key to the counter it consumes
// (defaults to the model key). ContextTokens bounds the estimated history size, 0 disables it.
type QuotaConfig struct {
	FreeLimit      int               `mapstructure:"free_limit" validate:"min=0"`
	Limits         map[string]int    `mapstructure:"limits" validate:"dive,min=0"`
	QuotaKeys      map[string]string `mapstructure:"quota_keys"`
	MaxHistory     int               `mapstructure:"max_history" validate:"min=0,max=50"`
	ContextTokens  int               `mapstructure:"context_tokens" validate:"min=0"`
	DefaultModel   string            `mapstructure:"default_model" validate:"required"`
	DefaultPersona string            `mapstructure:"default_persona" validate:"required"`
}

// LimitFor returns the free-tier limit for a model key.
func (q QuotaConfig) LimitFor(modelKey string) int {
	if limit, ok := q.Limits[modelKey]; ok {
		return limit
	}
	return q.FreeLimit
}

// KeyFor returns the counter key consumed by a model key.
func (q QuotaConfig) KeyFor(modelKey string) string {
	if key, ok := q.QuotaKeys[modelKey]; ok && key != "" {
		return key
	}
	return modelKey
}

type SubscriptionConfig struct {
	Price       int    `mapstructure:"price" validate:"min=1"`
	Days        int    `mapstructure:"days" validate:"min=1"`
	Currency    string `mapstructure:"currency" validate:"required"`
	Title       string `mapstructure:"title" validate:"required"`
	Description string `mapstructure:"description" validate:"required"`
	Label       string `mapstructure:"label" validate:"required"`
}

type SpeechConfig struct {
	Transcriber string `mapstructure:"transcriber"`
	Synthesizer string `mapstructure:"synthesizer"`
	Voice       string `mapstructure:"voice"`
}

type NoticesConfig struct {
	TransientTTL time.Duration `mapstructure:"transient_ttl" validate:"min=0"`
}

type BroadcastConfig struct {
	Rate  float64 `mapstructure:"rate" validate:"gt=0"`
	Burst int     `mapstructure:"burst" validate:"min=1"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds every user-facing string. Templates use fmt verbs.
type MessagesConfig struct {
	Welcome               string `mapstructure:"welcome" validate:"required"`
	Help                  string `mapstructure:"help" validate:"required"`
	UnknownCommand        string `mapstructure:"unknown_command" validate:"required"`
	Busy                  string `mapstructure:"busy" validate:"required"`
	ModelUnavailable      string `mapstructure:"model_unavailable" validate:"required"`
	LimitExhausted        string `mapstructure:"limit_exhausted" validate:"required"`
	UsageDenied           string `mapstructure:"usage_denied" validate:"required"`
	Upsell                string `mapstructure:"upsell" validate:"required"`
	GeneratingImage       string `mapstructure:"generating_image" validate:"required"`
	Thinking              string `mapstructure:"thinking" validate:"required"`
	RateLimited           string `mapstructure:"rate_limited" validate:"required"`
	ProviderError         string `mapstructure:"provider_error" validate:"required"`
	ProviderUnavailable   string `mapstructure:"provider_unavailable" validate:"required"`
	ContentPolicy         string `mapstructure:"content_policy" validate:"required"`
	GeneralError          string `mapstructure:"general_error" validate:"required"`
	SupportButton         string `mapstructure:"support_button" validate:"required"`
	SubscribeToUnlock     string `mapstructure:"subscribe_to_unlock" validate:"required"`
	SubscribeModel        string `mapstructure:"subscribe_model" validate:"required"`
	SubscribePersona      string `mapstructure:"subscribe_persona" validate:"required"`
	VoiceTranscript       string `mapstructure:"voice_transcript" validate:"required"`
	VoiceFailed           string `mapstructure:"voice_failed" validate:"required"`
	CustomPromptRequest   string `mapstructure:"custom_prompt_request" validate:"required"`
	CustomPromptSaved     string `mapstructure:"custom_prompt_saved" validate:"required"`
	CustomPromptEmpty     string `mapstructure:"custom_prompt_empty" validate:"required"`
	CustomPromptTooLong   string `mapstructure:"custom_prompt_too_long" validate:"required"`
	ModelMenu             string `mapstructure:"model_menu" validate:"required"`
	PersonaMenu           string `mapstructure:"persona_menu" validate:"required"`
	ModelSelected         string `mapstructure:"model_selected" validate:"required"`
	PersonaSelected       string `mapstructure:"persona_selected" validate:"required"`
	AlreadySelected       string `mapstructure:"already_selected" validate:"required"`
	Profile               string `mapstructure:"profile" validate:"required"`
	Statistics            string `mapstructure:"statistics" validate:"required"`
	StatisticsEmpty       string `mapstructure:"statistics_empty" validate:"required"`
	SubscriptionNone      string `mapstructure:"subscription_none" validate:"required"`
	SubscriptionForever   string `mapstructure:"subscription_forever" validate:"required"`
	SubscriptionUntil     string `mapstructure:"subscription_until" validate:"required"`
	SpeechOn              string `mapstructure:"speech_on" validate:"required"`
	SpeechOff             string `mapstructure:"speech_off" validate:"required"`
	SpeechSettings        string `mapstructure:"speech_settings" validate:"required"`
	HistoryEmpty          string `mapstructure:"history_empty" validate:"required"`
	HistoryEnd            string `mapstructure:"history_end" validate:"required"`
	HistoryHeader         string `mapstructure:"history_header" validate:"required"`
	HistoryEntry          string `mapstructure:"history_entry" validate:"required"`
	ClearConfirm          string `mapstructure:"clear_confirm" validate:"required"`
	HistoryCleared        string `mapstructure:"history_cleared" validate:"required"`
	ClearCancelled        string `mapstructure:"clear_cancelled" validate:"required"`
	SubscriptionActivated string `mapstructure:"subscription_activated" validate:"required"`
	AlreadySubscribed     string `mapstructure:"already_subscribed" validate:"required"`
	AdminPermanent        string `mapstructure:"admin_permanent" validate:"required"`
	Unsubscribed          string `mapstructure:"unsubscribed" validate:"required"`
	NotSubscribed         string `mapstructure:"not_subscribed" validate:"required"`
	PaymentRejected       string `mapstructure:"payment_rejected" validate:"required"`
	NotAuthorized         string `mapstructure:"not_authorized" validate:"required"`
	AdminPanel            string `mapstructure:"admin_panel" validate:"required"`
	UsersEmpty            string `mapstructure:"users_empty" validate:"required"`
	UsersHeader           string `mapstructure:"users_header" validate:"required"`
	GrantPrompt           string `mapstructure:"grant_prompt" validate:"required"`
	RevokePrompt          string `mapstructure:"revoke_prompt" validate:"required"`
	GrantDone             string `mapstructure:"grant_done" validate:"required"`
	RevokeDone            string `mapstructure:"revoke_done" validate:"required"`
	TargetsNotFound       string `mapstructure:"targets_not_found" validate:"required"`
	BroadcastPrompt       string `mapstructure:"broadcast_prompt" validate:"required"`
	BroadcastConfirm      string `mapstructure:"broadcast_confirm" validate:"required"`
	BroadcastInProgress   string `mapstructure:"broadcast_in_progress" validate:"required"`
	BroadcastReport       string `mapstructure:"broadcast_report" validate:"required"`
	BroadcastCancelled    string `mapstructure:"broadcast_cancelled" validate:"required"`
}

// LoadConfig reads configuration from path (optional), overlays BOT_* environment
// variables on top of defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsAdmin reports whether userID is listed in telegram.admin_ids.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
