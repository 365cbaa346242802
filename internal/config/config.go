package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "NEWSLETTER_CONFIG"
	dotenvPathEnv   = "NEWSLETTER_DOTENV"

	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
	serverAddrEnv      = "SERVER_ADDR"
	triggerTokenEnv    = "ENGINE_TRIGGER_TOKEN"
	databaseDSNEnv     = "DATABASE_DSN"
	cronExpressionEnv  = "SCHEDULER_CRON"
	timezoneEnv        = "SCHEDULER_TIMEZONE"
	authModeEnv        = "AUTH_MODE"
	jwtSecretEnv       = "SUPABASE_JWT_SECRET"
	supabaseURLEnv     = "SUPABASE_URL"
	supabaseAnonKeyEnv = "SUPABASE_ANON_KEY"
	llmProviderEnv     = "LLM_PROVIDER"
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	geminiModelEnv     = "GEMINI_MODEL"
	chatGPTAPIKeyEnv   = "CHATGPT_API_KEY"
	chatGPTModelEnv    = "CHATGPT_MODEL"
	searchProviderEnv  = "SEARCH_PROVIDER"
	newsAPIKeyEnv      = "NEWS_API_KEY"
	feedURLTemplateEnv = "FEED_URL_TEMPLATE"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
)

// Auth modes.
const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Auth          AuthConfig         `yaml:"auth"`
	LLM           LLMConfig          `yaml:"llm"`
	Search        SearchConfig       `yaml:"search"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig sets slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// TriggerToken, when set, must accompany calls to the batch engine route.
	TriggerToken string `yaml:"triggerToken"`
}

// DatabaseConfig selects the backend by DSN prefix (postgres:// or sqlite:/file:).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the batch generator should run.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// AuthConfig describes how bearer tokens are turned into user ids.
type AuthConfig struct {
	Mode        string `yaml:"mode"`
	JWTSecret   string `yaml:"jwtSecret"`
	Audience    string `yaml:"audience"`
	SupabaseURL string `yaml:"supabaseUrl"`
	AnonKey     string `yaml:"anonKey"`
}

// LLMConfig picks and configures the generative-text provider.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	ChatGPT  ChatGPTConfig `yaml:"chatgpt"`
}

// GeminiConfig configures the Generative Language API client.
type GeminiConfig struct {
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// SearchConfig groups settings for article sources.
type SearchConfig struct {
	Provider string           `yaml:"provider"`
	NewsAPI  NewsAPIConfig    `yaml:"newsapi"`
	Feed     FeedSearchConfig `yaml:"feed"`
}

// NewsAPIConfig configures the NewsAPI /v2/everything searcher.
type NewsAPIConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	Language string `yaml:"language"`
}

// FeedSearchConfig holds a feed URL with a {query} placeholder.
type FeedSearchConfig struct {
	URLTemplate string `yaml:"urlTemplate"`
}

// NotificationConfig encapsulates operator-wide outbound channels. Every generated
// newsletter, whoever owns it, goes to the same configured destination.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig names the single operator chat that receives all newsletters.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both bot token and chat id are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	loadDotenv()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// loadDotenv never overrides variables that are already set.
func loadDotenv() {
	path := os.Getenv(dotenvPathEnv)
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("config: cannot load %s: %v", path, err)
	}
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{logLevelEnv, &c.Logging.Level},
		{logFormatEnv, &c.Logging.Format},
		{serverAddrEnv, &c.Server.Addr},
		{triggerTokenEnv, &c.Server.TriggerToken},
		{databaseDSNEnv, &c.Database.DSN},
		{cronExpressionEnv, &c.Scheduler.CronExpression},
		{timezoneEnv, &c.Scheduler.Timezone},
		{authModeEnv, &c.Auth.Mode},
		{jwtSecretEnv, &c.Auth.JWTSecret},
		{supabaseURLEnv, &c.Auth.SupabaseURL},
		{supabaseAnonKeyEnv, &c.Auth.AnonKey},
		{llmProviderEnv, &c.LLM.Provider},
		{geminiAPIKeyEnv, &c.LLM.Gemini.APIKey},
		{geminiModelEnv, &c.LLM.Gemini.Model},
		{chatGPTAPIKeyEnv, &c.LLM.ChatGPT.APIKey},
		{chatGPTModelEnv, &c.LLM.ChatGPT.Model},
		{searchProviderEnv, &c.Search.Provider},
		{newsAPIKeyEnv, &c.Search.NewsAPI.APIKey},
		{feedURLTemplateEnv, &c.Search.Feed.URLTemplate},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
	}

	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeString(base *string, override string) {
	if override != "" {
		*base = override
	}
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)

	mergeString(&base.Server.Addr, override.Server.Addr)
	mergeString(&base.Server.TriggerToken, override.Server.TriggerToken)

	mergeString(&base.Database.DSN, override.Database.DSN)

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	mergeString(&base.Scheduler.CronExpression, override.Scheduler.CronExpression)
	mergeString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	mergeString(&base.Auth.Mode, override.Auth.Mode)
	mergeString(&base.Auth.JWTSecret, override.Auth.JWTSecret)
	mergeString(&base.Auth.Audience, override.Auth.Audience)
	mergeString(&base.Auth.SupabaseURL, override.Auth.SupabaseURL)
	mergeString(&base.Auth.AnonKey, override.Auth.AnonKey)

	mergeString(&base.LLM.Provider, override.LLM.Provider)
	mergeString(&base.LLM.Gemini.APIKey, override.LLM.Gemini.APIKey)
	mergeString(&base.LLM.Gemini.Model, override.LLM.Gemini.Model)
	mergeString(&base.LLM.Gemini.Endpoint, override.LLM.Gemini.Endpoint)
	mergeString(&base.LLM.ChatGPT.Endpoint, override.LLM.ChatGPT.Endpoint)
	mergeString(&base.LLM.ChatGPT.Model, override.LLM.ChatGPT.Model)
	mergeString(&base.LLM.ChatGPT.APIKey, override.LLM.ChatGPT.APIKey)
	mergeString(&base.LLM.ChatGPT.SystemPrompt, override.LLM.ChatGPT.SystemPrompt)

	mergeString(&base.Search.Provider, override.Search.Provider)
	mergeString(&base.Search.NewsAPI.Endpoint, override.Search.NewsAPI.Endpoint)
	mergeString(&base.Search.NewsAPI.APIKey, override.Search.NewsAPI.APIKey)
	mergeString(&base.Search.NewsAPI.Language, override.Search.NewsAPI.Language)
	mergeString(&base.Search.Feed.URLTemplate, override.Search.Feed.URLTemplate)

	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Server:    ServerConfig{Addr: ":8080"},
		Database:  DatabaseConfig{DSN: "sqlite://newsletters.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Auth:      AuthConfig{Mode: AuthModeJWT, Audience: "authenticated"},
		LLM: LLMConfig{
			Provider: "gemini",
			Gemini:   GeminiConfig{Model: "gemini-1.5-pro"},
			ChatGPT: ChatGPTConfig{
				Endpoint:     "https://api.openai.com/v1/chat/completions",
				Model:        "gpt-4o-mini",
				SystemPrompt: "You write concise news digests.",
			},
		},
		Search: SearchConfig{
			Provider: "newsapi",
			NewsAPI:  NewsAPIConfig{Endpoint: "https://newsapi.org"},
			Feed:     FeedSearchConfig{URLTemplate: "https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en"},
		},
	}
}
