package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	GeminiAPIKey      string  `mapstructure:"gemini_api_key"`
	GeminiModel       string  `mapstructure:"gemini_model"`
	GeminiTemperature float64 `mapstructure:"gemini_temperature"`
	GeminiMaxTokens   int     `mapstructure:"gemini_max_tokens"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	// gemini | openai | none
	AnswerProvider string `mapstructure:"answer_provider"`

	YCOAuthToken string `mapstructure:"yc_oauth_token"`
	YCFolderID   string `mapstructure:"yc_folder_id"`

	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	WebhookURL       string `mapstructure:"webhook_url"`

	DBDriver         string `mapstructure:"db_driver"` // pgx | sqlite
	DatabaseURL      string `mapstructure:"database_url"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PGHost           string `mapstructure:"pghost"`
	PGPort           string `mapstructure:"pgport"`

	PromptFile    string `mapstructure:"prompt_file"`
	ElementPolicy string `mapstructure:"element_policy"` // abort | skip

	v *viper.Viper
}

var defaults = map[string]any{
	"port":      "8080",
	"log_level": "info",

	"gemini_api_key":     "",
	"gemini_model":       "gemini-2.5-flash",
	"gemini_temperature": 0.4,
	"gemini_max_tokens":  8192,

	"openai_api_key":  "",
	"openai_model":    "gpt-4o-mini",
	"openai_base_url": "",
	"answer_provider": "gemini",

	"yc_oauth_token": "",
	"yc_folder_id":   "",

	"telegram_bot_token": "",
	"webhook_url":        "",

	"db_driver":         "pgx",
	"database_url":      "",
	"postgres_user":     "snipreader",
	"postgres_password": "",
	"postgres_db":       "snipreader",
	"pghost":            "db",
	"pgport":            "5432",

	"prompt_file":    "",
	"element_policy": "abort",
}

// Load собирает конфиг: дефолты, затем YAML-файл (если задан), затем переменные окружения.
// Имена переменных: ключи в верхнем регистре: GEMINI_API_KEY, DATABASE_URL, ...
func Load(file string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// Require checks that the named settings (env names like "GEMINI_API_KEY") are non-empty.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if c.v == nil || strings.TrimSpace(c.v.GetString(strings.ToLower(k))) == "" {
			missing = append(missing, strings.ToUpper(k))
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required env " + strings.Join(missing, ", "))
	}
	return nil
}
