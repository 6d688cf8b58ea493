// Package config loads all configuration for the Present OS backend from
// environment variables, optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the backend.
type Config struct {
	Port     int
	Version  string
	Timezone string

	// StoreDriver selects persistence: "memory" (JSON snapshots under
	// DataDir) or "sqlite". Both run fully local.
	StoreDriver string
	DataDir     string

	Model     ModelConfig
	Tasks     TasksConfig
	Calendar  CalendarConfig
	Email     EmailConfig
	Weather   WeatherConfig
	Focus     FocusConfig
	Notify    NotifyConfig
	Retention RetentionConfig
	Telemetry TelemetryConfig
}

// ModelConfig configures the chat-completion provider used by the intent
// classifier and the chat agent. The endpoint is OpenAI-compatible; Groq's
// API is the default.
type ModelConfig struct {
	APIKey         string
	Endpoint       string
	Model          string
	OllamaEndpoint string // local fallback provider; empty disables it
	OllamaModel    string
}

type TasksConfig struct {
	Token      string
	DatabaseID string
	Endpoint   string
}

type CalendarConfig struct {
	Endpoint   string
	Token      string
	CalendarID string
}

type EmailConfig struct {
	Endpoint string
	Token    string
}

type WeatherConfig struct {
	APIKey   string
	Location string
	Endpoint string
}

// FocusConfig sets the notification admission windows (local hours).
type FocusConfig struct {
	DeepWorkStartHour  int
	DeepWorkEndHour    int
	LowEnergyStartHour int
	LowEnergyEndHour   int
	DefaultMinutes     int
}

// NotifyConfig seeds an optional default webhook channel for delivering
// admitted notifications. Channels can also be added at runtime over the API.
type NotifyConfig struct {
	WebhookURL    string
	WebhookSecret string
}

// RetentionConfig controls the background janitor that prunes old command
// traces from the store.
type RetentionConfig struct {
	TraceDays  int // traces older than this are deleted; 0 disables pruning
	SweepHours int // interval between sweeps
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	return &Config{
		Port:        envInt("PRESENTOS_PORT", 8080),
		Version:     envStr("PRESENTOS_VERSION", "0.2.0"),
		Timezone:    envStr("PRESENTOS_TIMEZONE", "Asia/Kolkata"),
		StoreDriver: envStr("PRESENTOS_STORE", "memory"),
		DataDir:     envStr("PRESENTOS_DATA_DIR", ""),
		Model: ModelConfig{
			APIKey:         envStr("GROQ_API_KEY", ""),
			Endpoint:       envStr("MODEL_ENDPOINT", "https://api.groq.com/openai/v1"),
			Model:          envStr("MODEL_NAME", "llama-3.3-70b-versatile"),
			OllamaEndpoint: envStr("OLLAMA_ENDPOINT", ""),
			OllamaModel:    envStr("OLLAMA_MODEL", "llama3.2"),
		},
		Tasks: TasksConfig{
			Token:      envStr("TASKS_TOKEN", ""),
			DatabaseID: envStr("TASKS_DATABASE_ID", ""),
			Endpoint:   envStr("TASKS_ENDPOINT", "https://api.notion.com/v1"),
		},
		Calendar: CalendarConfig{
			Endpoint:   envStr("CALENDAR_ENDPOINT", ""),
			Token:      envStr("CALENDAR_TOKEN", ""),
			CalendarID: envStr("CALENDAR_ID", "primary"),
		},
		Email: EmailConfig{
			Endpoint: envStr("EMAIL_ENDPOINT", ""),
			Token:    envStr("EMAIL_TOKEN", ""),
		},
		Weather: WeatherConfig{
			APIKey:   envStr("WEATHER_API_KEY", ""),
			Location: envStr("WEATHER_LOCATION", "Mumbai,IN"),
			Endpoint: envStr("WEATHER_ENDPOINT", "http://api.weatherapi.com/v1"),
		},
		Focus: FocusConfig{
			DeepWorkStartHour:  envInt("FOCUS_DEEP_WORK_START", 9),
			DeepWorkEndHour:    envInt("FOCUS_DEEP_WORK_END", 12),
			LowEnergyStartHour: envInt("FOCUS_LOW_ENERGY_START", 14),
			LowEnergyEndHour:   envInt("FOCUS_LOW_ENERGY_END", 16),
			DefaultMinutes:     envInt("FOCUS_DEFAULT_MINUTES", 25),
		},
		Notify: NotifyConfig{
			WebhookURL:    envStr("NOTIFY_WEBHOOK_URL", ""),
			WebhookSecret: envStr("NOTIFY_WEBHOOK_SECRET", ""),
		},
		Retention: RetentionConfig{
			TraceDays:  envInt("RETENTION_TRACE_DAYS", 30),
			SweepHours: envInt("RETENTION_SWEEP_HOURS", 6),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "presentos-backend"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
