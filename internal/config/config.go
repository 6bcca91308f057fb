package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	DefaultEndpoint       = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel          = "openai/gpt-oss-20b"
	DefaultMaxTokens      = 500
	DefaultTemperature    = 0.7
	DefaultCooldown       = time.Second
	DefaultHistoryLimit   = 10
	DefaultRequestTimeout = 60 * time.Second
	DefaultAddr           = ":8080"
	DefaultArchivePath    = "chat_archive.db"
	DefaultLogDir         = "logs"
	DefaultWhatsApp       = "2349150524245"
)

// Config holds application configuration
type Config struct {
	// Remote chat-completion endpoint. The key is never compiled in.
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64

	// Request lifecycle
	Cooldown       time.Duration // minimum spacing between accepted submissions
	HistoryLimit   int           // turns of context sent with each request
	RequestTimeout time.Duration // 0 disables
	ProbeOnStart   bool

	// HTTP surface
	Addr        string
	CORSOrigins []string

	ArchivePath    string // sqlite exchange log, empty disables
	LogDir         string
	WhatsAppNumber string
	Suggestions    []string
	Debug          bool
}

// DefaultSuggestions are the canned questions offered as chips.
var DefaultSuggestions = []string{
	"What features does EduPro offer?",
	"How much does EduPro cost?",
	"Is our school data secure?",
	"How do we get started?",
}

// Load reads configuration from the environment. Call godotenv.Load first
// if a .env file should be honored.
func Load() *Config {
	return &Config{
		Endpoint:       getEnv("EDUPRO_CHAT_ENDPOINT", DefaultEndpoint),
		APIKey:         getEnv("EDUPRO_CHAT_API_KEY", ""),
		Model:          getEnv("EDUPRO_CHAT_MODEL", DefaultModel),
		MaxTokens:      getEnvInt("EDUPRO_CHAT_MAX_TOKENS", DefaultMaxTokens),
		Temperature:    getEnvFloat("EDUPRO_CHAT_TEMPERATURE", DefaultTemperature),
		Cooldown:       getEnvDuration("EDUPRO_CHAT_COOLDOWN", DefaultCooldown),
		HistoryLimit:   getEnvInt("EDUPRO_CHAT_HISTORY_LIMIT", DefaultHistoryLimit),
		RequestTimeout: getEnvDuration("EDUPRO_CHAT_REQUEST_TIMEOUT", DefaultRequestTimeout),
		ProbeOnStart:   getEnvBool("EDUPRO_CHAT_PROBE_ON_START", true),
		Addr:           getEnv("EDUPRO_CHAT_ADDR", DefaultAddr),
		CORSOrigins:    splitList(getEnv("EDUPRO_CHAT_CORS_ORIGINS", "*")),
		ArchivePath:    getEnvAllowEmpty("EDUPRO_CHAT_ARCHIVE", DefaultArchivePath),
		LogDir:         getEnv("EDUPRO_CHAT_LOG_DIR", DefaultLogDir),
		WhatsAppNumber: getEnv("EDUPRO_CHAT_WHATSAPP", DefaultWhatsApp),
		Suggestions:    append([]string(nil), DefaultSuggestions...),
		Debug:          getEnvBool("DEBUG", false),
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required, is.URL),
		validation.Field(&c.APIKey, validation.Required.Error("EDUPRO_CHAT_API_KEY must be set")),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
		validation.Field(&c.HistoryLimit, validation.Required, validation.Min(2)),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.LogDir, validation.Required),
		validation.Field(&c.WhatsAppNumber, validation.Required, is.Digit),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes "unset" from "set to empty".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

// getEnvBool accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
// Anything else keeps the fallback.
func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
