package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Application namespace prefixed to every collection path
	Namespace string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP change fanout
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Identity
	AuthProvider          string
	GoogleOAuthClientID   string
	GoogleOAuthSecret     string
	GoogleOAuthRedirect   string
	StaticPrincipalID     string
	StaticPrincipalName   string
	StaticPrincipalAvatar string

	// Browser sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Advice service
	AdviceAPIKey   string
	AdviceEndpoint string
	AdviceModel    string
	AdviceTimeout  time.Duration

	// Google Sheets mirror (worker)
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	MirrorQueue              string

	// Mutating requests allowed per client per minute
	RateLimitPerMinute int

	LogLevel string
}

var (
	validBackends  = []string{"memory", "sqlite", "postgres"}
	validProviders = []string{"google", "static"}
)

const minSessionSecret = 32

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		Namespace: getEnv("APP_NAMESPACE", ""),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bilancio.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bilancio.changes"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),

		AuthProvider:          getEnv("AUTH_PROVIDER", "static"),
		GoogleOAuthClientID:   getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleOAuthSecret:     getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		GoogleOAuthRedirect:   getEnv("GOOGLE_OAUTH_REDIRECT_URL", ""),
		StaticPrincipalID:     getEnv("STATIC_PRINCIPAL_ID", "dev"),
		StaticPrincipalName:   getEnv("STATIC_PRINCIPAL_NAME", "Developer"),
		StaticPrincipalAvatar: getEnv("STATIC_PRINCIPAL_AVATAR", ""),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),

		AdviceAPIKey:   getEnv("ADVICE_API_KEY", ""),
		AdviceEndpoint: getEnv("ADVICE_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		AdviceModel:    getEnv("ADVICE_MODEL", "gemini-1.5-flash"),
		AdviceTimeout:  getEnvDuration("ADVICE_TIMEOUT", 30*time.Second),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		MirrorQueue:              getEnv("MIRROR_QUEUE", "bilancio.mirror"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks everything the server needs and returns a *core.ConfigError listing every problem.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.Namespace) == "" {
		problems = append(problems, "APP_NAMESPACE is required")
	} else if strings.Contains(c.Namespace, "/") {
		problems = append(problems, fmt.Sprintf("invalid namespace '%s': must not contain '/'", c.Namespace))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using postgres backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validProviders, c.AuthProvider) {
		problems = append(problems, fmt.Sprintf("invalid auth provider '%s': must be one of %v", c.AuthProvider, validProviders))
	}
	switch c.AuthProvider {
	case "google":
		if c.GoogleOAuthClientID == "" || c.GoogleOAuthSecret == "" {
			problems = append(problems, "GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET are required for google auth")
		}
		if c.GoogleOAuthRedirect == "" {
			problems = append(problems, "GOOGLE_OAUTH_REDIRECT_URL is required for google auth")
		}
	case "static":
		if c.StaticPrincipalID == "" {
			problems = append(problems, "STATIC_PRINCIPAL_ID cannot be empty for static auth")
		}
	}

	if len(c.SessionSecret) < minSessionSecret {
		problems = append(problems, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", minSessionSecret))
	}
	if c.SessionTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.AdviceAPIKey != "" {
		if u, err := url.Parse(c.AdviceEndpoint); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			problems = append(problems, fmt.Sprintf("invalid advice endpoint '%s'", c.AdviceEndpoint))
		}
		if c.AdviceModel == "" {
			problems = append(problems, "ADVICE_MODEL cannot be empty when ADVICE_API_KEY is set")
		}
	}
	if c.AdviceTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid advice timeout %v: must be at least 1 second", c.AdviceTimeout))
	}

	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if len(problems) > 0 {
		return &core.ConfigError{Problems: problems}
	}
	return nil
}

// ValidateWorker checks what the mirror worker needs.
func (c *Config) ValidateWorker() error {
	var problems []string
	if strings.TrimSpace(c.Namespace) == "" {
		problems = append(problems, "APP_NAMESPACE is required")
	}
	if c.AMQPURL == "" {
		problems = append(problems, "AMQP_URL is required for the mirror worker")
	}
	if c.MirrorQueue == "" {
		problems = append(problems, "MIRROR_QUEUE cannot be empty")
	}
	if c.DataBackend == "memory" {
		problems = append(problems, "the mirror worker needs a shared backend (sqlite or postgres)")
	}
	if c.GoogleSpreadsheetID == "" {
		problems = append(problems, "GOOGLE_SPREADSHEET_ID is required for the mirror worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		problems = append(problems, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(problems) > 0 {
		return &core.ConfigError{Problems: problems}
	}
	return nil
}

// AdviceEnabled reports whether an advice service is configured.
func (c *Config) AdviceEnabled() bool {
	return c.AdviceAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
