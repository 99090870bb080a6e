// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort        string
	Environment       string
	LogLevel          string
	TrustProxyHeaders bool

	DBDriver string
	DBDSN    string

	// RedisAddress enables the shared rate limiter when set.
	RedisAddress  string
	RedisPassword string

	MailAPIURL   string
	MailAPIKey   string
	MailFrom     string
	MailFromName string
	MailTimeout  time.Duration

	OtpTTL            time.Duration
	OtpMaxAttempts    int
	OtpLockout        time.Duration
	RateLimitWindow   time.Duration
	RateLimitMax      int
	DefaultCodePrefix string
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if !isProduction(env) {
		if err := godotenv.Load(); err != nil {
			logrus.Info("No .env file found; continuing with environment variables")
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv builds the config from the current environment without loading
// .env or validating.
func FromEnv() *Config {
	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		Environment:       getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", false),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "mutabakat.db"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MailAPIURL:   getEnv("MAIL_API_URL", ""),
		MailAPIKey:   getEnv("MAIL_API_KEY", ""),
		MailFrom:     getEnv("MAIL_FROM", ""),
		MailFromName: getEnv("MAIL_FROM_NAME", "Mutabakat"),
		MailTimeout:  getEnvAsDuration("MAIL_TIMEOUT", 10*time.Second),

		OtpTTL:            getEnvAsDuration("OTP_TTL", 5*time.Minute),
		OtpMaxAttempts:    getEnvAsInt("OTP_MAX_ATTEMPTS", 5),
		OtpLockout:        getEnvAsDuration("OTP_LOCKOUT", 15*time.Minute),
		RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitMax:      getEnvAsInt("RATE_LIMIT_MAX", 5),
		DefaultCodePrefix: getEnv("DEFAULT_CODE_PREFIX", "MUT"),
	}
}

// Validate checks value ranges everywhere and, in production, the presence
// of the variables without usable defaults.
func (c *Config) Validate() error {
	if c.OtpTTL <= 0 || c.OtpLockout <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("OTP_TTL, OTP_LOCKOUT and RATE_LIMIT_WINDOW must be positive")
	}
	if c.OtpMaxAttempts < 1 || c.RateLimitMax < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS and RATE_LIMIT_MAX must be at least 1")
	}
	switch c.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if !c.IsProduction() {
		return nil
	}
	missing := []string{}
	if c.DBDriver == "sqlite" {
		missing = append(missing, "DB_DRIVER (sqlite is not allowed in production)")
	}
	if c.MailAPIURL == "" {
		missing = append(missing, "MAIL_API_URL")
	}
	if c.MailAPIKey == "" {
		missing = append(missing, "MAIL_API_KEY")
	}
	if c.MailFrom == "" {
		missing = append(missing, "MAIL_FROM")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required production environment variables: %v", missing)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

func isProduction(env string) bool {
	return strings.ToLower(env) == "production"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		logrus.Warnf("could not parse env var %s as integer, using default %d", key, defaultValue)
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		logrus.Warnf("could not parse env var %s as duration, using default %s", key, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return b
}
