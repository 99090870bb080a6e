// File: internal/services/mail/config.go
package mail

import (
	"fmt"
	"time"
)

type Config struct {
	APIURL     string
	APIKey     string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("MAIL_API_URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("MAIL_API_KEY is required")
	}
	if c.FromEmail == "" {
		return fmt.Errorf("MAIL_FROM is required")
	}
	return nil
}

func (c *Config) retryConfig() *RetryConfig {
	rc := DefaultRetryConfig()
	if c.MaxRetries > 0 {
		rc.MaxAttempts = c.MaxRetries
	}
	if c.RetryDelay > 0 {
		rc.Delay = c.RetryDelay
	}
	return rc
}
