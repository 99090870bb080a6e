// File: internal/services/reconciliation/config.go
package reconciliation

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	OtpTTL            time.Duration // validity of an issued code
	MaxOtpAttempts    int           // failed verifications before the lock
	LockoutDuration   time.Duration
	DefaultCodePrefix string // used when a company has no reconciliation code prefix
	OtpHashCost       int    // bcrypt cost for codes at rest

	Now func() time.Time
}

func DefaultConfig() *Config {
	return &Config{
		OtpTTL:            5 * time.Minute,
		MaxOtpAttempts:    5,
		LockoutDuration:   15 * time.Minute,
		DefaultCodePrefix: "MUT",
		OtpHashCost:       bcrypt.DefaultCost,
		Now:               time.Now,
	}
}

func (c *Config) Validate() error {
	if c.OtpTTL <= 0 {
		return fmt.Errorf("otp ttl must be positive")
	}
	if c.MaxOtpAttempts < 1 {
		return fmt.Errorf("max otp attempts must be at least 1")
	}
	if c.LockoutDuration <= 0 {
		return fmt.Errorf("lockout duration must be positive")
	}
	if c.DefaultCodePrefix == "" {
		return fmt.Errorf("default code prefix is required")
	}
	if c.OtpHashCost < bcrypt.MinCost || c.OtpHashCost > bcrypt.MaxCost {
		return fmt.Errorf("otp hash cost out of range")
	}
	return nil
}

func (c *Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
