// File: internal/services/mail/otp_mailer.go
package mail

import (
	"context"
	"fmt"
	"html"
	"time"
)

// OtpMailer composes the verification-code email and hands it to a Provider.
type OtpMailer struct {
	provider Provider
	retry    *RetryConfig
	ttlLabel string
}

func NewOtpMailer(provider Provider, config *Config, ttlLabel string) *OtpMailer {
	return &OtpMailer{
		provider: provider,
		retry:    config.retryConfig(),
		ttlLabel: ttlLabel,
	}
}

// SendOtpEmail delivers code to toAddress. Any error means the code must be
// treated as not delivered.
func (m *OtpMailer) SendOtpEmail(ctx context.Context, toAddress, code, recipientName string) error {
	if toAddress == "" || code == "" {
		return &MailError{Type: ErrTypeValidation, Message: "recipient and code are required"}
	}

	greeting := "Sayın yetkili"
	if recipientName != "" {
		greeting = "Sayın " + recipientName
	}

	msg := &Message{
		To:      toAddress,
		ToName:  recipientName,
		Subject: "Mutabakat doğrulama kodunuz",
		TextBody: fmt.Sprintf("%s,\n\nMutabakat yanıtınızı tamamlamak için doğrulama kodunuz: %s\nKod %s geçerlidir.\n",
			greeting, code, m.ttlLabel),
		HTMLBody: fmt.Sprintf("<p>%s,</p><p>Mutabakat yanıtınızı tamamlamak için doğrulama kodunuz: <strong>%s</strong></p><p>Kod %s geçerlidir.</p>",
			html.EscapeString(greeting), html.EscapeString(code), html.EscapeString(m.ttlLabel)),
	}

	return RetryWithBackoff(ctx, m.retry, func(ctx context.Context) error {
		return m.provider.Send(ctx, msg)
	})
}

// ValidityLabel renders a code lifetime for the message body, e.g. "5 dakika".
// Partial minutes round up; lifetimes under a minute are given in seconds.
func ValidityLabel(ttl time.Duration) string {
	if ttl < time.Minute {
		return fmt.Sprintf("%d saniye", int((ttl+time.Second-1)/time.Second))
	}
	return fmt.Sprintf("%d dakika", int((ttl+time.Minute-1)/time.Minute))
}
