// File: internal/services/mail/log_provider.go
package mail

import (
	"context"

	"github.com/iyunix/go-mutabakat/internal/services"
)

// LogProvider writes outgoing mail to the log instead of sending it. It is
// meant for local development only; the message body, which carries the
// code, is logged at debug level.
type LogProvider struct {
	logger services.Logger
}

func NewLogProvider(logger services.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return &MailError{Type: ErrTypeValidation, Message: "recipient is required"}
	}
	p.logger.Info("mail not sent, log provider active", "subject", msg.Subject)
	p.logger.Debug("mail body", "text", msg.TextBody)
	return nil
}

func (p *LogProvider) HealthCheck(ctx context.Context) error {
	return nil
}
