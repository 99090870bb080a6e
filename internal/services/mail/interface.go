// File: internal/services/mail/interface.go
package mail

import "context"

// Message is a single outbound email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

type Provider interface {
	Send(ctx context.Context, msg *Message) error
	HealthCheck(ctx context.Context) error
}
