// File: internal/services/mail/http_provider.go
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// HTTPProvider posts messages as JSON to a transactional mail API.
type HTTPProvider struct {
	config *Config
	client *http.Client
}

func NewHTTPProvider(config *Config) *HTTPProvider {
	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type sendPayload struct {
	From     address   `json:"from"`
	To       []address `json:"to"`
	Subject  string    `json:"subject"`
	TextBody string    `json:"text"`
	HTMLBody string    `json:"html,omitempty"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (p *HTTPProvider) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return &MailError{Type: ErrTypeValidation, Message: "recipient is required"}
	}

	payload := sendPayload{
		From:     address{Email: p.config.FromEmail, Name: p.config.FromName},
		To:       []address{{Email: msg.To, Name: msg.ToName}},
		Subject:  msg.Subject,
		TextBody: msg.TextBody,
		HTMLBody: msg.HTMLBody,
	}
	return p.sendRequest(ctx, payload)
}

func (p *HTTPProvider) sendRequest(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &MailError{Type: ErrTypeValidation, Message: "invalid payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIURL, bytes.NewBuffer(body))
	if err != nil {
		return &MailError{Type: ErrTypeConfig, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return &MailError{Type: ErrTypeNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	return p.handleResponse(resp)
}

func (p *HTTPProvider) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusTooManyRequests {
		return &MailError{
			Type:    ErrTypeRateLimit,
			Code:    resp.StatusCode,
			Message: "rate limit exceeded",
		}
	}

	return &MailError{
		Type:    ErrTypeProvider,
		Code:    resp.StatusCode,
		Message: string(responseBody),
	}
}

func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	return p.config.Validate()
}
