// File: internal/dtos/reconciliation.go
package dtos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RespondRequestDTO is the terminal submission payload.
// Dispute fields are only read when response_status is itiraz.
type RespondRequestDTO struct {
	ResponseStatus   string       `json:"response_status"`
	ResponseNote     string       `json:"response_note"`
	DisputedAmount   AmountString `json:"disputed_amount"`
	DisputedCurrency string       `json:"disputed_currency"`
}

// RespondResponseDTO is returned when a response is recorded.
type RespondResponseDTO struct {
	Accepted bool `json:"accepted"`
}

// OtpVerifyRequestDTO carries the 6-digit code typed by the counter-party.
type OtpVerifyRequestDTO struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TaxVerifyRequestDTO carries the counter-party tax number (VKN or TCKN).
type TaxVerifyRequestDTO struct {
	TaxNumber string `json:"tax_number" validate:"required,min=10,max=14"`
}

type VerifyResponseDTO struct {
	Verified    bool `json:"verified"`
	OtpRequired bool `json:"otp_required,omitempty"`
}

type OtpIssueResponseDTO struct {
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	MaskedEmail      string `json:"masked_email"`
}

// ErrorResponseDTO is the body of every failed request.
type ErrorResponseDTO struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// AmountString accepts an amount sent either as a JSON number or a string
// and keeps its literal text for decimal parsing.
type AmountString string

func (a *AmountString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("disputed_amount must be a number or a string")
	}
	*a = AmountString(n.String())
	return nil
}

// Validate runs the struct tags on dto. It returns nil when dto is valid,
// otherwise a field → failed tag map.
func Validate(dto interface{}) map[string]string {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		out[ve.Field()] = ve.Tag()
	}
	return out
}
