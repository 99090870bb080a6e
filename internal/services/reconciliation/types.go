// File: internal/services/reconciliation/types.go
package reconciliation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Logger interface for reconciliation services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// OtpMailer is the mail collaborator used to deliver verification codes.
type OtpMailer interface {
	SendOtpEmail(ctx context.Context, toAddress, code, recipientName string) error
}

var (
	referenceCodePattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
	approvalTokenPattern = regexp.MustCompile(`^MUT-[A-Za-z0-9-]{8,120}$`)
	otpPattern           = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidReferenceCode reports whether code has the shape of an issued link code.
func ValidReferenceCode(code string) bool {
	return referenceCodePattern.MatchString(code)
}

// ValidApprovalToken reports whether token has the shape of a legacy approval token.
func ValidApprovalToken(token string) bool {
	return approvalTokenPattern.MatchString(token)
}

// NewReferenceCode returns 32 random bytes, hex encoded.
func NewReferenceCode() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reference code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewApprovalToken returns an opaque single-purpose token for the legacy flow.
func NewApprovalToken() string {
	return "MUT-" + uuid.NewString()
}

// MaskEmail keeps the first three characters of the local part:
// abcdef@domain.com → abc***@domain.com.
func MaskEmail(email string) string {
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	runes := []rune(local)
	keep := min(3, len(runes))
	return string(runes[:keep]) + "***@" + domainPart
}

// EffectiveCode is the display code of a link, e.g. MUT-12-7. It is not an
// identifier and is never accepted as input.
func EffectiveCode(companyPrefix, defaultPrefix string, reconciliationID uint, siraNo int) string {
	prefix := strings.TrimSpace(companyPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s-%d-%d", prefix, reconciliationID, siraNo)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
