// File: internal/services/reconciliation/errors.go
package reconciliation

import (
	"fmt"
	"time"
)

type ErrorKind string

const (
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindInvalidFormat        ErrorKind = "INVALID_FORMAT"
	KindExpired              ErrorKind = "EXPIRED"
	KindAlreadyUsed          ErrorKind = "ALREADY_USED"
	KindAlreadyVerified      ErrorKind = "ALREADY_VERIFIED"
	KindNoChallenge          ErrorKind = "NO_CHALLENGE"
	KindRateLimited          ErrorKind = "RATE_LIMITED"
	KindValidationFailed     ErrorKind = "VALIDATION_FAILED"
	KindDispatchFailed       ErrorKind = "DISPATCH_FAILED"
	KindConflict             ErrorKind = "CONFLICT"
	KindLocked               ErrorKind = "LOCKED"
	KindVerificationRequired ErrorKind = "VERIFICATION_REQUIRED"
	KindVerificationFailed   ErrorKind = "VERIFICATION_FAILED"
)

// Error is what every operation of this package returns. Message is safe to
// show to the counter-party; Cause is for logs only.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind, so errors.Is(err, ErrExpired) holds for any expiry
// error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "Mutabakat bağlantısı bulunamadı."}
	ErrInvalidFormat        = &Error{Kind: KindInvalidFormat, Message: "Geçersiz format."}
	ErrExpired              = &Error{Kind: KindExpired, Message: "Bağlantının süresi dolmuş."}
	ErrAlreadyUsed          = &Error{Kind: KindAlreadyUsed, Message: "Bu bağlantı daha önce kullanılmış."}
	ErrAlreadyVerified      = &Error{Kind: KindAlreadyVerified, Message: "Doğrulama zaten tamamlanmış."}
	ErrNoChallenge          = &Error{Kind: KindNoChallenge, Message: "Geçerli bir doğrulama kodu bulunamadı. Lütfen yeni kod isteyin."}
	ErrRateLimited          = &Error{Kind: KindRateLimited, Message: "Çok fazla istek gönderildi. Lütfen daha sonra tekrar deneyin."}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed, Message: "Zorunlu alanlar eksik."}
	ErrDispatchFailed       = &Error{Kind: KindDispatchFailed, Message: "Doğrulama kodu gönderilemedi. Lütfen tekrar deneyin."}
	ErrConflict             = &Error{Kind: KindConflict, Message: "İşlem zaten yapılmış."}
	ErrLocked               = &Error{Kind: KindLocked, Message: "Çok fazla hatalı deneme. Doğrulama geçici olarak kilitlendi."}
	ErrVerificationRequired = &Error{Kind: KindVerificationRequired, Message: "Yanıt vermeden önce kimlik doğrulaması gerekli."}
	ErrVerificationFailed   = &Error{Kind: KindVerificationFailed, Message: "Doğrulama bilgisi hatalı."}
)

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(base *Error, cause error) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Cause: cause}
}

func retryError(base *Error, retryAfter time.Duration) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, RetryAfter: retryAfter}
}
