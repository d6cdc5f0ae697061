package apperror

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidPhone       ErrorCode = "INVALID_PHONE"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeResendTooFrequent  ErrorCode = "RESEND_TOO_FREQUENT"
	ErrCodeCodeNotFound       ErrorCode = "CODE_NOT_FOUND"
	ErrCodeInvalidCode        ErrorCode = "INVALID_CODE"
	ErrCodeDeliveryFailed     ErrorCode = "DELIVERY_FAILED"
	ErrCodeInvalidInviteToken ErrorCode = "INVALID_INVITE_TOKEN"
)

// AppError описывает ошибку уровня приложения с кодом и HTTP статусом.
// RetryAfter и RemainingAttempts заполняются только для ошибок лимитов и неверного кода.
type AppError struct {
	Code              ErrorCode
	Message           string
	HTTPStatus        int
	Cause             error
	RetryAfter        int
	RemainingAttempts *int
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы работал errors.Is с шаблонными значениями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidPhone,
		ErrCodeCodeNotFound, ErrCodeInvalidCode, ErrCodeInvalidInviteToken:
		return http.StatusBadRequest
	case ErrCodeRateLimited, ErrCodeResendTooFrequent:
		return http.StatusTooManyRequests
	case ErrCodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RetrySeconds округляет длительность вверх до целых секунд (минимум 1).
func RetrySeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// NewRateLimited сообщает о превышении лимита отправок для номера.
func NewRateLimited(retryAfter time.Duration, limit int, window time.Duration) *AppError {
	e := New(ErrCodeRateLimited, fmt.Sprintf("не более %d кодов за %d секунд", limit, int(window.Seconds())))
	e.RetryAfter = RetrySeconds(retryAfter)
	return e
}

// NewResendTooFrequent сообщает о повторной отправке раньше минимального интервала.
func NewResendTooFrequent(retryAfter time.Duration) *AppError {
	e := New(ErrCodeResendTooFrequent, "повторная отправка слишком частая, попробуйте позже")
	e.RetryAfter = RetrySeconds(retryAfter)
	return e
}

// NewInvalidCode сообщает, что код не совпал и осталось remaining попыток.
func NewInvalidCode(remaining int) *AppError {
	e := New(ErrCodeInvalidCode, fmt.Sprintf("неверный код, осталось попыток: %d", remaining))
	e.RemainingAttempts = &remaining
	return e
}

// NewInternal оборачивает неожиданную ошибку; клиенту уходит только общее сообщение.
func NewInternal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "внутренняя ошибка сервера")
}

// HasCode проверяет код ошибки в цепочке.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

var (
	ErrInvalidPhone         = New(ErrCodeInvalidPhone, "некорректный номер телефона")
	ErrVerificationNotFound = New(ErrCodeCodeNotFound, "код не найден или истёк, запросите новый")
	ErrDeliveryFailed       = New(ErrCodeDeliveryFailed, "не удалось отправить сообщение, попробуйте позже")
	ErrInvalidInviteToken   = New(ErrCodeInvalidInviteToken, "приглашение недействительно или истекло")
	ErrSMSMessageNotFound   = New(ErrCodeNotFound, "сообщение не найдено")
)
