package models

import "time"

// VerificationRecord хранит ожидающий подтверждения код для одного номера.
// Хранится только хэш кода.
type VerificationRecord struct {
	Phone       string    `json:"phone"`
	CodeHash    []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	ClientIP    string    `json:"-"`
}

// Expired сообщает, истёк ли код к моменту now.
func (r *VerificationRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Exhausted сообщает, исчерпаны ли попытки ввода.
func (r *VerificationRecord) Exhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

// RemainingAttempts возвращает оставшееся число попыток.
func (r *VerificationRecord) RemainingAttempts() int {
	if left := r.MaxAttempts - r.Attempts; left > 0 {
		return left
	}
	return 0
}

// RateLimitRecord хранит счётчик отправок в текущем окне.
type RateLimitRecord struct {
	Count         int       `json:"count"`
	WindowResetAt time.Time `json:"window_reset_at"`
}

// DeliveryResult описывает итог отправки сообщения провайдером. Не сохраняется как есть.
type DeliveryResult struct {
	Success        bool    `json:"success"`
	Provider       string  `json:"provider"`
	MessageID      string  `json:"message_id"`
	Status         string  `json:"status,omitempty"`
	Cost           float64 `json:"cost"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	Note           string  `json:"note,omitempty"`
}
