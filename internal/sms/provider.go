// Package sms отправляет SMS через Twilio и подменяет его mock-провайдером,
// когда учётных данных нет или Twilio временно недоступен.
package sms

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/twilio/twilio-go/client"

	"github.com/ignatzorin/corent-backend/internal/models"
)

// Message описывает исходящее сообщение. To уже в формате E.164.
type Message struct {
	To             string
	Body           string
	Purpose        string
	StatusCallback string
	// ValidityPeriod в секундах; 0 означает значение провайдера по умолчанию.
	ValidityPeriod int
}

// Provider отправляет одно сообщение.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (*models.DeliveryResult, error)
}

// Служебные ошибки API Twilio: авторизация, лимиты, недоступность сервиса.
const (
	twilioServiceCodeMin = 20000
	twilioServiceCodeMax = 20999
)

// IsTransient сообщает, можно ли заменить отказ провайдера отправкой через mock.
// Временными считаются служебные коды Twilio 20xxx, HTTP 429 и 5xx, таймауты и сетевые ошибки.
// Коды 21xxx (неверный номер, запрещённый получатель) и 30xxx постоянные.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		if restErr.Status == http.StatusTooManyRequests || restErr.Status >= http.StatusInternalServerError {
			return true
		}
		return restErr.Code >= twilioServiceCodeMin && restErr.Code <= twilioServiceCodeMax
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// FallbackPolicy решает, уходит ли ошибка основного провайдера в mock.
type FallbackPolicy func(err error) bool

// DefaultFallbackPolicy включает fallback только для временных ошибок.
var DefaultFallbackPolicy FallbackPolicy = IsTransient
