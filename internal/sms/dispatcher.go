package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/config"
	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/validation"
)

// ErrDeliveryFailed означает, что провайдер отказал и ошибка не временная.
var ErrDeliveryFailed = errors.New("sms delivery failed")

const fallbackNote = "Twilio временно недоступен, сообщение отправлено через mock"

// Dispatcher отправляет сообщение основным провайдером с ограничением по времени
// и при временной ошибке повторяет отправку через mock в рамках того же вызова.
type Dispatcher struct {
	primary  Provider
	fallback Provider
	policy   FallbackPolicy
	timeout  time.Duration
}

// NewDispatcher собирает диспетчер вокруг явно заданного провайдера.
func NewDispatcher(primary Provider, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		primary:  primary,
		fallback: NewMockProvider(),
		policy:   DefaultFallbackPolicy,
		timeout:  timeout,
	}
}

// NewDispatcherFromConfig выбирает Twilio, если учётные данные заданы, иначе mock.
func NewDispatcherFromConfig(cfg config.SMSConfig) *Dispatcher {
	var primary Provider = NewMockProvider()
	if cfg.TwilioConfigured() {
		primary = NewTwilioProvider(cfg.AccountSID, cfg.AuthToken, cfg.FromNumber)
	}

	logger.Log.WithField("provider", primary.Name()).Info("sms provider selected")
	return NewDispatcher(primary, cfg.ProviderTimeout)
}

// WithFallbackPolicy заменяет правило fallback.
func (d *Dispatcher) WithFallbackPolicy(policy FallbackPolicy) *Dispatcher {
	d.policy = policy
	return d
}

// ProviderName возвращает имя основного провайдера.
func (d *Dispatcher) ProviderName() string {
	return d.primary.Name()
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) (*models.DeliveryResult, error) {
	// Провайдеру уходят только номера, уже приведённые к E.164.
	if !validation.IsE164(msg.To) {
		return nil, fmt.Errorf("%w: номер %q не в формате E.164", ErrDeliveryFailed, validation.MaskPhone(msg.To))
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res, err := d.primary.Send(callCtx, msg)
	if err == nil {
		return res, nil
	}

	fields := logrus.Fields{
		"phone":    validation.MaskPhone(msg.To),
		"purpose":  msg.Purpose,
		"provider": d.primary.Name(),
		"error":    err.Error(),
	}

	if d.primary.Name() == d.fallback.Name() || d.policy == nil || !d.policy(err) {
		logger.SMS("sms_delivery_failed", fields)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	logger.SMS("sms_provider_fallback", fields)

	res, ferr := d.fallback.Send(ctx, msg)
	if ferr != nil {
		return nil, fmt.Errorf("%w: fallback: %v", ErrDeliveryFailed, ferr)
	}
	res.Provider = models.ProviderFallback
	res.Note = fallbackNote
	return res, nil
}
