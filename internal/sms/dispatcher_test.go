package sms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twilio/twilio-go/client"

	"github.com/ignatzorin/corent-backend/internal/models"
)

// stubProvider отвечает заранее заданной ошибкой или результатом.
type stubProvider struct {
	name  string
	err   error
	delay time.Duration
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Send(ctx context.Context, msg Message) (*models.DeliveryResult, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &models.DeliveryResult{Success: true, Provider: p.name, MessageID: "SM123"}, nil
}

var testMessage = Message{To: "+15551234567", Body: "Your verification code is: 123456", Purpose: "verification"}

func TestDispatcher_PrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: models.ProviderTwilio}
	d := NewDispatcher(primary, time.Second)

	res, err := d.Send(context.Background(), testMessage)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTwilio, res.Provider)
	assert.Equal(t, "SM123", res.MessageID)
	assert.Empty(t, res.Note)
	assert.Equal(t, models.ProviderTwilio, d.ProviderName())
}

func TestDispatcher_TransientErrorFallsBackToMock(t *testing.T) {
	primary := &stubProvider{
		name: models.ProviderTwilio,
		err:  &client.TwilioRestError{Code: 20429, Status: 429, Message: "Too Many Requests"},
	}
	d := NewDispatcher(primary, time.Second)

	res, err := d.Send(context.Background(), testMessage)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, models.ProviderFallback, res.Provider)
	assert.NotEmpty(t, res.Note)
	assert.Contains(t, res.MessageID, "mock_")
}

func TestDispatcher_PermanentErrorFails(t *testing.T) {
	primary := &stubProvider{
		name: models.ProviderTwilio,
		err:  &client.TwilioRestError{Code: 21211, Status: 400, Message: "Invalid 'To' Phone Number"},
	}
	d := NewDispatcher(primary, time.Second)

	res, err := d.Send(context.Background(), testMessage)
	assert.Nil(t, res)
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("ожидали ErrDeliveryFailed, получили %v", err)
	}
	assert.Contains(t, err.Error(), "Invalid 'To' Phone Number")
}

func TestDispatcher_TimeoutFallsBack(t *testing.T) {
	primary := &stubProvider{name: models.ProviderTwilio, delay: time.Second}
	d := NewDispatcher(primary, 20*time.Millisecond)

	res, err := d.Send(context.Background(), testMessage)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderFallback, res.Provider)
}

func TestDispatcher_CustomPolicy(t *testing.T) {
	primary := &stubProvider{name: models.ProviderTwilio, err: errors.New("boom")}
	d := NewDispatcher(primary, time.Second).WithFallbackPolicy(func(error) bool { return true })

	res, err := d.Send(context.Background(), testMessage)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderFallback, res.Provider)
}

func TestDispatcher_MockPrimaryHasNoFallback(t *testing.T) {
	primary := &stubProvider{name: models.ProviderMock, err: context.DeadlineExceeded}
	d := NewDispatcher(primary, time.Second)

	_, err := d.Send(context.Background(), testMessage)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 1, primary.calls)
}

func TestDispatcher_RejectsNonE164(t *testing.T) {
	primary := &stubProvider{name: models.ProviderTwilio}
	d := NewDispatcher(primary, time.Second)

	msg := testMessage
	msg.To = "5551234567"
	_, err := d.Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Zero(t, primary.calls, "провайдер не вызывается")
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("twilio: %w", context.DeadlineExceeded), true},
		{"rate limited", &client.TwilioRestError{Code: 20429, Status: 429}, true},
		{"server error", &client.TwilioRestError{Code: 30001, Status: 503}, true},
		{"service code", &client.TwilioRestError{Code: 20003, Status: 401}, true},
		{"invalid number", &client.TwilioRestError{Code: 21211, Status: 400}, false},
		{"unsubscribed recipient", &client.TwilioRestError{Code: 21610, Status: 400}, false},
		{"unreachable", &client.TwilioRestError{Code: 30003, Status: 400}, false},
		{"network", &net.DNSError{Err: "no such host", Name: "api.twilio.com", IsTimeout: true}, true},
		{"plain", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestMockProvider_Send(t *testing.T) {
	p := NewMockProvider()

	first, err := p.Send(context.Background(), testMessage)
	require.NoError(t, err)
	second, err := p.Send(context.Background(), testMessage)
	require.NoError(t, err)

	assert.Equal(t, models.ProviderMock, first.Provider)
	assert.Equal(t, models.SMSStatusSent, first.Status)
	assert.NotEqual(t, first.MessageID, second.MessageID, "идентификаторы mock-сообщений уникальны")
}
