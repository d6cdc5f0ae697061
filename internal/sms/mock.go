package sms

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/validation"
)

// MockProvider ничего не отправляет: пишет сообщение в лог и сразу отвечает успехом.
type MockProvider struct {
	now func() time.Time
}

func NewMockProvider() *MockProvider {
	return &MockProvider{now: time.Now}
}

func (p *MockProvider) Name() string { return models.ProviderMock }

func (p *MockProvider) Send(_ context.Context, msg Message) (*models.DeliveryResult, error) {
	start := p.now()
	id := "mock_" + uuid.NewString()

	// Тело в лог не пишем: в нём код подтверждения.
	logger.SMS("mock_sms_sent", logrus.Fields{
		"phone":      validation.MaskPhone(msg.To),
		"purpose":    msg.Purpose,
		"message_id": id,
	})

	return &models.DeliveryResult{
		Success:        true,
		Provider:       models.ProviderMock,
		MessageID:      id,
		Status:         models.SMSStatusSent,
		ResponseTimeMs: p.now().Sub(start).Milliseconds(),
	}, nil
}
