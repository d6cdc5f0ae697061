package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/pkg/apperror"
	"github.com/ignatzorin/corent-backend/internal/repository"
	"github.com/ignatzorin/corent-backend/internal/validation"
)

// EventSMSStatus отправляется по WebSocket при изменении статуса доставки.
const EventSMSStatus = "sms_status"

// SMSMessageStore хранит журнал доставки.
type SMSMessageStore interface {
	Create(ctx context.Context, msg *models.SMSMessage) error
	UpdateStatus(ctx context.Context, upd models.SMSStatusUpdate) (*models.SMSMessage, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.SMSMessage, error)
}

// EventBroadcaster рассылает события подписчикам WebSocket.
type EventBroadcaster interface {
	Broadcast(event string, data any) error
}

// DeliveryRecorder сохраняет результат отправки.
type DeliveryRecorder interface {
	Record(ctx context.Context, phone, purpose string, res *models.DeliveryResult)
}

// DeliveryLogService ведёт журнал SMS и обрабатывает callback-и провайдера.
type DeliveryLogService struct {
	repo SMSMessageStore
	hub  EventBroadcaster
	now  func() time.Time
}

func NewDeliveryLogService(repo SMSMessageStore, hub EventBroadcaster) *DeliveryLogService {
	return &DeliveryLogService{repo: repo, hub: hub, now: time.Now}
}

// Record пишет отправку в журнал. Ошибка журнала не влияет на результат отправки.
func (s *DeliveryLogService) Record(ctx context.Context, phone, purpose string, res *models.DeliveryResult) {
	if res == nil || res.MessageID == "" {
		return
	}

	msg := &models.SMSMessage{
		MessageID:      res.MessageID,
		PhoneMasked:    validation.MaskPhone(phone),
		Provider:       res.Provider,
		Purpose:        purpose,
		Status:         firstNonEmpty(res.Status, models.SMSStatusSent),
		Cost:           res.Cost,
		ResponseTimeMs: res.ResponseTimeMs,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		logger.Error(err, logrus.Fields{"message_id": res.MessageID, "op": "sms_log_create"})
	}
}

// HandleStatusCallback обновляет статус сообщения и рассылает его подписчикам.
// Неизвестный message id не считается ошибкой: провайдер не должен повторять callback.
func (s *DeliveryLogService) HandleStatusCallback(ctx context.Context, upd models.SMSStatusUpdate) (*models.SMSMessage, error) {
	upd.MessageID = strings.TrimSpace(upd.MessageID)
	upd.Status = strings.ToLower(strings.TrimSpace(upd.Status))
	if upd.MessageID == "" || upd.Status == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "MessageSid и MessageStatus обязательны")
	}

	msg, err := s.repo.UpdateStatus(ctx, upd)
	if err != nil && !errors.Is(err, repository.ErrSMSMessageNotFound) {
		return nil, apperror.NewInternal(err)
	}

	fields := logrus.Fields{
		"message_id": upd.MessageID,
		"status":     upd.Status,
	}
	if upd.ErrorCode != "" {
		fields["error_code"] = upd.ErrorCode
	}
	if msg == nil {
		fields["unknown_message"] = true
	}
	logger.SMS("sms_status_callback", fields)

	if s.hub != nil {
		event := map[string]any{
			"messageId": upd.MessageID,
			"status":    upd.Status,
			"timestamp": s.now().UTC(),
		}
		if upd.ErrorCode != "" {
			event["errorCode"] = upd.ErrorCode
		}
		if msg != nil {
			event["phone"] = msg.PhoneMasked
			event["purpose"] = msg.Purpose
			event["provider"] = msg.Provider
		}
		if err := s.hub.Broadcast(EventSMSStatus, event); err != nil {
			logger.Error(err, logrus.Fields{"op": "sms_status_broadcast"})
		}
	}

	return msg, nil
}

// Get возвращает запись журнала по идентификатору сообщения провайдера.
func (s *DeliveryLogService) Get(ctx context.Context, messageID string) (*models.SMSMessage, error) {
	msg, err := s.repo.GetByMessageID(ctx, strings.TrimSpace(messageID))
	if err != nil {
		if errors.Is(err, repository.ErrSMSMessageNotFound) {
			return nil, apperror.ErrSMSMessageNotFound
		}
		return nil, apperror.NewInternal(err)
	}
	return msg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
