package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/config"
	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/pkg/apperror"
	"github.com/ignatzorin/corent-backend/internal/pkg/keylock"
	"github.com/ignatzorin/corent-backend/internal/repository"
	"github.com/ignatzorin/corent-backend/internal/sms"
	"github.com/ignatzorin/corent-backend/internal/validation"
)

// SMSSender отправляет SMS; реализуется sms.Dispatcher.
type SMSSender interface {
	Send(ctx context.Context, msg sms.Message) (*models.DeliveryResult, error)
}

// InviteTokenParser проверяет токен приглашения.
type InviteTokenParser interface {
	ParseInvite(token string) (*InviteClaims, error)
}

// InvitationAcceptor переводит приглашение в Accepted.
type InvitationAcceptor interface {
	Accept(ctx context.Context, id uuid.UUID, at time.Time) (*models.Invitation, error)
}

// VerificationConfig задаёт параметры жизненного цикла кода.
type VerificationConfig struct {
	CodeTTL           time.Duration
	MaxAttempts       int
	MinResendInterval time.Duration
	DefaultCountry    string
	RateLimit         repository.RateLimitRule
	ExposeMockCode    bool
	// StatusCallbackURL передаётся провайдеру, если задан.
	StatusCallbackURL string
}

// NewVerificationConfig собирает параметры из конфигурации приложения.
func NewVerificationConfig(cfg *config.Config) VerificationConfig {
	vc := VerificationConfig{
		CodeTTL:           cfg.SMS.CodeTTL,
		MaxAttempts:       cfg.SMS.MaxAttempts,
		MinResendInterval: cfg.SMS.MinResendInterval,
		DefaultCountry:    cfg.SMS.DefaultCountry,
		RateLimit:         repository.RateLimitRule{Limit: cfg.SMS.RateLimit, Window: cfg.SMS.Cooldown},
		ExposeMockCode:    cfg.SMS.ExposeMockCode,
	}
	if cfg.PublicBaseURL != "" {
		vc.StatusCallbackURL = cfg.PublicBaseURL + "/api/auth/sms/status-callback"
	}
	return vc
}

// SendCodeInput описывает запрос на отправку или повторную отправку кода.
type SendCodeInput struct {
	Phone       string
	InviteToken string
	ClientIP    string
}

// SendCodeResult описывает итог отправки кода.
type SendCodeResult struct {
	Phone       string
	SMSSent     bool
	Provider    string
	MessageID   string
	ExpiresIn   int
	ExpiresAt   time.Time
	Note        string
	MockMessage string
}

// VerifyCodeInput содержит код, введённый пользователем.
type VerifyCodeInput struct {
	Phone       string
	Code        string
	InviteToken string
	ClientIP    string
}

// VerifyCodeResult описывает успешное подтверждение номера.
type VerifyCodeResult struct {
	Phone        string
	VerifiedAt   time.Time
	InvitationID *uuid.UUID
}

// VerificationStats показывает состояние хранилищ для админского эндпоинта.
type VerificationStats struct {
	ActiveVerifications int
	RateLimitEntries    int
	Timestamp           time.Time
}

// VerificationService управляет жизненным циклом SMS-кодов.
// Send, Verify и Resend для одного номера выполняются строго по очереди.
type VerificationService struct {
	store       repository.VerificationStore
	limiter     repository.RateLimiter
	sender      SMSSender
	hasher      CodeHasher
	invites     InviteTokenParser
	invitations InvitationAcceptor
	deliveries  DeliveryRecorder
	locks       *keylock.Locker
	cfg         VerificationConfig
	now         func() time.Time
	generate    func() (string, error)
}

// NewVerificationService создаёт сервис.
func NewVerificationService(
	store repository.VerificationStore,
	limiter repository.RateLimiter,
	sender SMSSender,
	hasher CodeHasher,
	cfg VerificationConfig,
) *VerificationService {
	return &VerificationService{
		store:    store,
		limiter:  limiter,
		sender:   sender,
		hasher:   hasher,
		locks:    keylock.New(),
		cfg:      cfg,
		now:      time.Now,
		generate: GenerateCode,
	}
}

// SetInvitations подключает проверку токенов приглашения и их принятие.
func (s *VerificationService) SetInvitations(parser InviteTokenParser, acceptor InvitationAcceptor) {
	s.invites = parser
	s.invitations = acceptor
}

// SetDeliveryRecorder подключает журнал доставки.
func (s *VerificationService) SetDeliveryRecorder(rec DeliveryRecorder) {
	s.deliveries = rec
}

// SetClock заменяет источник времени (тесты).
func (s *VerificationService) SetClock(now func() time.Time) {
	s.now = now
}

// SendCode выдаёт новый код и отправляет его на номер.
func (s *VerificationService) SendCode(ctx context.Context, in SendCodeInput) (*SendCodeResult, error) {
	phone, err := s.prepare(in.Phone, in.InviteToken)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(phone)
	defer unlock()

	return s.sendLocked(ctx, phone, in.ClientIP)
}

// ResendCode отправляет новый код, если с прошлой отправки прошло не меньше MinResendInterval.
func (s *VerificationService) ResendCode(ctx context.Context, in SendCodeInput) (*SendCodeResult, error) {
	phone, err := s.prepare(in.Phone, in.InviteToken)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(phone)
	defer unlock()

	existing, err := s.store.Get(ctx, phone)
	if err != nil {
		return nil, s.internal(err, "resend_get", phone)
	}
	if existing != nil {
		elapsed := s.now().Sub(existing.CreatedAt)
		if elapsed < s.cfg.MinResendInterval {
			wait := s.cfg.MinResendInterval - elapsed
			logger.Security("resend_too_frequent", logrus.Fields{
				"phone":       validation.MaskPhone(phone),
				"ip":          in.ClientIP,
				"retry_after": apperror.RetrySeconds(wait),
			})
			return nil, apperror.NewResendTooFrequent(wait)
		}
		if err := s.store.Delete(ctx, phone); err != nil {
			return nil, s.internal(err, "resend_delete", phone)
		}
	}

	return s.sendLocked(ctx, phone, in.ClientIP)
}

// VerifyCode проверяет код. Отсутствующий, истёкший и исчерпанный код неразличимы
// для клиента и дают CodeNotFound.
func (s *VerificationService) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeResult, error) {
	phone, err := s.prepare(in.Phone, in.InviteToken)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(phone)
	defer unlock()

	start := s.now()
	fields := logrus.Fields{
		"phone": validation.MaskPhone(phone),
		"ip":    in.ClientIP,
	}

	rec, err := s.store.Get(ctx, phone)
	if err != nil {
		return nil, s.internal(err, "verify_get", phone)
	}
	if rec == nil {
		logger.Security("verification_code_not_found", fields)
		return nil, apperror.ErrVerificationNotFound
	}

	if !s.hasher.Compare(rec.CodeHash, in.Code) {
		remaining, err := s.store.RecordFailedAttempt(ctx, phone)
		if errors.Is(err, repository.ErrVerificationRecordNotFound) {
			logger.Security("verification_code_not_found", fields)
			return nil, apperror.ErrVerificationNotFound
		}
		if err != nil {
			return nil, s.internal(err, "verify_record_attempt", phone)
		}

		fields["remaining_attempts"] = remaining
		logger.Security("verification_code_mismatch", fields)
		return nil, apperror.NewInvalidCode(remaining)
	}

	// Между Get и этой точкой запись мог погасить или заменить другой экземпляр.
	consumed, err := s.store.Consume(ctx, phone, rec.CreatedAt)
	if err != nil {
		return nil, s.internal(err, "verify_consume", phone)
	}
	if !consumed {
		logger.Security("verification_code_not_found", fields)
		return nil, apperror.ErrVerificationNotFound
	}

	now := s.now()
	res := &VerifyCodeResult{Phone: phone, VerifiedAt: now}
	if in.InviteToken != "" {
		res.InvitationID = s.acceptInvitation(ctx, in.InviteToken, now)
	}

	fields["verification_time_ms"] = now.Sub(rec.CreatedAt).Milliseconds()
	logger.Auth("sms_verification_success", fields)
	logger.Performance("sms_verification", now.Sub(start), logrus.Fields{"success": true})

	return res, nil
}

// Stats возвращает размеры хранилищ.
func (s *VerificationService) Stats(ctx context.Context) (*VerificationStats, error) {
	active, err := s.store.Len(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	limits, err := s.limiter.Len(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return &VerificationStats{
		ActiveVerifications: active,
		RateLimitEntries:    limits,
		Timestamp:           s.now(),
	}, nil
}

// prepare нормализует номер и проверяет токен приглашения, если он передан.
func (s *VerificationService) prepare(rawPhone, inviteToken string) (string, error) {
	phone, err := validation.NormalizePhone(rawPhone, s.cfg.DefaultCountry)
	if err != nil {
		return "", apperror.ErrInvalidPhone
	}

	if inviteToken != "" {
		if s.invites == nil {
			return "", apperror.ErrInvalidInviteToken
		}
		if _, err := s.invites.ParseInvite(inviteToken); err != nil {
			logger.Security("invalid_invite_token", logrus.Fields{"phone": validation.MaskPhone(phone)})
			return "", apperror.ErrInvalidInviteToken
		}
	}

	return phone, nil
}

// sendLocked вызывается под блокировкой номера.
func (s *VerificationService) sendLocked(ctx context.Context, phone, clientIP string) (*SendCodeResult, error) {
	start := s.now()
	masked := validation.MaskPhone(phone)

	decision, err := s.limiter.Allow(ctx, repository.RateLimitKey{Phone: phone, Action: models.ActionVerification}, s.cfg.RateLimit)
	if err != nil {
		return nil, s.internal(err, "rate_limit", phone)
	}
	if !decision.Allowed {
		logger.Security("sms_rate_limit_exceeded", logrus.Fields{
			"phone":       masked,
			"ip":          clientIP,
			"action":      models.ActionVerification,
			"retry_after": apperror.RetrySeconds(decision.RetryAfter),
		})
		return nil, apperror.NewRateLimited(decision.RetryAfter, s.cfg.RateLimit.Limit, s.cfg.RateLimit.Window)
	}

	code, err := s.generate()
	if err != nil {
		return nil, s.internal(err, "generate_code", phone)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, s.internal(err, "hash_code", phone)
	}

	now := s.now()
	rec := &models.VerificationRecord{
		Phone:       phone,
		CodeHash:    hash,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.CodeTTL),
		Attempts:    0,
		MaxAttempts: s.cfg.MaxAttempts,
		ClientIP:    clientIP,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, s.internal(err, "store_put", phone)
	}

	result, err := s.sender.Send(ctx, sms.Message{
		To:             phone,
		Body:           verificationMessage(code, s.cfg.CodeTTL),
		Purpose:        models.SMSPurposeVerification,
		StatusCallback: s.cfg.StatusCallbackURL,
		ValidityPeriod: int(s.cfg.CodeTTL.Seconds()),
	})
	if err != nil {
		// Код, который никто не получил, не должен оставаться активным.
		if derr := s.store.Delete(ctx, phone); derr != nil {
			logger.Error(derr, logrus.Fields{"op": "store_delete_after_failure", "phone": masked})
		}
		if errors.Is(err, sms.ErrDeliveryFailed) {
			return nil, apperror.Wrap(err, apperror.ErrCodeDeliveryFailed, apperror.ErrDeliveryFailed.Message)
		}
		return nil, s.internal(err, "sms_send", phone)
	}

	if s.deliveries != nil {
		s.deliveries.Record(ctx, phone, models.SMSPurposeVerification, result)
	}

	logger.Auth("verification_code_sent", logrus.Fields{
		"phone":            masked,
		"provider":         result.Provider,
		"message_id":       result.MessageID,
		"cost":             result.Cost,
		"response_time_ms": result.ResponseTimeMs,
		"ip":               clientIP,
	})
	logger.Performance("sms_send", s.now().Sub(start), logrus.Fields{"provider": result.Provider, "success": true})

	out := &SendCodeResult{
		Phone:     phone,
		SMSSent:   result.Success,
		Provider:  result.Provider,
		MessageID: result.MessageID,
		ExpiresIn: int(s.cfg.CodeTTL.Seconds()),
		ExpiresAt: rec.ExpiresAt,
		Note:      result.Note,
	}
	if s.cfg.ExposeMockCode && result.Provider != models.ProviderTwilio {
		out.MockMessage = fmt.Sprintf("Код подтверждения: %s (тестовая отправка)", code)
	}
	return out, nil
}

// acceptInvitation отмечает приглашение принятым. Ошибки только логируются:
// номер уже подтверждён, и результат проверки кода от них не зависит.
func (s *VerificationService) acceptInvitation(ctx context.Context, token string, at time.Time) *uuid.UUID {
	if s.invites == nil || s.invitations == nil {
		return nil
	}
	claims, err := s.invites.ParseInvite(token)
	if err != nil {
		return nil
	}
	id, err := claims.InvitationID()
	if err != nil {
		return nil
	}
	if _, err := s.invitations.Accept(ctx, id, at); err != nil {
		logger.Error(err, logrus.Fields{"op": "accept_invitation", "invitation_id": id})
		return nil
	}
	return &id
}

func (s *VerificationService) internal(err error, op, phone string) error {
	logger.Error(err, logrus.Fields{
		"op":    op,
		"phone": validation.MaskPhone(phone),
	})
	return apperror.NewInternal(err)
}

func verificationMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		"Ваш код подтверждения: %s. Код действует %d мин. Если вы не запрашивали код, проигнорируйте это сообщение.",
		code, int(ttl.Minutes()),
	)
}
