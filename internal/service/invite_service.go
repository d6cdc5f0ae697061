package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/mail"
	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/pkg/apperror"
	"github.com/ignatzorin/corent-backend/internal/repository"
	"github.com/ignatzorin/corent-backend/internal/sms"
	"github.com/ignatzorin/corent-backend/internal/validation"
)

// EventInvitationAccepted отправляется пригласившему, когда приглашение принято.
const EventInvitationAccepted = "invitation_accepted"

// InvitationStore хранит приглашения.
type InvitationStore interface {
	Create(ctx context.Context, inv *models.Invitation) error
	Accept(ctx context.Context, id uuid.UUID, at time.Time) (*models.Invitation, error)
	ListByInviter(ctx context.Context, inviterID uuid.UUID) ([]models.Invitation, error)
}

// InviteTokenIssuer выпускает и проверяет токены приглашений.
type InviteTokenIssuer interface {
	IssueInvite(invitationID, inviterID uuid.UUID, name, email, phone string) (string, time.Time, error)
	ParseInvite(token string) (*InviteClaims, error)
}

// UserNotifier доставляет событие конкретному пользователю.
type UserNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// InviteConfig задаёт параметры приглашений.
type InviteConfig struct {
	AppURL         string
	TokenTTL       time.Duration
	DefaultCountry string
	RateLimit      repository.RateLimitRule
}

// InviteInput описывает приглашаемого. Нужен хотя бы один канал: email или телефон.
type InviteInput struct {
	Name     string
	Email    string
	Phone    string
	ClientIP string
}

// InviteResult содержит созданное приглашение и итог доставки по каналам.
type InviteResult struct {
	Invitation  *models.Invitation
	InviteToken string
	InviteLink  string
	SMS         *models.DeliveryResult
	EmailSent   bool
}

// InviteService приглашает участников по SMS и email.
type InviteService struct {
	repo       InvitationStore
	tokens     InviteTokenIssuer
	limiter    repository.RateLimiter
	sender     SMSSender
	mailer     mail.Sender
	deliveries DeliveryRecorder
	notifier   UserNotifier
	cfg        InviteConfig
	now        func() time.Time
}

func NewInviteService(
	repo InvitationStore,
	tokens InviteTokenIssuer,
	limiter repository.RateLimiter,
	sender SMSSender,
	mailer mail.Sender,
	cfg InviteConfig,
) *InviteService {
	return &InviteService{
		repo:    repo,
		tokens:  tokens,
		limiter: limiter,
		sender:  sender,
		mailer:  mailer,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetDeliveryRecorder подключает журнал доставки SMS.
func (s *InviteService) SetDeliveryRecorder(rec DeliveryRecorder) {
	s.deliveries = rec
}

// SetNotifier подключает уведомления пригласившего.
func (s *InviteService) SetNotifier(n UserNotifier) {
	s.notifier = n
}

// Invite создаёт приглашение в статусе Pending и отправляет ссылку по доступным каналам.
// Ошибки доставки не отменяют приглашение: токен возвращается в ответе.
func (s *InviteService) Invite(ctx context.Context, inviterID uuid.UUID, in InviteInput) (*InviteResult, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateInviteeName(name); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	var phone string
	if strings.TrimSpace(in.Phone) != "" {
		p, err := validation.NormalizePhone(in.Phone, s.cfg.DefaultCountry)
		if err != nil {
			return nil, apperror.ErrInvalidPhone
		}
		phone = p
	}

	if email == "" && phone == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите email или телефон приглашаемого")
	}

	if phone != "" {
		decision, err := s.limiter.Allow(ctx, repository.RateLimitKey{Phone: phone, Action: models.ActionInvitation}, s.cfg.RateLimit)
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		if !decision.Allowed {
			logger.Security("invitation_rate_limit_exceeded", logrus.Fields{
				"phone":      validation.MaskPhone(phone),
				"ip":         in.ClientIP,
				"inviter_id": inviterID,
			})
			return nil, apperror.NewRateLimited(decision.RetryAfter, s.cfg.RateLimit.Limit, s.cfg.RateLimit.Window)
		}
	}

	inv := &models.Invitation{
		InviterID: inviterID,
		Name:      name,
		Status:    models.InvitationStatusPending,
		ExpiresAt: s.now().Add(s.cfg.TokenTTL),
	}
	if email != "" {
		inv.Email = &email
	}
	if phone != "" {
		inv.Phone = &phone
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		logger.Error(err, logrus.Fields{"op": "invitation_create", "inviter_id": inviterID})
		return nil, apperror.NewInternal(err)
	}

	token, _, err := s.tokens.IssueInvite(inv.ID, inviterID, name, email, phone)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	link := s.cfg.AppURL + "/invite?token=" + url.QueryEscape(token)
	res := &InviteResult{
		Invitation:  inv,
		InviteToken: token,
		InviteLink:  link,
	}

	if phone != "" {
		res.SMS = s.sendInviteSMS(ctx, phone, name, link)
	}

	if email != "" {
		body := fmt.Sprintf("%s, вас пригласили в группу дома. Чтобы принять приглашение, перейдите по ссылке: %s", name, link)
		err := s.mailer.Send(ctx, email, "Приглашение в группу дома", body)
		switch {
		case err == nil:
			res.EmailSent = true
		case errors.Is(err, mail.ErrNotConfigured):
			// письмо только в логе, клиенту сообщаем, что оно не ушло
		default:
			logger.Error(err, logrus.Fields{"op": "invitation_email", "invitation_id": inv.ID})
		}
	}

	logger.Auth("invitation_sent", logrus.Fields{
		"invitation_id": inv.ID,
		"inviter_id":    inviterID,
		"sms":           res.SMS != nil,
		"email_sent":    res.EmailSent,
	})

	return res, nil
}

// Accept проверяет токен и переводит приглашение в Accepted.
func (s *InviteService) Accept(ctx context.Context, token string) (*models.Invitation, error) {
	claims, err := s.tokens.ParseInvite(strings.TrimSpace(token))
	if err != nil {
		return nil, apperror.ErrInvalidInviteToken
	}
	id, err := claims.InvitationID()
	if err != nil {
		return nil, apperror.ErrInvalidInviteToken
	}

	inv, err := s.repo.Accept(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return nil, apperror.ErrInvalidInviteToken
		}
		logger.Error(err, logrus.Fields{"op": "invitation_accept", "invitation_id": id})
		return nil, apperror.NewInternal(err)
	}

	logger.Auth("invitation_accepted", logrus.Fields{"invitation_id": id})

	if s.notifier != nil {
		if err := s.notifier.BroadcastToUser(inv.InviterID, EventInvitationAccepted, inv); err != nil {
			logger.Error(err, logrus.Fields{"op": "invitation_notify", "invitation_id": id})
		}
	}

	return inv, nil
}

// List возвращает приглашения, отправленные пользователем.
func (s *InviteService) List(ctx context.Context, inviterID uuid.UUID) ([]models.Invitation, error) {
	invitations, err := s.repo.ListByInviter(ctx, inviterID)
	if err != nil {
		logger.Error(err, logrus.Fields{"op": "invitation_list", "inviter_id": inviterID})
		return nil, apperror.NewInternal(err)
	}
	if invitations == nil {
		invitations = []models.Invitation{}
	}
	return invitations, nil
}

func (s *InviteService) sendInviteSMS(ctx context.Context, phone, name, link string) *models.DeliveryResult {
	result, err := s.sender.Send(ctx, sms.Message{
		To:      phone,
		Body:    fmt.Sprintf("%s, вас пригласили в группу дома! Завершите регистрацию по ссылке: %s", name, link),
		Purpose: models.SMSPurposeInvitation,
	})
	if err != nil {
		logger.Error(err, logrus.Fields{"op": "invitation_sms", "phone": validation.MaskPhone(phone)})
		return nil
	}
	if s.deliveries != nil {
		s.deliveries.Record(ctx, phone, models.SMSPurposeInvitation, result)
	}
	return result
}
