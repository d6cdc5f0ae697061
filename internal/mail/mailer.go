package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/ignatzorin/corent-backend/internal/config"
	"github.com/ignatzorin/corent-backend/internal/logger"
)

// ErrNotConfigured возвращается, когда SMTP не настроен и письмо только записано в лог.
var ErrNotConfigured = errors.New("mail: smtp not configured")

// Sender отправляет письмо.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Mailer отправляет письма через SMTP. Без настроек SMTP письмо только пишется в лог.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	m := &Mailer{from: cfg.From}
	if cfg.Configured() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return m
}

// Enabled сообщает, уходят ли письма на самом деле.
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.dialer == nil {
		logger.Log.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("smtp not configured, email logged only")
		return ErrNotConfigured
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}
