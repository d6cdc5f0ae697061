package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/corent-backend/internal/config"
)

func TestMailer_NotConfigured(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Port: 587})
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(context.Background(), "anna@example.com", "Приглашение", "ссылка"), ErrNotConfigured)
}

func TestMailer_Configured(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@corent.app"})
	assert.True(t, m.Enabled())
}

func TestMailer_CanceledContext(t *testing.T) {
	m := NewMailer(config.SMTPConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Send(ctx, "anna@example.com", "Приглашение", "ссылка"), context.Canceled)
}
