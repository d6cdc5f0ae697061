package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/corent-backend/internal/http/middleware"
	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/repository"
)

type memorySMSMessages struct {
	mu       sync.Mutex
	messages map[string]*models.SMSMessage
}

func newMemorySMSMessages() *memorySMSMessages {
	return &memorySMSMessages{messages: make(map[string]*models.SMSMessage)}
}

func (m *memorySMSMessages) Create(_ context.Context, msg *models.SMSMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.MessageID] = &cp
	return nil
}

func (m *memorySMSMessages) UpdateStatus(_ context.Context, upd models.SMSStatusUpdate) (*models.SMSMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[upd.MessageID]
	if !ok {
		return nil, repository.ErrSMSMessageNotFound
	}
	msg.Status = upd.Status
	cp := *msg
	return &cp, nil
}

func (m *memorySMSMessages) GetByMessageID(_ context.Context, messageID string) (*models.SMSMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, repository.ErrSMSMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

type memoryInvitations struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*models.Invitation
}

func newMemoryInvitations() *memoryInvitations {
	return &memoryInvitations{invitations: make(map[uuid.UUID]*models.Invitation)}
}

func (m *memoryInvitations) Create(_ context.Context, inv *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = uuid.New()
	cp := *inv
	m.invitations[inv.ID] = &cp
	return nil
}

func (m *memoryInvitations) Accept(_ context.Context, id uuid.UUID, at time.Time) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return nil, repository.ErrInvitationNotFound
	}
	inv.Status = models.InvitationStatusAccepted
	inv.AcceptedAt = &at
	cp := *inv
	return &cp, nil
}

func (m *memoryInvitations) ListByInviter(_ context.Context, inviterID uuid.UUID) ([]models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Invitation
	for _, inv := range m.invitations {
		if inv.InviterID == inviterID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string) error { return nil }

// withUser имитирует AuthMiddleware.
func withUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Set(middleware.ContextRoleKey, "user")
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "тело ответа: %s", w.Body.String())
	return body
}
