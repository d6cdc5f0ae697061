package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/repository"
	"github.com/ignatzorin/corent-backend/internal/sms"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeSender запоминает отправленные сообщения.
type fakeSender struct {
	mu       sync.Mutex
	messages []sms.Message
	provider string
	err      error
}

func (f *fakeSender) Send(_ context.Context, msg sms.Message) (*models.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.messages = append(f.messages, msg)
	provider := f.provider
	if provider == "" {
		provider = models.ProviderMock
	}
	return &models.DeliveryResult{
		Success:   true,
		Provider:  provider,
		MessageID: "msg-" + uuid.NewString(),
		Status:    models.SMSStatusSent,
	}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeSender) last() sms.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[len(f.messages)-1]
}

// fakeRecorder копит записи журнала доставки в памяти.
type fakeRecorder struct {
	mu      sync.Mutex
	records []string
}

func (f *fakeRecorder) Record(_ context.Context, phone, purpose string, res *models.DeliveryResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, purpose+":"+phone+":"+res.MessageID)
}

// fakeInvitationRepo реализует InvitationStore и InvitationAcceptor.
type fakeInvitationRepo struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*models.Invitation
	createErr   error
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invitations: make(map[uuid.UUID]*models.Invitation)}
}

func (r *fakeInvitationRepo) Create(_ context.Context, inv *models.Invitation) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	cp := *inv
	r.invitations[inv.ID] = &cp
	return nil
}

func (r *fakeInvitationRepo) Accept(_ context.Context, id uuid.UUID, at time.Time) (*models.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return nil, repository.ErrInvitationNotFound
	}
	inv.Status = models.InvitationStatusAccepted
	if inv.AcceptedAt == nil {
		inv.AcceptedAt = &at
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvitationRepo) ListByInviter(_ context.Context, inviterID uuid.UUID) ([]models.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Invitation
	for _, inv := range r.invitations {
		if inv.InviterID == inviterID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) get(id uuid.UUID) *models.Invitation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invitations[id]
}

// fakeMailer запоминает письма.
type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+subject+"|"+body)
	return nil
}

// fakeNotifier запоминает события пользователям.
type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) BroadcastToUser(userID uuid.UUID, event string, _ any) error {
	n.events = append(n.events, event+":"+userID.String())
	return nil
}

// failingStore отдаёт ошибку на любое обращение.
type failingStore struct {
	repository.VerificationStore
}

var errStoreDown = errors.New("store is down")

func (failingStore) Get(context.Context, string) (*models.VerificationRecord, error) {
	return nil, errStoreDown
}

func (failingStore) Put(context.Context, *models.VerificationRecord) error {
	return errStoreDown
}
