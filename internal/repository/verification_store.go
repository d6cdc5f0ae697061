package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ignatzorin/corent-backend/internal/models"
)

// ErrVerificationRecordNotFound возвращается, когда для номера нет живого кода.
var ErrVerificationRecordNotFound = errors.New("verification record not found")

// VerificationStore хранит не более одного ожидающего кода на номер.
// Все операции атомарны в пределах одного номера.
type VerificationStore interface {
	// Put перезаписывает запись номера.
	Put(ctx context.Context, rec *models.VerificationRecord) error
	// Get возвращает запись или nil; истёкшая или исчерпанная запись удаляется.
	Get(ctx context.Context, phone string) (*models.VerificationRecord, error)
	// RecordFailedAttempt увеличивает счётчик попыток и возвращает остаток.
	// При исчерпании попыток запись удаляется и возвращается 0.
	RecordFailedAttempt(ctx context.Context, phone string) (int, error)
	// Consume удаляет запись, только если это всё ещё та же живая запись
	// (тот же createdAt, не истекла, попытки не исчерпаны). Код погашен, если вернулось true.
	Consume(ctx context.Context, phone string, createdAt time.Time) (bool, error)
	Delete(ctx context.Context, phone string) error
	Len(ctx context.Context) (int, error)
	// Sweep удаляет истёкшие записи и возвращает их количество.
	Sweep(ctx context.Context) (int, error)
}

// MemoryVerificationStore хранит коды в памяти процесса.
type MemoryVerificationStore struct {
	mu      sync.Mutex
	records map[string]*models.VerificationRecord
	now     func() time.Time
}

// NewMemoryVerificationStore создаёт хранилище. now == nil означает time.Now.
func NewMemoryVerificationStore(now func() time.Time) *MemoryVerificationStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryVerificationStore{
		records: make(map[string]*models.VerificationRecord),
		now:     now,
	}
}

func (s *MemoryVerificationStore) Put(_ context.Context, rec *models.VerificationRecord) error {
	cp := *rec
	cp.CodeHash = append([]byte(nil), rec.CodeHash...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Phone] = &cp
	return nil
}

func (s *MemoryVerificationStore) Get(_ context.Context, phone string) (*models.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[phone]
	if !ok {
		return nil, nil
	}
	if rec.Expired(s.now()) || rec.Exhausted() {
		delete(s.records, phone)
		return nil, nil
	}

	cp := *rec
	return &cp, nil
}

func (s *MemoryVerificationStore) RecordFailedAttempt(_ context.Context, phone string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[phone]
	if !ok {
		return 0, ErrVerificationRecordNotFound
	}
	if rec.Expired(s.now()) {
		delete(s.records, phone)
		return 0, ErrVerificationRecordNotFound
	}

	rec.Attempts++
	if rec.Exhausted() {
		delete(s.records, phone)
		return 0, nil
	}
	return rec.RemainingAttempts(), nil
}

func (s *MemoryVerificationStore) Consume(_ context.Context, phone string, createdAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[phone]
	if !ok || !rec.CreatedAt.Equal(createdAt) {
		return false, nil
	}
	if rec.Expired(s.now()) || rec.Exhausted() {
		delete(s.records, phone)
		return false, nil
	}
	delete(s.records, phone)
	return true, nil
}

func (s *MemoryVerificationStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, phone)
	return nil
}

func (s *MemoryVerificationStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *MemoryVerificationStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for phone, rec := range s.records {
		if rec.Expired(now) || rec.Exhausted() {
			delete(s.records, phone)
			removed++
		}
	}
	return removed, nil
}
