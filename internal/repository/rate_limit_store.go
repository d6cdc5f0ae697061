package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ignatzorin/corent-backend/internal/models"
)

// RateLimitKey задаёт пару (номер, действие), по которой считаются отправки.
type RateLimitKey struct {
	Phone  string
	Action string
}

func (k RateLimitKey) String() string {
	return k.Action + ":" + k.Phone
}

// RateLimitRule разрешает не более Limit отправок за Window.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

// RateLimitDecision описывает результат проверки лимита.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimiter атомарно проверяет и увеличивает счётчик: два параллельных
// запроса не могут оба пройти сверх лимита.
type RateLimiter interface {
	Allow(ctx context.Context, key RateLimitKey, rule RateLimitRule) (RateLimitDecision, error)
	Len(ctx context.Context) (int, error)
	// Sweep удаляет счётчики с закончившимся окном.
	Sweep(ctx context.Context) (int, error)
}

// MemoryRateLimiter считает отправки в фиксированном окне, которое начинается с первой отправки.
// Окно считается открытым до момента WindowResetAt включительно.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	records map[RateLimitKey]*models.RateLimitRecord
	now     func() time.Time
}

func NewMemoryRateLimiter(now func() time.Time) *MemoryRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryRateLimiter{
		records: make(map[RateLimitKey]*models.RateLimitRecord),
		now:     now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key RateLimitKey, rule RateLimitRule) (RateLimitDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || now.After(rec.WindowResetAt) {
		rec = &models.RateLimitRecord{Count: 0, WindowResetAt: now.Add(rule.Window)}
		l.records[key] = rec
	}

	if rec.Count >= rule.Limit {
		return RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: rec.WindowResetAt.Sub(now),
			ResetAt:    rec.WindowResetAt,
		}, nil
	}

	rec.Count++
	return RateLimitDecision{
		Allowed:   true,
		Remaining: rule.Limit - rec.Count,
		ResetAt:   rec.WindowResetAt,
	}, nil
}

func (l *MemoryRateLimiter) Len(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records), nil
}

func (l *MemoryRateLimiter) Sweep(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, rec := range l.records {
		if now.After(rec.WindowResetAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed, nil
}
