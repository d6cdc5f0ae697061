package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisVerificationStore_PutGet(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisVerificationStore(rdb)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	rec := newRecord("+15551234567", now)
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash", string(got.CodeHash))
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))
	assert.Equal(t, 3, got.MaxAttempts)
	assert.Equal(t, "10.0.0.1", got.ClientIP)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	missing, err := store.Get(ctx, "+15550000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisVerificationStore_KeyExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisVerificationStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("+15551234567", time.Now())))
	require.True(t, mr.Exists(verificationKey("+15551234567")))

	mr.FastForward(6 * time.Minute)

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisVerificationStore_ExpiredByClockIsDeleted(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisVerificationStore(rdb)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Put(ctx, newRecord("+15551234567", now)))

	store.now = func() time.Time { return now.Add(5*time.Minute + time.Second) }

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(verificationKey("+15551234567")))
}

func TestRedisVerificationStore_RecordFailedAttempt(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisVerificationStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("+15551234567", time.Now())))

	for want := 2; want >= 0; want-- {
		left, err := store.RecordFailedAttempt(ctx, "+15551234567")
		require.NoError(t, err)
		if left != want {
			t.Fatalf("ожидали остаток %d, получили %d", want, left)
		}
	}
	assert.False(t, mr.Exists(verificationKey("+15551234567")), "исчерпанная запись удаляется")

	_, err := store.RecordFailedAttempt(ctx, "+15551234567")
	assert.ErrorIs(t, err, ErrVerificationRecordNotFound)
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRedisRateLimiter(rdb)
	ctx := context.Background()
	key := RateLimitKey{Phone: "+15551234567", Action: "send"}

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, key, sendRule)
		require.NoError(t, err)
		require.True(t, d.Allowed, "отправка %d должна пройти", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, key, sendRule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, 59*time.Minute)
	assert.LessOrEqual(t, d.RetryAfter, time.Hour)

	n, err := limiter.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mr.FastForward(time.Hour + time.Second)

	d, err = limiter.Allow(ctx, key, sendRule)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "после окна ключ исчезает и счёт начинается заново")
	assert.Equal(t, 2, d.Remaining)
}

func TestRedisRateLimiter_DeniedDoesNotIncrement(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRedisRateLimiter(rdb)
	ctx := context.Background()
	key := RateLimitKey{Phone: "+15551234567", Action: "invite"}
	rule := RateLimitRule{Limit: 1, Window: time.Minute}

	d, _ := limiter.Allow(ctx, key, rule)
	require.True(t, d.Allowed)

	for i := 0; i < 3; i++ {
		d, _ = limiter.Allow(ctx, key, rule)
		assert.False(t, d.Allowed)
	}

	val, err := mr.Get(rateLimitKeyPrefix + key.String())
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestRedisVerificationStore_Consume(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisVerificationStore(rdb)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	first := newRecord("+15551234567", now)
	require.NoError(t, store.Put(ctx, first))
	second := newRecord("+15551234567", now.Add(time.Second))
	require.NoError(t, store.Put(ctx, second))

	ok, err := store.Consume(ctx, "+15551234567", first.CreatedAt)
	require.NoError(t, err)
	assert.False(t, ok, "заменённую запись погасить нельзя")
	assert.True(t, mr.Exists(verificationKey("+15551234567")))

	ok, err = store.Consume(ctx, "+15551234567", second.CreatedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(verificationKey("+15551234567")))

	ok, err = store.Consume(ctx, "+15551234567", second.CreatedAt)
	require.NoError(t, err)
	assert.False(t, ok, "код гасится только один раз")
}

func TestRedisVerificationStore_ConsumeRejectsExhausted(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisVerificationStore(rdb)
	ctx := context.Background()

	rec := newRecord("+15551234567", time.Now().Truncate(time.Millisecond))
	rec.Attempts = rec.MaxAttempts
	require.NoError(t, store.Put(ctx, rec))

	ok, err := store.Consume(ctx, "+15551234567", rec.CreatedAt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(verificationKey("+15551234567")))
}

func TestRedisVerificationStore_StaleDeleteKeepsNewRecord(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisVerificationStore(rdb)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	require.NoError(t, store.Put(ctx, newRecord("+15551234567", now)))

	// Запись прочитана как истёкшая, но другой экземпляр уже положил новую.
	stale := "1"
	require.NoError(t, deleteStaleScript.Run(ctx, rdb, []string{verificationKey("+15551234567")}, stale).Err())
	assert.True(t, mr.Exists(verificationKey("+15551234567")))
}
