package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ignatzorin/corent-backend/internal/models"
)

const verificationKeyPrefix = "sms:verification:"

// failedAttemptScript увеличивает attempts и удаляет запись при исчерпании.
// Возвращает -1, если записи нет.
var failedAttemptScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local max = tonumber(redis.call('HGET', KEYS[1], 'max_attempts'))
if attempts >= max then
	redis.call('DEL', KEYS[1])
	return 0
end
return max - attempts
`)

// consumeScript гасит код, если в ключе всё ещё та же запись (created_at совпадает),
// она не истекла и попытки не исчерпаны. Возвращает 1, если код погашен.
var consumeScript = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'created_at', 'expires_at', 'attempts', 'max_attempts')
if not rec[1] or rec[1] ~= ARGV[1] then
	return 0
end
redis.call('DEL', KEYS[1])
if tonumber(ARGV[2]) > tonumber(rec[2]) or tonumber(rec[3]) >= tonumber(rec[4]) then
	return 0
end
return 1
`)

// deleteStaleScript удаляет запись, только если created_at совпадает с прочитанным.
// Запись, которую другой экземпляр успел перезаписать, остаётся.
var deleteStaleScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'created_at') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisVerificationStore хранит коды в Redis, чтобы их видели все экземпляры сервиса.
// Одна запись на номер в виде hash, срок жизни задаётся PEXPIREAT.
type RedisVerificationStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisVerificationStore создаёт хранилище поверх клиента Redis.
func NewRedisVerificationStore(rdb *redis.Client) *RedisVerificationStore {
	return &RedisVerificationStore{rdb: rdb, now: time.Now}
}

func verificationKey(phone string) string {
	return verificationKeyPrefix + phone
}

func (s *RedisVerificationStore) Put(ctx context.Context, rec *models.VerificationRecord) error {
	key := verificationKey(rec.Phone)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]interface{}{
			"hash":         string(rec.CodeHash),
			"created_at":   rec.CreatedAt.UnixMilli(),
			"expires_at":   rec.ExpiresAt.UnixMilli(),
			"attempts":     rec.Attempts,
			"max_attempts": rec.MaxAttempts,
			"ip":           rec.ClientIP,
		})
		pipe.PExpireAt(ctx, key, rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("verification store: put %w", err)
	}
	return nil
}

func (s *RedisVerificationStore) Get(ctx context.Context, phone string) (*models.VerificationRecord, error) {
	key := verificationKey(phone)
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("verification store: get %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec, err := decodeVerificationRecord(phone, fields)
	if err != nil {
		return nil, err
	}
	if rec.Expired(s.now()) || rec.Exhausted() {
		if err := deleteStaleScript.Run(ctx, s.rdb, []string{key}, fields["created_at"]).Err(); err != nil {
			return nil, fmt.Errorf("verification store: delete expired %w", err)
		}
		return nil, nil
	}
	return rec, nil
}

func (s *RedisVerificationStore) RecordFailedAttempt(ctx context.Context, phone string) (int, error) {
	left, err := failedAttemptScript.Run(ctx, s.rdb, []string{verificationKey(phone)}).Int()
	if err != nil {
		return 0, fmt.Errorf("verification store: record attempt %w", err)
	}
	if left < 0 {
		return 0, ErrVerificationRecordNotFound
	}
	return left, nil
}

func (s *RedisVerificationStore) Consume(ctx context.Context, phone string, createdAt time.Time) (bool, error) {
	consumed, err := consumeScript.Run(ctx, s.rdb, []string{verificationKey(phone)},
		strconv.FormatInt(createdAt.UnixMilli(), 10),
		strconv.FormatInt(s.now().UnixMilli(), 10),
	).Int()
	if err != nil {
		return false, fmt.Errorf("verification store: consume %w", err)
	}
	return consumed == 1, nil
}

func (s *RedisVerificationStore) Delete(ctx context.Context, phone string) error {
	if err := s.rdb.Del(ctx, verificationKey(phone)).Err(); err != nil {
		return fmt.Errorf("verification store: delete %w", err)
	}
	return nil
}

func (s *RedisVerificationStore) Len(ctx context.Context) (int, error) {
	return countKeys(ctx, s.rdb, verificationKeyPrefix)
}

// Sweep ничего не делает: Redis сам удаляет ключи по PEXPIREAT.
func (s *RedisVerificationStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func decodeVerificationRecord(phone string, fields map[string]string) (*models.VerificationRecord, error) {
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("verification store: created_at %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("verification store: expires_at %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("verification store: attempts %w", err)
	}
	maxAttempts, err := strconv.Atoi(fields["max_attempts"])
	if err != nil {
		return nil, fmt.Errorf("verification store: max_attempts %w", err)
	}

	return &models.VerificationRecord{
		Phone:       phone,
		CodeHash:    []byte(fields["hash"]),
		CreatedAt:   time.UnixMilli(createdAt),
		ExpiresAt:   time.UnixMilli(expiresAt),
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		ClientIP:    fields["ip"],
	}, nil
}

// countKeys считает ключи с префиксом через SCAN, не блокируя Redis.
func countKeys(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
	n := 0
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan %s: %w", prefix, err)
	}
	return n, nil
}
