package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"taskhive/config"
)

const (
	VerificationCodeLength = 6
	VerificationCodeExpiry = 15 * time.Minute
	VerificationCooldown   = 1 * time.Minute
)

// ErrCodeNotFound is returned when a key is absent or expired.
var ErrCodeNotFound = errors.New("code not found")

// CodeStore is a key-value store with TTL semantics for short-lived
// verification codes. Codes never live in process globals: the store is
// injected so restarts and multiple instances behave the same.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Codes is the process-wide store, swapped for redis at startup when
// redis is enabled.
var Codes CodeStore = NewMemoryCodeStore()

// GenerateVerificationCode returns a random numeric code.
func GenerateVerificationCode() (string, error) {
	const digits = "0123456789"
	code := make([]byte, VerificationCodeLength)

	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[num.Int64()]
	}

	return string(code), nil
}

// RedisCodeStore implements CodeStore on redis
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(cfg config.RedisConfig) *RedisCodeStore {
	return &RedisCodeStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (r *RedisCodeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCodeStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	return val, err
}

func (r *RedisCodeStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCodeStore) Close() error {
	return r.client.Close()
}

// MemoryCodeStore implements CodeStore in memory, used when redis is
// not configured and in tests. Expired entries are dropped lazily on
// read.
type MemoryCodeStore struct {
	mu      sync.Mutex
	entries map[string]memoryCodeEntry
}

type memoryCodeEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{entries: make(map[string]memoryCodeEntry)}
}

func (m *MemoryCodeStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryCodeEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryCodeStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return "", ErrCodeNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return "", ErrCodeNotFound
	}
	return entry.value, nil
}

func (m *MemoryCodeStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
