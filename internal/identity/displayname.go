package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	displayNamePrefix = "Anon-"
	displayNameChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	displayNameLen    = 4
)

// NameStore is a small key-value store for cached display names.
type NameStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// SetIfAbsent stores value unless key already holds one, and returns
	// whichever value the key holds afterwards.
	SetIfAbsent(ctx context.Context, key, value string) (string, error)
}

// DisplayNameKey is the store key for id's display name.
func DisplayNameKey(id uuid.UUID) string {
	return "anon-name-" + id.String()
}

// DisplayName returns the cached pseudonym for id, generating and storing
// one on first use. Concurrent first uses agree on a single name.
func DisplayName(ctx context.Context, store NameStore, id uuid.UUID) (string, error) {
	key := DisplayNameKey(id)

	name, ok, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("reading display name: %w", err)
	}
	if ok {
		return name, nil
	}

	generated, err := NewDisplayName()
	if err != nil {
		return "", err
	}

	name, err = store.SetIfAbsent(ctx, key, generated)
	if err != nil {
		return "", fmt.Errorf("storing display name: %w", err)
	}
	return name, nil
}

// NewDisplayName returns "Anon-" followed by four random characters
// from [0-9A-Z].
func NewDisplayName() (string, error) {
	b := make([]byte, displayNameLen)
	max := big.NewInt(int64(len(displayNameChars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating display name: %w", err)
		}
		b[i] = displayNameChars[n.Int64()]
	}
	return displayNamePrefix + string(b), nil
}

type MemoryNameStore struct {
	mu    sync.Mutex
	names map[string]string
}

func NewMemoryNameStore() *MemoryNameStore {
	return &MemoryNameStore{names: make(map[string]string)}
}

func (m *MemoryNameStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[key]
	return name, ok, nil
}

func (m *MemoryNameStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.names[key]; ok {
		return existing, nil
	}
	m.names[key] = value
	return value, nil
}

// RedisNameStore keeps display names in Redis so every server instance
// hands out the same name for an identity.
type RedisNameStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNameStore returns a store whose entries expire after ttl. A zero
// ttl keeps them forever.
func NewRedisNameStore(client *redis.Client, ttl time.Duration) *RedisNameStore {
	return &RedisNameStore{client: client, ttl: ttl}
}

func (r *RedisNameStore) Get(ctx context.Context, key string) (string, bool, error) {
	name, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (r *RedisNameStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	set, err := r.client.SetNX(ctx, key, value, r.ttl).Result()
	if err != nil {
		return "", err
	}
	if set {
		return value, nil
	}

	name, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return name, nil
}
