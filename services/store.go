package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/chunkup/models"
)

const sessionKeyPrefix = "upload:"

// SessionStore is the shared metadata store holding one record per in-flight
// upload, with per-record expiry, plus the atomic counters used for upload
// metrics. Get returns (nil, nil) when no record exists; expired records are
// indistinguishable from absent ones.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.UploadSession, error)
	Put(ctx context.Context, session *models.UploadSession, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
	Incr(ctx context.Context, key string) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
}

// RedisSessionStore keeps session records as JSON under upload:<id> with a TTL.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore wraps an existing Redis client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.UploadSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session models.UploadSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session *models.UploadSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.ID, data, ttl).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// ListIDs scans for session keys instead of KEYS to avoid blocking Redis.
func (s *RedisSessionStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64
	for {
		keys, cur, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 1000).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, sessionKeyPrefix))
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

func (s *RedisSessionStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisSessionStore) GetCounter(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemorySessionStore is an in-process SessionStore for tests and single
// instance deployments without Redis.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	counters map[string]int64
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string]memoryEntry{},
		counters: map[string]int64{},
	}
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*models.UploadSession, error) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if ok && !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var session models.UploadSession
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MemorySessionStore) Put(_ context.Context, session *models.UploadSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.sessions[session.ID] = memoryEntry{data: data, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) ListIDs(_ context.Context) ([]string, error) {
	now := time.Now()
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id, entry := range s.sessions {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.sessions, id)
			continue
		}
		ids = append(ids, id)
	}
	s.mu.Unlock()
	return ids, nil
}

func (s *MemorySessionStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	s.counters[key]++
	v := s.counters[key]
	s.mu.Unlock()
	return v, nil
}

func (s *MemorySessionStore) GetCounter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	v := s.counters[key]
	s.mu.Unlock()
	return v, nil
}

func (s *MemorySessionStore) Ping(_ context.Context) error {
	return nil
}
