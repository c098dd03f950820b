package contextstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/db"
)

// Backend is the key-value contract the store persists through. Entries
// expire ttl after their last Put.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const defaultMemorySize = 10000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend keeps entries in a bounded LRU. The least recently used
// session is evicted when the cache is full.
type MemoryBackend struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryBackend creates a MemoryBackend holding at most size entries.
func NewMemoryBackend(size int) (*MemoryBackend, error) {
	if size <= 0 {
		size = defaultMemorySize
	}
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating context cache: %w", err)
	}
	return &MemoryBackend{cache: cache, now: time.Now}, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Add(key, memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(key)
	return nil
}

// Len returns the number of cached entries, including expired ones not yet
// evicted.
func (m *MemoryBackend) Len() int {
	return m.cache.Len()
}

// SQLiteBackend persists entries in the conversation_contexts table. Expiry
// is stored as Unix nanoseconds.
type SQLiteBackend struct {
	db  *db.DB
	now func() time.Time
}

// NewSQLiteBackend creates a backend over database.
func NewSQLiteBackend(database *db.DB) *SQLiteBackend {
	return &SQLiteBackend{db: database, now: time.Now}
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM conversation_contexts WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixNano()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading context %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_contexts (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		key, value, now.Add(ttl).UnixNano(), now)
	if err != nil {
		return fmt.Errorf("writing context %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_contexts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting context %s: %w", key, err)
	}
	return nil
}

// Sweep removes expired rows and returns how many were deleted.
func (s *SQLiteBackend) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversation_contexts WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired contexts: %w", err)
	}
	return res.RowsAffected()
}
