package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned by KV implementations when the key has no value.
	ErrNotFound = errors.New("store: key not found")
	// ErrInvalidInput signals an empty key or DSN.
	ErrInvalidInput = errors.New("store: invalid input")
)

// KV is the key-value capability backing the persisted override.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KVFactory builds a KV from a DSN.
type KVFactory func(dsn string) (KV, error)

var (
	kvFactoriesMu sync.RWMutex
	kvFactories   = map[string]KVFactory{}
)

// RegisterKV installs a factory for a DSN scheme, overriding the built-in ones.
func RegisterKV(scheme string, factory KVFactory) {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	if scheme == "" || factory == nil {
		return
	}
	kvFactoriesMu.Lock()
	defer kvFactoriesMu.Unlock()
	kvFactories[scheme] = factory
}

func lookupKVFactory(scheme string) (KVFactory, bool) {
	kvFactoriesMu.RLock()
	defer kvFactoriesMu.RUnlock()
	f, ok := kvFactories[scheme]
	return f, ok
}

// OpenKV resolves a DSN to a KV backend. Supported schemes: memory, file (or a bare
// path), sqlite and postgres.
func OpenKV(dsn string) (KV, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if factory, ok := lookupKVFactory(scheme); ok {
		return factory(dsn)
	}
	switch scheme {
	case "memory", "mem", "inmem":
		return NewMemoryKV(), nil
	case "", "file":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return NewFileKV(path), nil
	case "sqlite", "sqlite3":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLiteKV(path)
	case "postgres", "postgresql":
		return NewPostgresKV(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported override backend scheme %q", scheme)
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if parsed.Scheme == "" {
		return filepath.Clean(raw), nil
	}
	path := parsed.Path
	if parsed.Host != "" {
		// file://relative/dir/file.json keeps the first segment in Host.
		path = parsed.Host + path
	}
	if path == "" {
		path = parsed.Opaque
	}
	if path == "" {
		return "", fmt.Errorf("%w: missing path in %q", ErrInvalidInput, raw)
	}
	return filepath.Clean(path), nil
}

// MemoryKV keeps values in process memory. Useful for tests and throwaway sessions.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV constructs an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string][]byte{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
