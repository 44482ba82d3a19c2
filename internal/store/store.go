package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
)

const (
	// DefaultKey is the storage key of the persisted override.
	DefaultKey = "romanticSiteContent"
	// ExportFilename names the downloadable artifact.
	ExportFilename = "content.personalizado.json"
)

// ErrDefaultUnavailable means the bundled default document could not be fetched or
// parsed. Nothing can render without it.
var ErrDefaultUnavailable = errors.New("store: default document unavailable")

// Store resolves the effective document and mediates persistence of the override.
type Store struct {
	source Source
	kv     KV
	key    string
	logger *zap.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for recoverable failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Store over a default-document source and an override backend.
func New(source Source, kv KV, opts ...Option) *Store {
	if source == nil {
		source = EmbeddedSource{}
	}
	if kv == nil {
		kv = NewMemoryKV()
	}
	s := &Store{source: source, kv: kv, key: DefaultKey, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if l, ok := kv.(interface{ SetLogger(*zap.Logger) }); ok {
		l.SetLogger(s.logger)
	}
	return s
}

// Key returns the storage key of the override.
func (s *Store) Key() string { return s.key }

// Load returns the normalized override when one is stored and parses, otherwise the
// normalized default. Only a missing or malformed default is an error.
func (s *Store) Load(ctx context.Context) (content.Document, error) {
	def, err := s.Default(ctx)
	if err != nil {
		return content.Document{}, err
	}

	stored, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
		return def, nil
	case err != nil:
		s.logger.Warn("override read failed; using default", zap.String("key", s.key), zap.Error(err))
		return def, nil
	}

	doc, err := content.Decode(stored)
	if err != nil {
		s.logger.Warn("override malformed; using default", zap.String("key", s.key), zap.Error(err))
		return def, nil
	}
	return doc, nil
}

// Default returns the normalized bundled document, ignoring any override.
func (s *Store) Default(ctx context.Context) (content.Document, error) {
	raw, err := s.source.Fetch(ctx)
	if err != nil {
		return content.Document{}, fmt.Errorf("%w: %v", ErrDefaultUnavailable, err)
	}
	doc, err := content.Decode(raw)
	if err != nil {
		return content.Document{}, fmt.Errorf("%w: %v", ErrDefaultUnavailable, err)
	}
	return doc, nil
}

// Save replaces the override with the full document.
func (s *Store) Save(ctx context.Context, doc content.Document) error {
	data, err := content.Encode(doc, false)
	if err != nil {
		return fmt.Errorf("store: encode override: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("store: save override: %w", err)
	}
	return nil
}

// Reset deletes the override so subsequent loads fall back to the default.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("store: reset override: %w", err)
	}
	return nil
}

// Export writes the pretty-printed document. It does not touch stored state.
func Export(w io.Writer, doc content.Document) error {
	data, err := content.Encode(doc, true)
	if err != nil {
		return fmt.Errorf("store: encode export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
