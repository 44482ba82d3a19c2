package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
)

const (
	defaultRemoteTimeout = 5 * time.Second
	maxDocumentBytes     = 32 << 20
)

// Source fetches the bundled default document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(context.Context) ([]byte, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// EmbeddedSource serves the document compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Fetch(context.Context) ([]byte, error) {
	return content.DefaultJSON(), nil
}

// NewSource picks a source from a location: empty for the embedded document, an
// http(s) URL for a remote file, anything else is a local path.
func NewSource(location string, logger *zap.Logger) Source {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return EmbeddedSource{}
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return &HTTPSource{URL: location}
	default:
		return NewFileSource(location, logger)
	}
}

// HTTPSource downloads the document from a URL on every fetch.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("store: default document status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
}

// FileSource reads the document from disk and keeps the bytes until the file changes.
type FileSource struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	cached  []byte
	watcher *fsnotify.Watcher
}

// NewFileSource constructs a FileSource. Watching starts with the first successful read.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{path: filepath.Clean(path), logger: logger}
}

func (s *FileSource) Fetch(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return append([]byte(nil), s.cached...), nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if s.watcher == nil {
		s.startWatch()
	}
	if s.watcher != nil {
		s.cached = data
	}
	return append([]byte(nil), data...), nil
}

// Close stops the watcher.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	s.cached = nil
	return err
}

// startWatch watches the parent directory so editors that replace the file by rename
// are still noticed. Without a watcher nothing is cached.
func (s *FileSource) startWatch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("content watcher unavailable", zap.String("path", s.path), zap.Error(err))
		return
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		s.logger.Warn("content watch failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.watcher = w
	go s.watch(w)
}

func (s *FileSource) watch(w *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.invalidate()
				s.logger.Info("default content changed", zap.String("path", s.path), zap.String("op", event.Op.String()))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.invalidate()
			s.logger.Warn("content watcher error", zap.Error(err))
		}
	}
}

func (s *FileSource) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
