package testutil

import (
	"bytes"
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NZ-247/WebSite-Romantic/internal/experience"
	"github.com/NZ-247/WebSite-Romantic/internal/httpserver"
	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
	"github.com/NZ-247/WebSite-Romantic/internal/render"
	"github.com/NZ-247/WebSite-Romantic/internal/session"
	"github.com/NZ-247/WebSite-Romantic/internal/store"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithStore serves content from s instead of the embedded default over memory storage.
func WithStore(s *store.Store) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Store = s
	}
}

// WithLetterDelay overrides the envelope opening delay.
func WithLetterDelay(d time.Duration) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.LetterDelay = d
	}
}

// WithClock injects the time source of visits and registries.
func WithClock(now func() time.Time) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Now = now
	}
}

// WithLoader wires the embed loader factory used for track playback.
func WithLoader(newLoader func() *experience.Loader) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.NewLoader = newLoader
	}
}

// WithUploadLimit caps editor uploads.
func WithUploadLimit(limit int64) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.UploadLimit = limit
	}
}

// NewServer constructs an httptest server running the full HTTP stack with sensible
// defaults: embedded content, memory storage and deterministic hearts.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	renderer, err := render.New(render.WithRandSource(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	bundle, err := i18n.Load("pt-BR")
	if err != nil {
		t.Fatalf("i18n: %v", err)
	}

	cfg := httpserver.Config{
		Renderer: renderer,
		Store:    store.New(store.EmbeddedSource{}, store.NewMemoryKV()),
		Bundle:   bundle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	manager, err := session.NewManager(session.Config{
		CookieName: "loveletter_test",
		HashKey:    bytes.Repeat([]byte("t"), 32),
		Lifetime:   time.Hour,
		Now:        cfg.Now,
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	cfg.Sessions = manager

	handler, err := httpserver.NewHandler(cfg)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client that keeps cookies and does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Background is a short-lived context for test requests.
func Background(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
