package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/admin"
	"github.com/NZ-247/WebSite-Romantic/internal/experience"
	custommw "github.com/NZ-247/WebSite-Romantic/internal/httpserver/middleware"
	"github.com/NZ-247/WebSite-Romantic/internal/httpserver/ui"
	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
	"github.com/NZ-247/WebSite-Romantic/internal/observability"
	"github.com/NZ-247/WebSite-Romantic/internal/render"
	"github.com/NZ-247/WebSite-Romantic/internal/session"
	"github.com/NZ-247/WebSite-Romantic/internal/store"
	"github.com/NZ-247/WebSite-Romantic/public"
)

const defaultRequestTimeout = 60 * time.Second

// Config holds runtime options and collaborators for the HTTP server.
type Config struct {
	Address    string
	Renderer   *render.Renderer
	Store      *store.Store
	Sessions   *session.Manager
	Bundle     *i18n.Bundle
	Logger     *zap.Logger
	Visits     *session.Registry[*experience.Visit]
	Workspaces *session.Registry[*admin.Workspace]
	NewLoader  func() *experience.Loader

	LetterDelay    time.Duration
	UploadLimit    int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	Now            func() time.Time
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 120*time.Second),
	}, nil
}

// NewHandler builds the router. Split from New so tests can serve it with httptest.
func NewHandler(cfg Config) (http.Handler, error) {
	switch {
	case cfg.Renderer == nil:
		return nil, errors.New("httpserver: renderer is required")
	case cfg.Store == nil:
		return nil, errors.New("httpserver: store is required")
	case cfg.Sessions == nil:
		return nil, errors.New("httpserver: session manager is required")
	case cfg.Bundle == nil:
		return nil, errors.New("httpserver: i18n bundle is required")
	}

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}
	assets, err := custommw.Assets(staticContent)
	if err != nil {
		return nil, fmt.Errorf("index static: %w", err)
	}

	handlers := ui.NewHandlers(ui.Dependencies{
		Renderer:    cfg.Renderer,
		Store:       cfg.Store,
		Bundle:      cfg.Bundle,
		Visits:      cfg.Visits,
		Workspaces:  cfg.Workspaces,
		NewLoader:   cfg.NewLoader,
		LetterDelay: cfg.LetterDelay,
		UploadLimit: cfg.UploadLimit,
		Now:         cfg.Now,
	})

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.RequestLogger(cfg.Logger))
	router.Use(observability.Recoverer)
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, defaultRequestTimeout)))

	router.Get("/healthz", ui.Healthz)
	router.With(chimw.Compress(5)).
		Handle("/public/static/*", http.StripPrefix("/public/static", assets))

	router.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(custommw.HTMX())
		r.Use(custommw.Session(cfg.Sessions))
		r.Use(custommw.Locale(cfg.Bundle))
		r.Use(custommw.CSRF(custommw.CSRFConfig{
			HeaderName: render.HeaderCSRF,
			FieldName:  "csrf_token",
			MaxMemory:  handlers.MaxFormMemory(),
		}))

		r.Get("/content.json", handlers.ContentJSON)
		mountExperienceRoutes(r, handlers)
		mountAdminRoutes(r, handlers)
	})

	return router, nil
}

func mountExperienceRoutes(router chi.Router, h *ui.Handlers) {
	router.With(custommw.NoStore()).Get("/", h.ExperiencePage)
	router.With(custommw.NoStore()).Get("/classic", h.ClassicPage)

	router.Route("/experience", func(r chi.Router) {
		r.Use(custommw.NoStore())
		r.Use(custommw.RequireHTMX())

		r.Post("/envelope/open", h.OpenEnvelope)
		r.Get("/envelope/letter", h.Letter)
		r.Post("/photos/show", h.ShowPhotos)
		r.Post("/photos/next", h.NextPhoto)
		r.Post("/photos/prev", h.PrevPhoto)
		r.Post("/music/toggle", h.ToggleMusic)
		r.Post("/music/denied", h.MusicDenied)
	})

	router.Route("/carousel/{section}", func(r chi.Router) {
		r.Use(custommw.NoStore())
		r.Use(custommw.RequireHTMX())

		r.Post("/next", h.CarouselNext)
		r.Post("/prev", h.CarouselPrev)
	})
}

func mountAdminRoutes(router chi.Router, h *ui.Handlers) {
	router.Route("/admin", func(r chi.Router) {
		r.Use(custommw.NoStore())

		r.Get("/", h.AdminPage)
		// Export is a native form submission so the browser keeps the download.
		r.Post("/export", h.ExportContent)

		r.Group(func(r chi.Router) {
			r.Use(custommw.RequireHTMX())

			r.Post("/apply", h.ApplyForm())
			r.Post("/sections/{index}/up", h.MoveSection(admin.Up))
			r.Post("/sections/{index}/down", h.MoveSection(admin.Down))
			r.Post("/photos/add", h.AddPhoto())
			r.Post("/photos/upload", h.UploadPhoto())
			r.Post("/photos/{index}/remove", h.RemovePhoto())
			r.Post("/photos/{index}/replace", h.ReplacePhoto())
			r.Post("/save", h.SaveForm())
			r.Post("/reset", h.ResetContent())
		})
	})
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
