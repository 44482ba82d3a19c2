package ui

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/admin"
	"github.com/NZ-247/WebSite-Romantic/internal/content"
	"github.com/NZ-247/WebSite-Romantic/internal/experience"
	custommw "github.com/NZ-247/WebSite-Romantic/internal/httpserver/middleware"
	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
	"github.com/NZ-247/WebSite-Romantic/internal/observability"
	"github.com/NZ-247/WebSite-Romantic/internal/render"
	"github.com/NZ-247/WebSite-Romantic/internal/session"
	"github.com/NZ-247/WebSite-Romantic/internal/store"
)

// Dependencies collects the services required by the UI handlers.
type Dependencies struct {
	Renderer   *render.Renderer
	Store      *store.Store
	Bundle     *i18n.Bundle
	Visits     *session.Registry[*experience.Visit]
	Workspaces *session.Registry[*admin.Workspace]
	// NewLoader returns the embed loader of one visit. Nil disables track playback.
	NewLoader   func() *experience.Loader
	LetterDelay time.Duration
	UploadLimit int64
	Now         func() time.Time
}

// Handlers exposes HTTP handlers for the public pages, their fragments and the editor.
type Handlers struct {
	renderer    *render.Renderer
	store       *store.Store
	bundle      *i18n.Bundle
	visits      *session.Registry[*experience.Visit]
	workspaces  *session.Registry[*admin.Workspace]
	editor      *admin.Controller
	newLoader   func() *experience.Loader
	letterDelay time.Duration
	uploadLimit int64
	now         func() time.Time
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newLoader := deps.NewLoader
	if newLoader == nil {
		newLoader = func() *experience.Loader { return nil }
	}
	letterDelay := deps.LetterDelay
	if letterDelay <= 0 {
		letterDelay = experience.DefaultLetterDelay
	}
	uploadLimit := deps.UploadLimit
	if uploadLimit <= 0 {
		uploadLimit = admin.DefaultUploadLimit
	}
	visits := deps.Visits
	if visits == nil {
		visits = session.NewRegistry[*experience.Visit](0, now)
	}
	workspaces := deps.Workspaces
	if workspaces == nil {
		workspaces = session.NewRegistry[*admin.Workspace](0, now)
	}
	return &Handlers{
		renderer:    deps.Renderer,
		store:       deps.Store,
		bundle:      deps.Bundle,
		visits:      visits,
		workspaces:  workspaces,
		editor:      admin.NewController(deps.Store, uploadLimit),
		newLoader:   newLoader,
		letterDelay: letterDelay,
		uploadLimit: uploadLimit,
		now:         now,
	}
}

// MaxFormMemory bounds multipart parsing of editor requests.
func (h *Handlers) MaxFormMemory() int64 {
	return h.uploadLimit + 1<<20
}

func (h *Handlers) translator(r *http.Request) i18n.Translator {
	return h.bundle.For(custommw.LocaleFromContext(r.Context(), h.bundle.Fallback()))
}

func (h *Handlers) page(r *http.Request, doc content.Document) render.Page {
	token := custommw.CSRFTokenFromContext(r.Context())
	if token == "" {
		if sess, ok := custommw.SessionFromContext(r.Context()); ok {
			token = sess.CSRFToken()
		}
	}
	return render.NewPage(h.translator(r), token, doc)
}

func (h *Handlers) owner(r *http.Request) (string, bool) {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		return "", false
	}
	return sess.ID(), true
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, name, data); err != nil {
		observability.FromContext(r.Context()).Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handlers) loadDocument(w http.ResponseWriter, r *http.Request) (content.Document, bool) {
	doc, err := h.store.Load(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Error("load content failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return content.Document{}, false
	}
	return doc, true
}
