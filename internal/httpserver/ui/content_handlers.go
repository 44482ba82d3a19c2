package ui

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
	"github.com/NZ-247/WebSite-Romantic/internal/observability"
)

// ContentJSON serves the effective normalized document.
func (h *Handlers) ContentJSON(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	data, err := content.Encode(doc, true)
	if err != nil {
		observability.FromContext(r.Context()).Error("encode content failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
