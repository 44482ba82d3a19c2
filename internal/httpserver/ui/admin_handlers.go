package ui

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/admin"
	custommw "github.com/NZ-247/WebSite-Romantic/internal/httpserver/middleware"
	"github.com/NZ-247/WebSite-Romantic/internal/observability"
	"github.com/NZ-247/WebSite-Romantic/internal/render"
	"github.com/NZ-247/WebSite-Romantic/internal/store"
)

const (
	// WorkspaceField carries the workspace id in every editor submission.
	WorkspaceField = "workspace_id"
	// HeaderWorkspace is accepted when the field is absent.
	HeaderWorkspace = "X-Workspace-ID"
	// UploadField is the file input that appends a photo.
	UploadField = "photo.upload"
	// ReplaceFieldPrefix prefixes the per-row replacement file input.
	ReplaceFieldPrefix = "photo.replace."
)

// AdminPage opens a workspace on the effective document and renders the editor.
func (h *Handlers) AdminPage(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ws, err := h.editor.Open(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Error("open workspace failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	id := h.workspaces.Put(owner, ws)
	h.render(w, r, "admin", render.NewAdmin(h.page(r, ws.Document()), id, ws.Form(), render.Alert{}))
}

// editorAction runs against the workspace of the submitted form and replies with the
// re-populated form. It returns the alert to show, or the zero Alert for none.
type editorAction func(r *http.Request, ws *admin.Workspace) render.Alert

func (h *Handlers) onWorkspace(action editorAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := custommw.ParseForm(r, h.MaxFormMemory()); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		id, ws, ok := h.workspace(r)
		alert := render.Alert{}
		if !ok {
			var err error
			id, ws, err = h.reopen(r)
			if err != nil {
				observability.FromContext(r.Context()).Error("reopen workspace failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			alert = h.alert(r, "error", "admin.alert.expired")
		} else {
			alert = action(r, ws)
		}
		h.render(w, r, "admin-form", render.NewAdmin(h.page(r, ws.Document()), id, ws.Form(), alert))
	}
}

func (h *Handlers) workspace(r *http.Request) (string, *admin.Workspace, bool) {
	owner, ok := h.owner(r)
	if !ok {
		return "", nil, false
	}
	id := strings.TrimSpace(r.PostForm.Get(WorkspaceField))
	if id == "" {
		id = strings.TrimSpace(r.Header.Get(HeaderWorkspace))
	}
	ws, found := h.workspaces.Get(owner, id)
	return id, ws, found
}

func (h *Handlers) reopen(r *http.Request) (string, *admin.Workspace, error) {
	owner, ok := h.owner(r)
	if !ok {
		return "", nil, errors.New("ui: request has no session")
	}
	ws, err := h.editor.Open(r.Context())
	if err != nil {
		return "", nil, err
	}
	return h.workspaces.Put(owner, ws), ws, nil
}

func (h *Handlers) alert(r *http.Request, kind, key string) render.Alert {
	return render.Alert{Kind: kind, Message: h.translator(r).T(key)}
}

// ApplyForm collects the form into the working copy, refreshing previews.
func (h *Handlers) ApplyForm() http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		ws.Apply(r.PostForm)
		return render.Alert{}
	})
}

// MoveSection swaps a section with its neighbour.
func (h *Handlers) MoveSection(dir admin.Direction) http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		ws.Apply(r.PostForm)
		if i, ok := indexParam(r); ok {
			h.logIndexError(r, ws.MoveSection(i, dir))
		}
		return render.Alert{}
	})
}

// AddPhoto appends a placeholder photo.
func (h *Handlers) AddPhoto() http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		ws.Apply(r.PostForm)
		ws.AddPhoto()
		return render.Alert{}
	})
}

// RemovePhoto deletes a photo row.
func (h *Handlers) RemovePhoto() http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		ws.Apply(r.PostForm)
		if i, ok := indexParam(r); ok {
			h.logIndexError(r, ws.RemovePhoto(i))
		}
		return render.Alert{}
	})
}

// UploadPhoto appends an uploaded image as a data URI.
func (h *Handlers) UploadPhoto() http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		ws.Apply(r.PostForm)
		err := h.withFile(r, UploadField, ws.UploadPhoto)
		return h.uploadAlert(r, err)
	})
}

// ReplacePhoto swaps the image of one photo row for an uploaded one.
func (h *Handlers) ReplacePhoto() http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		ws.Apply(r.PostForm)
		i, ok := indexParam(r)
		if !ok {
			return h.uploadAlert(r, admin.ErrIndexOutOfRange)
		}
		err := h.withFile(r, ReplaceFieldPrefix+strconv.Itoa(i), func(name string, f io.Reader) error {
			return ws.ReplacePhoto(i, name, f)
		})
		return h.uploadAlert(r, err)
	})
}

// SaveForm collects the form and persists it as the override.
func (h *Handlers) SaveForm() http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		if err := h.editor.Save(r.Context(), ws, r.PostForm); err != nil {
			observability.FromContext(r.Context()).Error("save content failed", zap.Error(err))
			return h.alert(r, "error", "admin.alert.failed")
		}
		return h.alert(r, "success", "admin.alert.saved")
	})
}

// ResetContent drops the override and reloads the default document.
func (h *Handlers) ResetContent() http.HandlerFunc {
	return h.onWorkspace(func(r *http.Request, ws *admin.Workspace) render.Alert {
		if err := h.editor.Reset(r.Context(), ws); err != nil {
			observability.FromContext(r.Context()).Error("reset content failed", zap.Error(err))
			return h.alert(r, "error", "admin.alert.failed")
		}
		return h.alert(r, "success", "admin.alert.reset")
	})
}

// ExportContent downloads the collected form as JSON without persisting it.
func (h *Handlers) ExportContent(w http.ResponseWriter, r *http.Request) {
	if err := custommw.ParseForm(r, h.MaxFormMemory()); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	_, ws, ok := h.workspace(r)
	if !ok {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	var buf bytes.Buffer
	if err := h.editor.Export(ws, r.PostForm, &buf); err != nil {
		observability.FromContext(r.Context()).Error("export content failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", store.ExportFilename))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) withFile(r *http.Request, field string, fn func(string, io.Reader) error) error {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return admin.ErrUnsupportedImage
	}
	header := r.MultipartForm.File[field][0]
	f, err := header.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(header.Filename, f)
}

func (h *Handlers) uploadAlert(r *http.Request, err error) render.Alert {
	if err == nil {
		return render.Alert{}
	}
	observability.FromContext(r.Context()).Warn("photo upload rejected", zap.Error(err))
	return h.alert(r, "error", "admin.alert.upload")
}

func (h *Handlers) logIndexError(r *http.Request, err error) {
	if err != nil {
		observability.FromContext(r.Context()).Warn("editor row action ignored", zap.Error(err))
	}
}

func indexParam(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	return i, err == nil && i >= 0
}
