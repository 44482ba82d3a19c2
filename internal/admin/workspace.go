package admin

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
	"github.com/NZ-247/WebSite-Romantic/internal/store"
)

const (
	// PlaceholderPhotoURL is appended by AddPhoto.
	PlaceholderPhotoURL = "/public/static/images/foto-extra.svg"
	// PlaceholderCaption is the caption of an added placeholder photo.
	PlaceholderCaption = "Novo momento especial"
	// DefaultUploadLimit caps uploaded images before encoding.
	DefaultUploadLimit int64 = 8 << 20
)

var (
	// ErrUnsupportedImage means the uploaded file is empty or not an image.
	ErrUnsupportedImage = errors.New("admin: unsupported image")
	// ErrImageTooLarge means the upload exceeded the configured limit.
	ErrImageTooLarge = errors.New("admin: image too large")
	// ErrIndexOutOfRange means a row index does not exist in the working copy.
	ErrIndexOutOfRange = errors.New("admin: index out of range")
)

// Direction of a section move.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// Workspace holds the working copy edited by one admin page. The working copy is the
// single source of truth; the form is re-populated from it after every operation.
type Workspace struct {
	mu          sync.Mutex
	doc         content.Document
	uploadLimit int64
}

// NewWorkspace starts editing doc.
func NewWorkspace(doc content.Document, uploadLimit int64) *Workspace {
	if uploadLimit <= 0 {
		uploadLimit = DefaultUploadLimit
	}
	return &Workspace{doc: doc.Clone(), uploadLimit: uploadLimit}
}

// Document returns a copy of the working copy.
func (w *Workspace) Document() content.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Clone()
}

// Form returns the form projection of the working copy.
func (w *Workspace) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Populate(w.doc)
}

// Replace swaps the working copy, as after a reset.
func (w *Workspace) Replace(doc content.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc = doc.Clone()
}

// Apply collects the submitted form into the working copy and returns the result.
func (w *Workspace) Apply(values url.Values) content.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc = Collect(w.doc, values)
	return w.doc.Clone()
}

// MoveSection swaps section i with its neighbour in dir. Moves past either end are
// no-ops.
func (w *Workspace) MoveSection(i int, dir Direction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.doc.Sections) {
		return fmt.Errorf("%w: section %d", ErrIndexOutOfRange, i)
	}
	j := i + int(dir)
	if j < 0 || j >= len(w.doc.Sections) {
		return nil
	}
	w.doc.Sections[i], w.doc.Sections[j] = w.doc.Sections[j], w.doc.Sections[i]
	return nil
}

// RemovePhoto deletes photo i.
func (w *Workspace) RemovePhoto(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.doc.Photos) {
		return fmt.Errorf("%w: photo %d", ErrIndexOutOfRange, i)
	}
	w.doc.Photos = append(w.doc.Photos[:i:i], w.doc.Photos[i+1:]...)
	return nil
}

// AddPhoto appends the placeholder photo.
func (w *Workspace) AddPhoto() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc.Photos = append(w.doc.Photos, content.Photo{URL: PlaceholderPhotoURL, Caption: PlaceholderCaption})
}

// UploadPhoto appends an uploaded image as a data URL, captioned with the file name
// without its extension. On error the working copy is unchanged.
func (w *Workspace) UploadPhoto(name string, r io.Reader) error {
	dataURL, err := EncodeImage(name, r, w.uploadLimit)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc.Photos = append(w.doc.Photos, content.Photo{URL: dataURL, Caption: CaptionFromFilename(name)})
	return nil
}

// ReplacePhoto overwrites the url of photo i with an uploaded image. On error the
// working copy is unchanged.
func (w *Workspace) ReplacePhoto(i int, name string, r io.Reader) error {
	w.mu.Lock()
	n := len(w.doc.Photos)
	w.mu.Unlock()
	if i < 0 || i >= n {
		return fmt.Errorf("%w: photo %d", ErrIndexOutOfRange, i)
	}

	dataURL, err := EncodeImage(name, r, w.uploadLimit)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if i >= len(w.doc.Photos) {
		return fmt.Errorf("%w: photo %d", ErrIndexOutOfRange, i)
	}
	w.doc.Photos[i].URL = dataURL
	return nil
}

// CaptionFromFilename strips the directory and the last extension.
func CaptionFromFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	if ext := path.Ext(base); len(ext) > 1 {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// EncodeImage reads at most limit bytes of an image and returns it as a base64 data
// URL. The media type is sniffed from the content; SVG is recognised by markup.
func EncodeImage(name string, r io.Reader, limit int64) (string, error) {
	if r == nil {
		return "", ErrUnsupportedImage
	}
	if limit <= 0 {
		limit = DefaultUploadLimit
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("admin: read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", ErrImageTooLarge
	}
	if len(data) == 0 {
		return "", ErrUnsupportedImage
	}

	mime := sniffImage(name, data)
	if mime == "" {
		return "", ErrUnsupportedImage
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func sniffImage(name string, data []byte) string {
	detected := http.DetectContentType(data)
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	if strings.EqualFold(path.Ext(name), ".svg") && (detected == "text/xml" || detected == "text/plain") {
		if bytes.Contains(bytes.ToLower(data[:min(len(data), 1024)]), []byte("<svg")) {
			return "image/svg+xml"
		}
	}
	return ""
}

// Controller commits workspaces through the content store.
type Controller struct {
	store       *store.Store
	uploadLimit int64
}

// NewController returns a controller over s.
func NewController(s *store.Store, uploadLimit int64) *Controller {
	return &Controller{store: s, uploadLimit: uploadLimit}
}

// Open loads the effective document into a new workspace.
func (c *Controller) Open(ctx context.Context) (*Workspace, error) {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewWorkspace(doc, c.uploadLimit), nil
}

// Save collects the form and replaces the persisted override.
func (c *Controller) Save(ctx context.Context, ws *Workspace, values url.Values) error {
	return c.store.Save(ctx, ws.Apply(values))
}

// Export collects the form and writes the pretty-printed document without persisting.
func (c *Controller) Export(ws *Workspace, values url.Values, out io.Writer) error {
	return store.Export(out, ws.Apply(values))
}

// Reset deletes the override and reloads the working copy from the default document.
func (c *Controller) Reset(ctx context.Context, ws *Workspace) error {
	if err := c.store.Reset(ctx); err != nil {
		return err
	}
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ws.Replace(doc)
	return nil
}
