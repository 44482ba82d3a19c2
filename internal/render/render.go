package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// DefaultHearts is the number of decorative hearts drawn behind the experience.
const DefaultHearts = 22

// Renderer executes the page and fragment templates.
type Renderer struct {
	dir    string
	hearts int
	cached *template.Template

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithTemplatesDir reparses templates from dir on every render instead of using the
// embedded set. Intended for local development.
func WithTemplatesDir(dir string) Option {
	return func(r *Renderer) {
		r.dir = strings.TrimSpace(dir)
	}
}

// WithRandSource sets the source of the decorative hearts. A fixed source makes every
// render byte-identical.
func WithRandSource(src rand.Source) Option {
	return func(r *Renderer) {
		if src != nil {
			r.rng = rand.New(src)
		}
	}
}

// WithHearts overrides the number of decorative hearts. Negative values are ignored.
func WithHearts(n int) Option {
	return func(r *Renderer) {
		if n >= 0 {
			r.hearts = n
		}
	}
}

// New parses the templates once so broken markup fails at startup.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		hearts: DefaultHearts,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}

	t, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.cached = t
	return r, nil
}

func (r *Renderer) parse() (*template.Template, error) {
	root := template.New("_root").Funcs(funcMap())
	if r.dir == "" {
		return root.ParseFS(embedded, "templates/*.tmpl")
	}

	var files []string
	if err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("render: no templates found under %s", r.dir)
	}
	return root.ParseFiles(files...)
}

// Render executes the named template. Output is buffered so a failing template never
// writes a partial page.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	t := r.cached
	if r.dir != "" {
		parsed, err := r.parse()
		if err != nil {
			return fmt.Errorf("render: parse templates: %w", err)
		}
		t = parsed
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render: execute %s: %w", name, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Hearts draws a fresh set of decorative hearts.
func (r *Renderer) Hearts() []Heart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return NewHearts(r.rng, r.hearts)
}
