package ui

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/experience"
	"github.com/NZ-247/WebSite-Romantic/internal/observability"
	"github.com/NZ-247/WebSite-Romantic/internal/render"
)

// ExperiencePage starts a visit and renders the envelope experience.
func (h *Handlers) ExperiencePage(w http.ResponseWriter, r *http.Request) {
	visit, page, ok := h.startVisit(w, r)
	if !ok {
		return
	}
	h.render(w, r, "experience", render.NewExperience(page, visit.Document(), visit.Snapshot()))
}

// ClassicPage starts a visit and renders every section in order.
func (h *Handlers) ClassicPage(w http.ResponseWriter, r *http.Request) {
	visit, page, ok := h.startVisit(w, r)
	if !ok {
		return
	}
	h.render(w, r, "classic", render.NewClassic(page, visit.Document(), visit.Snapshot()))
}

func (h *Handlers) startVisit(w http.ResponseWriter, r *http.Request) (*experience.Visit, render.Page, bool) {
	owner, ok := h.owner(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, render.Page{}, false
	}
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return nil, render.Page{}, false
	}

	visit := experience.NewVisit(doc, experience.Options{
		LetterDelay: h.letterDelay,
		Loader:      h.newLoader(),
		Now:         h.now,
	})
	page := h.page(r, doc)
	page.VisitID = h.visits.Put(owner, visit)
	page.Hearts = h.renderer.Hearts()
	return visit, page, true
}

// visit resolves the visit a fragment request belongs to. An unknown or expired visit
// asks htmx to reload the page, which starts a new one.
func (h *Handlers) visit(w http.ResponseWriter, r *http.Request) (*experience.Visit, bool) {
	owner, ok := h.owner(r)
	if ok {
		if visit, found := h.visits.Get(owner, r.Header.Get(render.HeaderVisit)); found {
			return visit, true
		}
	}
	observability.FromContext(r.Context()).Info("visit not found; refreshing page")
	w.Header().Set("HX-Refresh", "true")
	w.WriteHeader(http.StatusGone)
	return nil, false
}

func (h *Handlers) scenes(w http.ResponseWriter, r *http.Request, visit *experience.Visit, snap experience.Snapshot) {
	doc := visit.Document()
	h.render(w, r, "scenes", render.NewExperience(h.page(r, doc), doc, snap))
}

// OpenEnvelope starts the opening animation.
func (h *Handlers) OpenEnvelope(w http.ResponseWriter, r *http.Request) {
	if visit, ok := h.visit(w, r); ok {
		h.scenes(w, r, visit, visit.OpenEnvelope())
	}
}

// Letter re-renders the scenes once the opening delay has elapsed.
func (h *Handlers) Letter(w http.ResponseWriter, r *http.Request) {
	if visit, ok := h.visit(w, r); ok {
		h.scenes(w, r, visit, visit.Snapshot())
	}
}

// ShowPhotos reveals the first photo.
func (h *Handlers) ShowPhotos(w http.ResponseWriter, r *http.Request) {
	if visit, ok := h.visit(w, r); ok {
		h.scenes(w, r, visit, visit.ShowPhotos())
	}
}

// NextPhoto reveals the next photo or restarts the deck.
func (h *Handlers) NextPhoto(w http.ResponseWriter, r *http.Request) {
	if visit, ok := h.visit(w, r); ok {
		h.scenes(w, r, visit, visit.NextPhoto())
	}
}

// PrevPhoto hides the most recently revealed photo.
func (h *Handlers) PrevPhoto(w http.ResponseWriter, r *http.Request) {
	if visit, ok := h.visit(w, r); ok {
		h.scenes(w, r, visit, visit.PrevPhoto())
	}
}

// ToggleMusic plays or pauses the song. Failures are logged and render the idle widget.
func (h *Handlers) ToggleMusic(w http.ResponseWriter, r *http.Request) {
	visit, ok := h.visit(w, r)
	if !ok {
		return
	}
	snap, err := visit.ToggleMusic(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Warn("music playback failed", zap.Error(err))
	}
	h.music(w, r, visit, snap)
}

// MusicDenied records that the browser could not start the audio element or the track
// player.
func (h *Handlers) MusicDenied(w http.ResponseWriter, r *http.Request) {
	if visit, ok := h.visit(w, r); ok {
		h.music(w, r, visit, visit.MusicDenied())
	}
}

func (h *Handlers) music(w http.ResponseWriter, r *http.Request, visit *experience.Visit, snap experience.Snapshot) {
	h.render(w, r, "music", render.NewMusicWidget(h.translator(r), visit.Document().Song, snap.Music))
}

// CarouselNext advances a gallery carousel.
func (h *Handlers) CarouselNext(w http.ResponseWriter, r *http.Request) {
	h.stepCarousel(w, r, true)
}

// CarouselPrev moves a gallery carousel back.
func (h *Handlers) CarouselPrev(w http.ResponseWriter, r *http.Request) {
	h.stepCarousel(w, r, false)
}

func (h *Handlers) stepCarousel(w http.ResponseWriter, r *http.Request, forward bool) {
	section, err := strconv.Atoi(chi.URLParam(r, "section"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	visit, ok := h.visit(w, r)
	if !ok {
		return
	}
	snap, ok := visit.StepCarousel(section, forward)
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc := visit.Document()
	h.render(w, r, "carousel", render.NewCarouselWidget(h.translator(r), doc, section, snap.Carousels[section]))
}
