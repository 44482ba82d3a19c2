package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
	appsession "github.com/NZ-247/WebSite-Romantic/internal/session"
)

func newManager(t *testing.T, now func() time.Time) *appsession.Manager {
	t.Helper()
	m, err := appsession.NewManager(appsession.Config{
		CookieName: "loveletter_test",
		HashKey:    bytes.Repeat([]byte("k"), 32),
		Lifetime:   time.Hour,
		Now:        now,
	})
	require.NoError(t, err)
	return m
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestHTMXMiddleware(t *testing.T) {
	base := HTMX()

	t.Run("detects htmx", func(t *testing.T) {
		handler := base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfoFromContext(r.Context())
			require.True(t, info.IsHTMX)
			require.Equal(t, "scenes", info.Target)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/experience/envelope/open", nil)
		req.Header.Set("HX-Request", "true")
		req.Header.Set("HX-Target", "scenes")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Contains(t, rr.Header().Values("Vary"), "HX-Request")
	})

	t.Run("RequireHTMX blocks direct navigation", func(t *testing.T) {
		handler := base(RequireHTMX()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))
		req := httptest.NewRequest(http.MethodGet, "/experience/envelope/letter", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestNoStoreMiddleware(t *testing.T) {
	handler := NoStore()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, "no-store, max-age=0", rr.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rr.Header().Get("Pragma"))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestSessionMiddleware(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	manager := newManager(t, clock)

	handler := Session(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		sess.SetLocale("en")
		_, _ = w.Write([]byte(sess.ID()))
	}))

	t.Run("issues a cookie that carries later changes", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		cookie := sessionCookie(t, rr, manager.CookieName())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		sess, err := manager.Load(req)
		require.NoError(t, err)
		require.Equal(t, rr.Body.String(), sess.ID())
		require.Equal(t, "en", sess.Locale())
	})

	t.Run("keeps the identity across requests", func(t *testing.T) {
		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(sessionCookie(t, first, manager.CookieName()))
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, req)
		require.Equal(t, first.Body.String(), second.Body.String())
	})

	t.Run("expired session starts over", func(t *testing.T) {
		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
		cookie := sessionCookie(t, first, manager.CookieName())

		later := newManager(t, func() time.Time { return now.Add(2 * time.Hour) })
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		Session(later)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := SessionFromContext(r.Context())
			_, _ = w.Write([]byte(sess.ID()))
		})).ServeHTTP(rr, req)
		require.NotEqual(t, first.Body.String(), rr.Body.String())
	})

	t.Run("saves even when nothing is written", func(t *testing.T) {
		rr := httptest.NewRecorder()
		Session(manager)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotNil(t, sessionCookie(t, rr, manager.CookieName()))
	})
}

func TestCSRFMiddleware(t *testing.T) {
	manager := newManager(t, nil)
	var token string
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = CSRFTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Session(manager)(CSRF(CSRFConfig{})(ok))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, first.Code)
	require.NotEmpty(t, token)
	cookie := sessionCookie(t, first, manager.CookieName())
	issued := token

	t.Run("rejects unsafe request without token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/save", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("rejects a wrong header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/save", nil)
		req.AddCookie(cookie)
		req.Header.Set("X-CSRF-Token", "nope")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("accepts the header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/save", nil)
		req.AddCookie(cookie)
		req.Header.Set("X-CSRF-Token", issued)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("accepts the urlencoded field", func(t *testing.T) {
		form := url.Values{"csrf_token": {issued}}
		req := httptest.NewRequest(http.MethodPost, "/admin/export", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("accepts the multipart field", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("csrf_token", issued))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/admin/export", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestLocaleMiddleware(t *testing.T) {
	bundle, err := i18n.Load("pt-BR")
	require.NoError(t, err)
	manager := newManager(t, nil)

	var got string
	handler := Session(manager)(Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context(), "")
	})))

	t.Run("defaults to the fallback", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, "pt-BR", got)
		require.Equal(t, "pt-BR", rr.Header().Get("Content-Language"))
	})

	t.Run("honours Accept-Language", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		require.Equal(t, "en", got)
	})

	t.Run("query override sticks to the session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?hl=EN", nil))
		require.Equal(t, "en", got)

		req := httptest.NewRequest(http.MethodGet, "/classic", nil)
		req.AddCookie(sessionCookie(t, rr, manager.CookieName()))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		require.Equal(t, "en", got)
	})

	t.Run("unknown override is ignored", func(t *testing.T) {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?hl=xx", nil))
		require.Equal(t, "pt-BR", got)
	})
}

func TestAssetsETag(t *testing.T) {
	handler, err := Assets(fstest.MapFS{
		"css/site.css": &fstest.MapFile{Data: []byte("body { color: red; }")},
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/css/site.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	tag := rr.Header().Get("ETag")
	require.True(t, strings.HasPrefix(tag, `W/"`))
	require.Equal(t, assetCacheControl, rr.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/css/site.css", nil)
	req.Header.Set("If-None-Match", tag)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotModified, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/css/missing.css", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Empty(t, rr.Header().Get("ETag"))
}
