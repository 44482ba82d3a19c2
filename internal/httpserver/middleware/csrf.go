package middleware

import (
	"context"
	"crypto/subtle"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/observability"
)

type csrfContextKey string

const csrfTokenContextKey csrfContextKey = "csrf.token"

// CSRFConfig controls where the submitted token is read from.
type CSRFConfig struct {
	HeaderName string
	FieldName  string
	// MaxMemory bounds multipart parsing when the token arrives as a form field.
	MaxMemory int64
}

// CSRF checks unsafe requests against the token stored in the session. htmx requests
// send it as a header; native form posts as a hidden field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-CSRF-Token"
	}
	fieldName := cfg.FieldName
	if fieldName == "" {
		fieldName = "csrf_token"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}
			token := sess.CSRFToken()

			if isUnsafeMethod(r.Method) {
				submitted := r.Header.Get(headerName)
				if submitted == "" {
					submitted = formToken(r, fieldName, cfg.MaxMemory)
				}
				if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
					observability.FromContext(r.Context()).Warn("csrf token mismatch", zap.Bool("present", submitted != ""))
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), csrfTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in pages and forms.
func CSRFTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(csrfTokenContextKey).(string); ok {
		return token
	}
	return ""
}

func formToken(r *http.Request, field string, maxMemory int64) string {
	if err := ParseForm(r, maxMemory); err != nil {
		return ""
	}
	return r.PostForm.Get(field)
}

// ParseForm parses urlencoded and multipart bodies once. Later calls are no-ops.
func ParseForm(r *http.Request, maxMemory int64) error {
	if r.PostForm != nil {
		return nil
	}
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
