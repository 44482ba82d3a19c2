package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName = "loveletter_session"
	defaultCookiePath = "/"
	defaultLifetime   = 24 * time.Hour
	tokenBytes        = 32
)

// ErrExpired indicates the stored session is past its absolute expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Data is the payload persisted in the cookie.
type Data struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CSRFToken  string    `json:"csrfToken"`
	Locale     string    `json:"locale,omitempty"`
}

// Session holds the browser's identity for the current request.
type Session struct {
	data Data
}

// Config controls cookie encoding and lifetime.
type Config struct {
	CookieName   string
	HashKey      []byte
	BlockKey     []byte
	CookiePath   string
	CookieSecure bool
	Lifetime     time.Duration
	Now          func() time.Time
}

// Manager decodes and persists sessions via signed (and optionally encrypted) cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewManager constructs a Manager. An empty hash key is replaced with a random one, which
// invalidates cookies across restarts.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		cfg.HashKey = securecookie.GenerateRandomKey(64)
		if cfg.HashKey == nil {
			return nil, fmt.Errorf("%w: could not generate hash key", ErrInvalidConfig)
		}
	}
	if len(cfg.HashKey) < 32 {
		return nil, fmt.Errorf("%w: hash key must be at least 32 bytes", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))

	return &Manager{cfg: cfg, codec: codec, now: now}, nil
}

// Load decodes the session cookie. A missing or tampered cookie yields a fresh session;
// an expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}

	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil || stored.ID == "" {
		return m.New(), nil
	}
	if !stored.ExpiresAt.IsZero() && m.now().After(stored.ExpiresAt) {
		return nil, ErrExpired
	}
	if stored.CSRFToken == "" {
		stored.CSRFToken = mustGenerateToken(tokenBytes)
	}
	return &Session{data: stored}, nil
}

// New returns a pristine session with generated identifiers.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{data: Data{
		ID:         mustGenerateToken(tokenBytes),
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(m.cfg.Lifetime),
		CSRFToken:  mustGenerateToken(tokenBytes),
	}}
}

// Save writes the session to the response as a cookie. It must run before the body.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	sess.data.LastActive = m.now().UTC()

	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.data.ExpiresAt.UTC(),
	}
	if remaining := sess.data.ExpiresAt.Sub(m.now()); remaining > 0 {
		cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
	} else {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
	return nil
}

// Destroy clears the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.cfg.CookieName }

// ID returns the stable session identifier.
func (s *Session) ID() string { return s.data.ID }

// CreatedAt returns the session creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }

// LastActive returns the last access timestamp.
func (s *Session) LastActive() time.Time { return s.data.LastActive }

// ExpiresAt returns the absolute expiry.
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }

// CSRFToken returns the token that unsafe requests must echo back.
func (s *Session) CSRFToken() string { return s.data.CSRFToken }

// Locale returns the explicitly chosen locale, if any.
func (s *Session) Locale() string { return s.data.Locale }

// SetLocale records an explicit locale choice.
func (s *Session) SetLocale(locale string) { s.data.Locale = locale }

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func mustGenerateToken(length int) string {
	token, err := generateToken(length)
	if err != nil {
		panic(fmt.Sprintf("session: generate token: %v", err))
	}
	return token
}

// NewID returns a random URL-safe identifier for registry entries.
func NewID() string {
	return mustGenerateToken(tokenBytes)
}
