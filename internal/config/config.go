package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultStorageDSN      = "data/override.json"
	defaultStorageKey      = "romanticSiteContent"
	defaultCookieName      = "loveletter_visit"
	defaultVisitTTL        = 6 * time.Hour
	defaultScriptURL       = "https://open.spotify.com/embed/iframe-api/v1"
	defaultOEmbedURL       = "https://open.spotify.com/oembed"
	defaultEmbedBaseURL    = "https://open.spotify.com/embed/track/"
	defaultMusicTimeout    = 8 * time.Second
	defaultLetterDelay     = 520 * time.Millisecond
	defaultHearts          = 22
	defaultLocale          = "pt-BR"
	defaultLogLevel        = "info"
	defaultUploadLimit     = 8 << 20
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Content    ContentConfig    `yaml:"content"`
	Storage    StorageConfig    `yaml:"storage"`
	Session    SessionConfig    `yaml:"session"`
	Music      MusicConfig      `yaml:"music"`
	Experience ExperienceConfig `yaml:"experience"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// TemplatesDir, when set, makes the renderer reparse templates from disk per request.
	TemplatesDir string `yaml:"templatesDir"`
	UploadLimit  int64  `yaml:"uploadLimit"`
}

// ContentConfig locates the bundled default document. Empty means the embedded copy.
type ContentConfig struct {
	Source string `yaml:"source"`
}

// StorageConfig selects the override backend.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
	Key string `yaml:"key"`
}

// SessionConfig controls the signed visit cookie.
type SessionConfig struct {
	CookieName string        `yaml:"cookieName"`
	HashKey    string        `yaml:"hashKey"`
	BlockKey   string        `yaml:"blockKey"`
	Secure     bool          `yaml:"secure"`
	VisitTTL   time.Duration `yaml:"visitTTL"`
}

// MusicConfig points at the third-party embed endpoints.
type MusicConfig struct {
	ScriptURL    string        `yaml:"scriptURL"`
	OEmbedURL    string        `yaml:"oembedURL"`
	EmbedBaseURL string        `yaml:"embedBaseURL"`
	LoadTimeout  time.Duration `yaml:"loadTimeout"`
}

// ExperienceConfig tunes the public page.
type ExperienceConfig struct {
	LetterDelay   time.Duration `yaml:"letterDelay"`
	Hearts        int           `yaml:"hearts"`
	DefaultLocale string        `yaml:"defaultLocale"`
}

// LogConfig sets the logger level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	file         string
	envMap       map[string]string
	useSystemEnv bool
}

// WithFile reads a YAML file between defaults and environment overrides. A missing
// file is an error; an empty path disables the file layer.
func WithFile(path string) Option {
	return func(o *loaderOptions) {
		o.file = strings.TrimSpace(path)
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			UploadLimit:     defaultUploadLimit,
		},
		Storage: StorageConfig{
			DSN: defaultStorageDSN,
			Key: defaultStorageKey,
		},
		Session: SessionConfig{
			CookieName: defaultCookieName,
			VisitTTL:   defaultVisitTTL,
		},
		Music: MusicConfig{
			ScriptURL:    defaultScriptURL,
			OEmbedURL:    defaultOEmbedURL,
			EmbedBaseURL: defaultEmbedBaseURL,
			LoadTimeout:  defaultMusicTimeout,
		},
		Experience: ExperienceConfig{
			LetterDelay:   defaultLetterDelay,
			Hearts:        defaultHearts,
			DefaultLocale: defaultLocale,
		},
		Log: LogConfig{Level: defaultLogLevel},
	}
}

// Load assembles the configuration from defaults, an optional YAML file and environment
// variables, in that order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := Defaults()
	if options.file != "" {
		data, err := os.ReadFile(options.file)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", options.file, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", options.file, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		return "", false
	}

	cfg.Server.Port = stringWithDefault(lookup, "PORT", cfg.Server.Port)
	cfg.Server.Port = stringWithDefault(lookup, "LOVELETTER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = durationWithDefault(lookup, "LOVELETTER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = durationWithDefault(lookup, "LOVELETTER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = durationWithDefault(lookup, "LOVELETTER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = durationWithDefault(lookup, "LOVELETTER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.TemplatesDir = stringWithDefault(lookup, "LOVELETTER_TEMPLATES_DIR", cfg.Server.TemplatesDir)
	cfg.Server.UploadLimit = int64(intWithDefault(lookup, "LOVELETTER_UPLOAD_LIMIT", int(cfg.Server.UploadLimit)))

	cfg.Content.Source = stringWithDefault(lookup, "LOVELETTER_CONTENT_SOURCE", cfg.Content.Source)

	cfg.Storage.DSN = stringWithDefault(lookup, "LOVELETTER_STORAGE_DSN", cfg.Storage.DSN)
	cfg.Storage.Key = stringWithDefault(lookup, "LOVELETTER_STORAGE_KEY", cfg.Storage.Key)

	cfg.Session.CookieName = stringWithDefault(lookup, "LOVELETTER_SESSION_COOKIE", cfg.Session.CookieName)
	cfg.Session.HashKey = stringWithDefault(lookup, "LOVELETTER_SESSION_HASH_KEY", cfg.Session.HashKey)
	cfg.Session.BlockKey = stringWithDefault(lookup, "LOVELETTER_SESSION_BLOCK_KEY", cfg.Session.BlockKey)
	cfg.Session.Secure = boolWithDefault(lookup, "LOVELETTER_SESSION_SECURE", cfg.Session.Secure)
	cfg.Session.VisitTTL = durationWithDefault(lookup, "LOVELETTER_VISIT_TTL", cfg.Session.VisitTTL)

	cfg.Music.ScriptURL = stringWithDefault(lookup, "LOVELETTER_MUSIC_SCRIPT_URL", cfg.Music.ScriptURL)
	cfg.Music.OEmbedURL = stringWithDefault(lookup, "LOVELETTER_MUSIC_OEMBED_URL", cfg.Music.OEmbedURL)
	cfg.Music.EmbedBaseURL = stringWithDefault(lookup, "LOVELETTER_MUSIC_EMBED_URL", cfg.Music.EmbedBaseURL)
	cfg.Music.LoadTimeout = durationWithDefault(lookup, "LOVELETTER_MUSIC_TIMEOUT", cfg.Music.LoadTimeout)

	cfg.Experience.LetterDelay = durationWithDefault(lookup, "LOVELETTER_LETTER_DELAY", cfg.Experience.LetterDelay)
	cfg.Experience.Hearts = intWithDefault(lookup, "LOVELETTER_HEARTS", cfg.Experience.Hearts)
	cfg.Experience.DefaultLocale = stringWithDefault(lookup, "LOVELETTER_LOCALE", cfg.Experience.DefaultLocale)

	cfg.Log.Level = strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", cfg.Log.Level))

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr returns the listen address for the server.
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

func validateConfig(cfg Config) error {
	var invalid []string

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.UploadLimit <= 0 {
		invalid = append(invalid, "Server.UploadLimit")
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		invalid = append(invalid, "Storage.DSN")
	}
	if strings.TrimSpace(cfg.Storage.Key) == "" {
		invalid = append(invalid, "Storage.Key")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		invalid = append(invalid, "Session.CookieName")
	}
	if cfg.Session.HashKey != "" && len(cfg.Session.HashKey) < 32 {
		invalid = append(invalid, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		invalid = append(invalid, "Session.BlockKey")
	}
	if cfg.Session.VisitTTL <= 0 {
		invalid = append(invalid, "Session.VisitTTL")
	}
	if cfg.Music.LoadTimeout <= 0 {
		invalid = append(invalid, "Music.LoadTimeout")
	}
	if cfg.Experience.LetterDelay <= 0 {
		invalid = append(invalid, "Experience.LetterDelay")
	}
	if cfg.Experience.Hearts < 0 {
		invalid = append(invalid, "Experience.Hearts")
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		invalid = append(invalid, "Log.Level")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
