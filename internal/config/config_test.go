package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv())
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, ":8080", cfg.Server.Addr())
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "romanticSiteContent", cfg.Storage.Key)
	require.Equal(t, "data/override.json", cfg.Storage.DSN)
	require.Equal(t, 8*time.Second, cfg.Music.LoadTimeout)
	require.Equal(t, 520*time.Millisecond, cfg.Experience.LetterDelay)
	require.Equal(t, 22, cfg.Experience.Hearts)
	require.Equal(t, "pt-BR", cfg.Experience.DefaultLocale)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loveletter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
  readTimeout: 3s
storage:
  dsn: sqlite://data/override.db
music:
  loadTimeout: 2s
log:
  level: debug
`), 0o644))

	cfg, err := Load(
		WithFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"PORT":                      "7000",
			"LOVELETTER_STORAGE_KEY":    "other",
			"LOVELETTER_SESSION_SECURE": "yes",
			"LOVELETTER_LETTER_DELAY":   "1s",
			"LOVELETTER_READ_TIMEOUT":   "not-a-duration",
		}),
	)
	require.NoError(t, err)

	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, 3*time.Second, cfg.Server.ReadTimeout, "invalid env value keeps the file value")
	require.Equal(t, "sqlite://data/override.db", cfg.Storage.DSN)
	require.Equal(t, "other", cfg.Storage.Key)
	require.True(t, cfg.Session.Secure)
	require.Equal(t, 2*time.Second, cfg.Music.LoadTimeout)
	require.Equal(t, time.Second, cfg.Experience.LetterDelay)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoveletterPortBeatsPort(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PORT":            "7000",
		"LOVELETTER_PORT": "7001",
	}))
	require.NoError(t, err)
	require.Equal(t, "7001", cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "absent.yaml")), WithoutSystemEnv())
	require.Error(t, err)
	require.False(t, IsValidationError(err))
}

func TestValidationAggregatesFields(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PORT":                         "abc",
		"LOVELETTER_SESSION_HASH_KEY":  "short",
		"LOVELETTER_SESSION_BLOCK_KEY": "seven77",
		"LOG_LEVEL":                    "loud",
	}))
	require.Error(t, err)
	require.True(t, IsValidationError(err))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.ElementsMatch(t, []string{"Server.Port", "Session.HashKey", "Session.BlockKey", "Log.Level"}, verr.Fields())
	require.Contains(t, err.Error(), "Server.Port")
}
