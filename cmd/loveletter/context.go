package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/config"
	"github.com/NZ-247/WebSite-Romantic/internal/observability"
	"github.com/NZ-247/WebSite-Romantic/internal/store"
)

type commandContext struct {
	configPath string
	// env replaces the process environment when set.
	env map[string]string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(env map[string]string) *commandContext {
	return &commandContext{env: env}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var opts []config.Option
		if path := strings.TrimSpace(c.configPath); path != "" {
			opts = append(opts, config.WithFile(path))
		}
		if c.env != nil {
			opts = append(opts, config.WithoutSystemEnv(), config.WithEnvMap(c.env))
		}
		c.config, c.configErr = config.Load(opts...)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*zap.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return observability.NewLogger(cfg.Log.Level)
}

// openStore builds the content store from configuration. The returned function releases
// the source watcher and the override backend.
func (c *commandContext) openStore(logger *zap.Logger) (*store.Store, func() error, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	kv, err := store.OpenKV(cfg.Storage.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open override storage: %w", err)
	}
	source := store.NewSource(cfg.Content.Source, logger)

	closeAll := func() error {
		var errs []error
		for _, v := range []any{source, kv} {
			if closer, ok := v.(io.Closer); ok {
				errs = append(errs, closer.Close())
			}
		}
		return errors.Join(errs...)
	}

	s := store.New(source, kv, store.WithKey(cfg.Storage.Key), store.WithLogger(logger))
	return s, closeAll, nil
}
