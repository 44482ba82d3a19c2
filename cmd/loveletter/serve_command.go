package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NZ-247/WebSite-Romantic/internal/admin"
	"github.com/NZ-247/WebSite-Romantic/internal/config"
	"github.com/NZ-247/WebSite-Romantic/internal/experience"
	"github.com/NZ-247/WebSite-Romantic/internal/httpserver"
	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
	"github.com/NZ-247/WebSite-Romantic/internal/render"
	"github.com/NZ-247/WebSite-Romantic/internal/session"
	"github.com/NZ-247/WebSite-Romantic/internal/spotify"
)

const registrySweepInterval = time.Minute

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the experience and the content editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("initialise logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(runCtx, ctx, cfg, logger.Named("loveletter"))
		},
	}
}

func serve(ctx context.Context, cc *commandContext, cfg config.Config, logger *zap.Logger) error {
	contentStore, closeStore, err := cc.openStore(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()
	// Fail at startup when the bundled document is unusable.
	if _, err := contentStore.Default(ctx); err != nil {
		return err
	}

	renderOpts := []render.Option{
		render.WithHearts(cfg.Experience.Hearts),
		render.WithRandSource(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	if cfg.Server.TemplatesDir != "" {
		renderOpts = append(renderOpts, render.WithTemplatesDir(cfg.Server.TemplatesDir))
	}
	renderer, err := render.New(renderOpts...)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	bundle, err := i18n.Load(cfg.Experience.DefaultLocale)
	if err != nil {
		return err
	}

	if cfg.Session.HashKey == "" {
		logger.Warn("session hash key not set; cookies will not survive a restart")
	}
	sessions, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      []byte(cfg.Session.HashKey),
		BlockKey:     []byte(cfg.Session.BlockKey),
		CookieSecure: cfg.Session.Secure,
		Lifetime:     cfg.Session.VisitTTL,
	})
	if err != nil {
		return err
	}

	visits := session.NewRegistry[*experience.Visit](cfg.Session.VisitTTL, nil)
	workspaces := session.NewRegistry[*admin.Workspace](cfg.Session.VisitTTL, nil)
	go visits.Run(ctx, registrySweepInterval)
	go workspaces.Run(ctx, registrySweepInterval)

	embeds := spotify.NewClient(&http.Client{Timeout: cfg.Music.LoadTimeout},
		cfg.Music.ScriptURL, cfg.Music.OEmbedURL, cfg.Music.EmbedBaseURL)

	srv, err := httpserver.New(httpserver.Config{
		Address:    cfg.Server.Addr(),
		Renderer:   renderer,
		Store:      contentStore,
		Sessions:   sessions,
		Bundle:     bundle,
		Logger:     logger,
		Visits:     visits,
		Workspaces: workspaces,
		NewLoader: func() *experience.Loader {
			return experience.NewLoader(func(ctx context.Context) (experience.Capability, error) {
				embed, err := embeds.Acquire(ctx)
				if err != nil {
					return nil, err
				}
				return embed, nil
			}, cfg.Music.LoadTimeout)
		},
		LetterDelay:  cfg.Experience.LetterDelay,
		UploadLimit:  cfg.Server.UploadLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("server listening",
		zap.String("addr", srv.Addr),
		zap.String("storage", cfg.Storage.DSN),
		zap.String("locale", bundle.Fallback()),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
