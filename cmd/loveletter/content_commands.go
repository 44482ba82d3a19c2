package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
	"github.com/NZ-247/WebSite-Romantic/internal/observability"
	"github.com/NZ-247/WebSite-Romantic/internal/store"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect and manage the stored content",
	}
	contentCmd.AddCommand(newContentShowCommand(ctx))
	contentCmd.AddCommand(newContentExportCommand(ctx))
	contentCmd.AddCommand(newContentResetCommand(ctx))
	return contentCmd
}

func newContentShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective normalized document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(s *store.Store) error {
				doc, err := s.Load(cmd.Context())
				if err != nil {
					return err
				}
				data, err := content.Encode(doc, true)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}

func newContentExportCommand(ctx *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the effective document as " + store.ExportFilename,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(out)
			if target == "" {
				target = store.ExportFilename
			}
			return withStore(ctx, func(s *store.Store) error {
				doc, err := s.Load(cmd.Context())
				if err != nil {
					return err
				}
				if target == "-" {
					return store.Export(cmd.OutOrStdout(), doc)
				}
				if dir := filepath.Dir(target); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("create %s: %w", dir, err)
					}
				}
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create %s: %w", target, err)
				}
				if err := store.Export(f, doc); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, or - for stdout (default "+store.ExportFilename+")")
	return cmd
}

func newContentResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored override so the default document is served",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(s *store.Store) error {
				if err := s.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stored content removed; the default document is active")
				return nil
			})
		},
	}
}

func withStore(ctx *commandContext, fn func(*store.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	// Commands print to stdout, so logs go to stderr.
	logger := observability.NewWriterLogger(os.Stderr, cfg.Log.Level)
	defer func() { _ = logger.Sync() }()
	s, closeStore, err := ctx.openStore(logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	return fn(s)
}
