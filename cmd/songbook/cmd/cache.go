package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/store"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the offline cache",
		Long: `The offline cache is a SQLite copy of the last corpus that loaded
successfully. When the corpus file cannot be read, searches run against it.`,
	}

	cmd.AddCommand(newCacheInfoCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show what the offline cache holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := newWriter(cmd, cfg)

			if !cfg.Cache.Enabled {
				out.Warning("Offline cache is disabled (cache.enabled: false)")
				return nil
			}
			if _, err := os.Stat(cfg.Cache.Path); os.IsNotExist(err) {
				out.Warning("Offline cache is empty")
				out.KeyValue("path", cfg.Cache.Path)
				return nil
			}

			cache, err := store.Open(cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer func() { _ = cache.Close() }()

			n, err := cache.Count(ctx)
			if err != nil {
				return err
			}
			out.KeyValue("path", cache.Path())
			out.KeyValue("songs", n)
			for _, key := range []string{store.MetaSource, store.MetaFingerprint, store.MetaUpdatedAt} {
				if v, ok, err := cache.Meta(ctx, key); err == nil && ok {
					out.KeyValue(key, v)
				}
			}
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every song from the offline cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := newWriter(cmd, cfg)

			if _, err := os.Stat(cfg.Cache.Path); os.IsNotExist(err) {
				out.Success("Offline cache is already empty")
				return nil
			}

			cache, err := store.Open(cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer func() { _ = cache.Close() }()

			if err := cache.Clear(ctx); err != nil {
				if sberrors.GetCode(err) == sberrors.ErrCodeCacheBusy {
					out.Warning("Cache is in use by another songbook process; try again")
				}
				return err
			}
			// The next load must not skip the rewrite as unchanged.
			if err := cache.SetMeta(ctx, store.MetaFingerprint, ""); err != nil {
				return err
			}
			out.Successf("Cleared offline cache at %s", cache.Path())
			return nil
		},
	}
}
