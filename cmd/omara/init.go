package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/erazemk/omara/internal/config"
	"github.com/erazemk/omara/internal/db"
	"github.com/erazemk/omara/internal/store"
)

func newInitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty item store",
		Long: `Create an empty item store at the configured path: an empty JSON array
for the json backend, or the schema for the sqlite backend. An existing
store is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(nil)
			if err != nil {
				return err
			}
			path, err := initStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Store created: %s (%s)\n", path, cfg.Store.Backend)
			return nil
		},
	}
}

// initStore creates the configured store and its image directory.
func initStore(ctx context.Context, cfg *config.Config) (string, error) {
	path := cfg.StorePath()
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("store file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating store directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Images.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}

	switch cfg.Store.Backend {
	case store.BackendSQLite:
		database, err := db.Open(path)
		if err != nil {
			return "", err
		}
		defer database.Close()
		if err := db.EnsureSchema(database); err != nil {
			os.Remove(path)
			return "", err
		}
		if _, err := store.GetJWTSecret(ctx, database); err != nil {
			return "", err
		}
	default:
		if err := store.NewJSONStore(path).Init(); err != nil {
			return "", err
		}
	}
	return path, nil
}
