package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/tripkeep/internal/auth"
	"github.com/dukerupert/tripkeep/internal/backup"
	"github.com/dukerupert/tripkeep/internal/config"
	"github.com/dukerupert/tripkeep/internal/database"
	"github.com/dukerupert/tripkeep/internal/model"
	"github.com/dukerupert/tripkeep/internal/store"
)

// openManager opens the database and a backup manager for one-off CLI use.
// The manager is never started, so no export jobs run.
func openManager(cfg *config.Config, logger *slog.Logger, offsite *backup.Offsite) (*backup.Manager, *sql.DB, error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	as, err := openAssets(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return backup.NewManager(backupConfig(cfg), db, as, offsite, logger.With("component", "backup"), nil), db, nil
}

func validateUser(user string) error {
	if !auth.ValidUsername(user) {
		return fmt.Errorf("invalid username %q", user)
	}
	return nil
}

func exportCmd() *cobra.Command {
	var user, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's backup archive to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUser(user); err != nil {
				return err
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			m, db, err := openManager(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			if out == "" {
				out = backup.DownloadName(&model.Backup{User: user, CreatedAt: time.Now()})
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := m.ExportTo(user, f); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", user, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user to export")
	cmd.Flags().StringVar(&out, "out", "", "output file (default TRIP_<date>_<user>_backup.zip)")
	cmd.MarkFlagRequired("user")
	return cmd
}

// contentTypeFor picks the import format from a file's extension.
func contentTypeFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return "application/zip", nil
	case ".json":
		return "application/json", nil
	}
	return "", fmt.Errorf("cannot import %s: expected a .zip or .json file", path)
}

func importCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a backup archive or legacy JSON export into a user's data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUser(user); err != nil {
				return err
			}
			contentType, err := contentTypeFor(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			m, db, err := openManager(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.NewUserStore(db).Ensure(user); err != nil {
				return err
			}
			result, err := m.Import(cmd.Context(), user, contentType, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d places and %d categories for %s\n", len(result.Places), len(result.Categories), user)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user to import into")
	cmd.MarkFlagRequired("user")
	return cmd
}

func pullCmd() *cobra.Command {
	var user, out string
	var id int64

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download a backup's off-site copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUser(user); err != nil {
				return err
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			offsite := backup.NewOffsite(offsiteConfig(cfg))
			if offsite == nil {
				return errors.New("off-site mirror is not configured")
			}
			m, db, err := openManager(cfg, logger, offsite)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			data, b, err := m.FetchOffsite(ctx, id, user)
			if err != nil {
				return err
			}
			if out == "" {
				out = backup.DownloadName(b)
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded backup %d to %s\n", id, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner of the backup")
	cmd.Flags().Int64Var(&id, "id", 0, "backup id")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("id")
	return cmd
}

func tokenCmd() *cobra.Command {
	var user string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.TokenTTL
			}
			tok, err := auth.IssueToken([]byte(cfg.JWTSecret), user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "username")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default token_ttl)")
	cmd.MarkFlagRequired("user")
	return cmd
}
