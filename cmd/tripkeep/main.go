package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/tripkeep/internal/assets"
	"github.com/dukerupert/tripkeep/internal/backup"
	"github.com/dukerupert/tripkeep/internal/config"
	"github.com/dukerupert/tripkeep/internal/logging"
	"github.com/dukerupert/tripkeep/internal/provider"
	"github.com/dukerupert/tripkeep/internal/server"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "tripkeep",
		Short:         "Trip planner backup and restore service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(pullCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and configures the default logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}

func openAssets(cfg *config.Config) (*assets.Store, error) {
	return assets.New(cfg.AssetsFolder, cfg.AttachmentsFolder)
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		JWTSecret: []byte(cfg.JWTSecret),
		Backup:    backupConfig(cfg),
		Offsite:   offsiteConfig(cfg),
		Provider: provider.Config{
			PlacesURL:  cfg.Provider.Places,
			GeocodeURL: cfg.Provider.Geocode,
			RoutesURL:  cfg.Provider.Routes,
		},
		WSOrigins: cfg.WSOrigins,
	}
}

func backupConfig(cfg *config.Config) backup.Config {
	return backup.Config{
		BackupsDir:        cfg.BackupsFolder,
		MaxAttachmentSize: cfg.AttachmentMaxSize,
		Retention:         cfg.BackupRetention,
	}
}

func offsiteConfig(cfg *config.Config) backup.S3Config {
	return backup.S3Config{
		Endpoint:   cfg.Offsite.Endpoint,
		Bucket:     cfg.Offsite.Bucket,
		Region:     cfg.Offsite.Region,
		AccessKey:  cfg.Offsite.AccessKey,
		SecretKey:  cfg.Offsite.SecretKey,
		Passphrase: cfg.Offsite.Passphrase,
	}
}
