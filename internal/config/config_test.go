package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "storage/trip.sqlite" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "storage/trip.sqlite")
	}
	if cfg.AttachmentMaxSize != 10<<20 {
		t.Errorf("AttachmentMaxSize = %d, want %d", cfg.AttachmentMaxSize, 10<<20)
	}
	if cfg.TokenTTL != 720*time.Hour {
		t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, 720*time.Hour)
	}
	if cfg.Offsite.Region != "us-east-1" {
		t.Errorf("Offsite.Region = %q, want %q", cfg.Offsite.Region, "us-east-1")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing jwt secret to fail validation")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRIPKEEP_PORT", "9090")
	t.Setenv("TRIPKEEP_JWT_SECRET", "s3cret")
	t.Setenv("TRIPKEEP_BACKUP_RETENTION", "168h")
	t.Setenv("TRIPKEEP_OFFSITE_BUCKET", "trips")
	t.Setenv("TRIPKEEP_PROVIDER_PLACES_URL", "http://localhost:9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.BackupRetention != 168*time.Hour {
		t.Errorf("BackupRetention = %v, want %v", cfg.BackupRetention, 168*time.Hour)
	}
	if cfg.Offsite.Bucket != "trips" {
		t.Errorf("Offsite.Bucket = %q, want %q", cfg.Offsite.Bucket, "trips")
	}
	if cfg.Provider.Places != "http://localhost:9999" {
		t.Errorf("Provider.Places = %q", cfg.Provider.Places)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tripkeep.yaml")
	content := "port: \"7000\"\nlog_format: json\noffsite:\n  bucket: mirror\n  passphrase: pw\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7000" || cfg.LogFormat != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Offsite.Bucket != "mirror" || cfg.Offsite.Passphrase != "pw" {
		t.Errorf("Offsite = %+v", cfg.Offsite)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
