package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukerupert/tripkeep/internal/auth"
)

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"backup.zip":      "application/zip",
		"OLD.JSON":        "application/json",
		"dir/export.json": "application/json",
	}
	for path, want := range tests {
		got, err := contentTypeFor(path)
		if err != nil {
			t.Errorf("contentTypeFor(%q): %v", path, err)
			continue
		}
		if got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", path, got, want)
		}
	}
	if _, err := contentTypeFor("notes.txt"); err == nil {
		t.Error("expected error for .txt")
	}
}

// useConfig points the commands at a fresh config in a temp dir.
func useConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TRIPKEEP_JWT_SECRET", "cli-secret")
	t.Setenv("TRIPKEEP_DB_PATH", filepath.Join(dir, "trip.sqlite"))
	t.Setenv("TRIPKEEP_ASSETS_FOLDER", filepath.Join(dir, "assets"))
	t.Setenv("TRIPKEEP_ATTACHMENTS_FOLDER", filepath.Join(dir, "attachments"))
	t.Setenv("TRIPKEEP_BACKUPS_FOLDER", filepath.Join(dir, "backups"))
	t.Setenv("TRIPKEEP_LOG_LEVEL", "error")
	configFile = ""
	return dir
}

func TestExportImportCommands(t *testing.T) {
	dir := useConfig(t)
	legacy := filepath.Join(dir, "old.json")
	if err := os.WriteFile(legacy, []byte(`{"settings":{"currency":"$"}}`), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}

	imp := importCmd()
	imp.SetArgs([]string{"--user", "alice", legacy})
	if err := imp.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}

	out := filepath.Join(dir, "alice.zip")
	exp := exportCmd()
	exp.SetArgs([]string{"--user", "alice", "--out", out})
	if err := exp.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("export is not a zip: %v", err)
	}
	found := false
	for _, f := range zr.File {
		if f.Name == "data.json" {
			found = true
		}
	}
	if !found {
		t.Error("export has no data.json")
	}
}

func TestExportRejectsInvalidUser(t *testing.T) {
	useConfig(t)
	exp := exportCmd()
	exp.SetArgs([]string{"--user", "not a user"})
	if err := exp.Execute(); err == nil {
		t.Error("expected error for invalid username")
	}
}

func TestTokenCommand(t *testing.T) {
	useConfig(t)

	var buf bytes.Buffer
	cmd := tokenCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--user", "alice"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	user, err := auth.ParseToken([]byte("cli-secret"), string(bytes.TrimSpace(buf.Bytes())))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if user != "alice" {
		t.Errorf("user = %q, want %q", user, "alice")
	}
}

func TestPullRequiresOffsite(t *testing.T) {
	useConfig(t)
	cmd := pullCmd()
	cmd.SetArgs([]string{"--user", "alice", "--id", "1"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without off-site configuration")
	}
}
