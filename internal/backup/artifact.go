package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// pendingArtifact is an archive being written. Its temp file lives next to
// the final path so Commit is a rename; Cleanup removes the temp file unless
// Commit succeeded, so callers defer it right after creation.
type pendingArtifact struct {
	*os.File
	final     string
	committed bool
}

func newPendingArtifact(dir, name string) (*pendingArtifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backups dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return &pendingArtifact{File: f, final: filepath.Join(dir, name)}, nil
}

// Commit flushes the temp file and moves it to its final name. It returns
// the artifact size.
func (a *pendingArtifact) Commit() (int64, error) {
	if err := a.File.Sync(); err != nil {
		return 0, fmt.Errorf("sync artifact: %w", err)
	}
	info, err := a.File.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	if err := a.File.Close(); err != nil {
		return 0, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(a.File.Name(), a.final); err != nil {
		return 0, fmt.Errorf("rename artifact: %w", err)
	}
	a.committed = true
	return info.Size(), nil
}

func (a *pendingArtifact) Cleanup() {
	if a.committed {
		return
	}
	a.File.Close()
	os.Remove(a.File.Name())
}
