package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/dukerupert/tripkeep/internal/auth"
	"github.com/dukerupert/tripkeep/internal/backup"
	"github.com/dukerupert/tripkeep/internal/model"
)

// DefaultMaxImportSize caps uploaded backup files.
const DefaultMaxImportSize = 512 << 20

type BackupHandler struct {
	manager       *backup.Manager
	maxImportSize int64
	logger        *slog.Logger
}

func NewBackupHandler(m *backup.Manager, maxImportSize int64, logger *slog.Logger) *BackupHandler {
	if maxImportSize <= 0 {
		maxImportSize = DefaultMaxImportSize
	}
	return &BackupHandler{manager: m, maxImportSize: maxImportSize, logger: logger}
}

// writeBackupError maps backup errors onto HTTP statuses.
func (h *BackupHandler) writeBackupError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, backup.ErrNotZip):
		writeError(w, http.StatusUnsupportedMediaType, "File must be a ZIP archive")
	case errors.Is(err, backup.ErrInvalidBackup):
		writeError(w, http.StatusBadRequest, "Invalid file")
	case errors.Is(err, backup.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "Bad request, invalid file")
	case errors.Is(err, backup.ErrImportFailed):
		h.logger.Warn(action, "error", err)
		writeError(w, http.StatusBadRequest, "Bad request")
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		h.logger.Error(action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	b, err := h.manager.Create(r.Context(), auth.Username(r.Context()))
	if err != nil {
		h.writeBackupError(w, err, "create backup")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.manager.List(r.Context(), auth.Username(r.Context()))
	if err != nil {
		h.writeBackupError(w, err, "list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ID")
		return
	}

	f, b, err := h.manager.Open(r.Context(), id, auth.Username(r.Context()))
	if err != nil {
		h.writeBackupError(w, err, "download backup")
		return
	}
	defer f.Close()

	modTime := b.CreatedAt
	if b.CompletedAt != nil {
		modTime = *b.CompletedAt
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": backup.DownloadName(b),
	}))
	http.ServeContent(w, r, b.Filename, modTime.In(time.UTC), f)
}

func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ID")
		return
	}
	if err := h.manager.Delete(r.Context(), id, auth.Username(r.Context())); err != nil {
		h.writeBackupError(w, err, "delete backup")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import restores an uploaded archive or legacy JSON export. The upload's
// declared content type picks the format.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := h.manager.Import(r.Context(), auth.Username(r.Context()), header.Header.Get("Content-Type"), data)
	if err != nil {
		h.writeBackupError(w, err, "import backup")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
