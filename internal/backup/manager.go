package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukerupert/tripkeep/internal/assets"
	"github.com/dukerupert/tripkeep/internal/model"
	"github.com/dukerupert/tripkeep/internal/store"
)

const maxErrorLen = 200

var errShuttingDown = errors.New("backup manager is shutting down")

// Config holds backup manager configuration.
type Config struct {
	BackupsDir        string
	MaxAttachmentSize int64
	Retention         time.Duration
	RetentionInterval time.Duration
}

// StatusCallback is called after every job status change.
type StatusCallback func(b model.Backup)

// Manager runs export jobs and imports. Exports for one user run one at a
// time in submission order; different users export concurrently.
type Manager struct {
	cfg        Config
	backups    *store.BackupStore
	serializer *Serializer
	reconciler *Reconciler
	assets     *assets.Store
	offsite    *Offsite
	logger     *slog.Logger
	callback   StatusCallback
	now        func() time.Time

	mu          sync.Mutex
	queues      map[string][]int64
	importLocks map[string]*sync.Mutex
	closed      bool
	workers     sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. offsite may be nil.
func NewManager(cfg Config, db *sql.DB, as *assets.Store, offsite *Offsite, logger *slog.Logger, callback StatusCallback) *Manager {
	return &Manager{
		cfg:         cfg,
		backups:     store.NewBackupStore(db),
		serializer:  NewSerializer(db),
		reconciler:  NewReconciler(db, as, cfg.MaxAttachmentSize, logger),
		assets:      as,
		offsite:     offsite,
		logger:      logger,
		callback:    callback,
		now:         time.Now,
		queues:      make(map[string][]int64),
		importLocks: make(map[string]*sync.Mutex),
	}
}

// Start fails jobs interrupted by a previous shutdown and begins the
// retention loop when a retention period is configured.
func (m *Manager) Start(ctx context.Context) error {
	n, err := m.backups.FailInterrupted()
	if err != nil {
		return err
	}
	if n > 0 {
		m.logger.Warn("marked interrupted backups as failed", "count", n)
	}
	if m.cfg.Retention <= 0 {
		return nil
	}

	interval := m.cfg.RetentionInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune(ctx)
			}
		}
	}()
	return nil
}

// Shutdown stops accepting jobs and waits for queued exports to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	finished := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create records a pending export for user and queues it.
func (m *Manager) Create(ctx context.Context, user string) (*model.Backup, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, errShuttingDown
	}

	b, err := m.backups.Create(user)
	if err != nil {
		return nil, err
	}
	m.notify(*b)
	if !m.enqueue(user, b.ID) {
		if err := m.backups.MarkFailed(b.ID, errShuttingDown.Error()); err != nil {
			m.logger.Error("mark backup failed", "backup_id", b.ID, "error", err)
		}
		m.notifyCurrent(b.ID)
		return nil, errShuttingDown
	}
	return b, nil
}

// enqueue appends id to the user's queue, starting a worker if the user has
// none. A user key is present in queues exactly while its worker runs. It
// reports false once Shutdown has begun.
func (m *Manager) enqueue(user string, id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}

	q, running := m.queues[user]
	m.queues[user] = append(q, id)
	if !running {
		m.workers.Add(1)
		go m.drain(user)
	}
	return true
}

func (m *Manager) drain(user string) {
	defer m.workers.Done()
	for {
		m.mu.Lock()
		q := m.queues[user]
		if len(q) == 0 {
			delete(m.queues, user)
			m.mu.Unlock()
			return
		}
		id := q[0]
		m.queues[user] = q[1:]
		m.mu.Unlock()

		m.runExport(id)
	}
}

func (m *Manager) runExport(id int64) {
	logger := m.logger.With("backup_id", id)

	if err := m.backups.MarkProcessing(id); err != nil {
		logger.Warn("backup not runnable", "error", err)
		return
	}
	b, err := m.backups.Get(id)
	if err != nil || b == nil {
		logger.Error("load backup", "error", err)
		return
	}
	m.notify(*b)

	filename, size, err := m.export(b)
	if err != nil {
		logger.Error("backup failed", "user", b.User, "error", err)
		if err := m.backups.MarkFailed(id, truncate(err.Error(), maxErrorLen)); err != nil {
			logger.Error("mark backup failed", "error", err)
		}
		m.notifyCurrent(id)
		return
	}

	if err := m.backups.MarkCompleted(id, filename, size); err != nil {
		// The job was deleted or finalized while the archive was written.
		logger.Warn("discarding archive", "error", err)
		os.Remove(filepath.Join(m.cfg.BackupsDir, filename))
		return
	}
	logger.Info("backup completed", "user", b.User, "filename", filename, "size", size)
	m.notifyCurrent(id)

	if m.offsite != nil {
		m.mirror(b.User, id, filename)
	}
}

// export writes the archive for b. Panics are converted into errors so a
// broken export only fails its own job.
func (m *Manager) export(b *model.Backup) (filename string, size int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export panic: %v", r)
		}
	}()

	at := m.now()
	doc, images, err := m.serializer.Serialize(b.User, at)
	if err != nil {
		return "", 0, fmt.Errorf("serialize: %w", err)
	}

	filename = ArtifactName(b.User, b.ID, at)
	art, err := newPendingArtifact(m.cfg.BackupsDir, filename)
	if err != nil {
		return "", 0, err
	}
	defer art.Cleanup()

	if err := WriteArchive(art, doc, images, m.assets, m.logger); err != nil {
		return "", 0, err
	}
	size, err = art.Commit()
	if err != nil {
		return "", 0, err
	}
	return filename, size, nil
}

// ExportTo writes user's archive to w without recording a job.
func (m *Manager) ExportTo(user string, w io.Writer) error {
	doc, images, err := m.serializer.Serialize(user, m.now())
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return WriteArchive(w, doc, images, m.assets, m.logger)
}

func (m *Manager) mirror(user string, id int64, filename string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	key := m.offsite.Key(user, filename)
	if err := m.offsite.Upload(ctx, key, filepath.Join(m.cfg.BackupsDir, filename)); err != nil {
		m.logger.Warn("off-site mirror failed", "backup_id", id, "error", err)
		return
	}
	if err := m.backups.SetOffsiteKey(id, key); err != nil {
		m.logger.Warn("record off-site key", "backup_id", id, "error", err)
	}
}

func (m *Manager) notify(b model.Backup) {
	if m.callback != nil {
		m.callback(b)
	}
}

func (m *Manager) notifyCurrent(id int64) {
	if m.callback == nil {
		return
	}
	b, err := m.backups.Get(id)
	if err != nil || b == nil {
		return
	}
	m.callback(*b)
}

func (m *Manager) List(ctx context.Context, user string) ([]model.Backup, error) {
	return m.backups.List(user)
}

func (m *Manager) Get(ctx context.Context, id int64, user string) (*model.Backup, error) {
	b, err := m.backups.GetByID(id, user)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// Open returns the archive of a completed job. The caller closes the file.
func (m *Manager) Open(ctx context.Context, id int64, user string) (*os.File, *model.Backup, error) {
	b, err := m.Get(ctx, id, user)
	if err != nil {
		return nil, nil, err
	}
	if b.Status != model.BackupStatusCompleted || b.Filename == "" {
		return nil, nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(m.cfg.BackupsDir, b.Filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	return f, b, nil
}

// FetchOffsite downloads the mirrored copy of a completed job.
func (m *Manager) FetchOffsite(ctx context.Context, id int64, user string) ([]byte, *model.Backup, error) {
	b, err := m.Get(ctx, id, user)
	if err != nil {
		return nil, nil, err
	}
	if m.offsite == nil || b.OffsiteKey == "" {
		return nil, nil, ErrNotFound
	}
	data, err := m.offsite.Download(ctx, b.OffsiteKey)
	if err != nil {
		return nil, nil, err
	}
	return data, b, nil
}

// Delete removes the job record together with its archive and any
// off-site copy.
func (m *Manager) Delete(ctx context.Context, id int64, user string) error {
	b, err := m.Get(ctx, id, user)
	if err != nil {
		return err
	}
	return m.delete(ctx, b)
}

func (m *Manager) delete(ctx context.Context, b *model.Backup) error {
	if err := m.backups.Delete(b.ID, b.User); err != nil {
		return err
	}
	if b.Filename != "" {
		err := os.Remove(filepath.Join(m.cfg.BackupsDir, b.Filename))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("remove archive", "backup_id", b.ID, "error", err)
		}
	}
	if m.offsite != nil && b.OffsiteKey != "" {
		if err := m.offsite.Delete(ctx, b.OffsiteKey); err != nil {
			m.logger.Warn("remove off-site copy", "backup_id", b.ID, "error", err)
		}
	}
	return nil
}

// Prune deletes finished jobs older than the retention period.
func (m *Manager) Prune(ctx context.Context) {
	old, err := m.backups.ListOlderThan(m.now().Add(-m.cfg.Retention))
	if err != nil {
		m.logger.Error("list expired backups", "error", err)
		return
	}
	for i := range old {
		if err := m.delete(ctx, &old[i]); err != nil {
			m.logger.Error("prune backup", "backup_id", old[i].ID, "error", err)
		}
	}
	if len(old) > 0 {
		m.logger.Info("pruned backups", "count", len(old))
	}
}

// Import dispatches an upload on its content type. Imports for the same
// user are serialized.
func (m *Manager) Import(ctx context.Context, user, contentType string, data []byte) (*ImportResult, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}

	lock := m.importLock(user)
	lock.Lock()
	defer lock.Unlock()

	switch mediaType {
	case "application/json":
		return m.reconciler.ImportLegacy(ctx, user, data)
	case "application/zip", "application/x-zip-compressed":
		return m.reconciler.ImportArchive(ctx, user, data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mediaType)
}

func (m *Manager) importLock(user string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.importLocks[user]
	if !ok {
		l = &sync.Mutex{}
		m.importLocks[user] = l
	}
	return l
}

// ArtifactName is the on-disk name of a job's archive.
func ArtifactName(user string, id int64, at time.Time) string {
	return fmt.Sprintf("TRIP_%s_%s_backup_%d.zip", at.UTC().Format("2006-01-02"), user, id)
}

// DownloadName is the filename offered to clients downloading b.
func DownloadName(b *model.Backup) string {
	at := b.CreatedAt
	if b.CompletedAt != nil {
		at = *b.CompletedAt
	}
	return fmt.Sprintf("TRIP_%s_%s_backup.zip", at.UTC().Format("2006-01-02"), b.User)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
