package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/tripkeep/internal/model"
)

type BackupStore struct {
	db DBTX
}

func NewBackupStore(db DBTX) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, user, status, COALESCE(filename, ''), file_size, COALESCE(error_message, ''),
	COALESCE(offsite_key, ''), created_at, completed_at`

func scanBackup(sc scanner) (*model.Backup, error) {
	var b model.Backup
	var completedAt sql.NullTime
	err := sc.Scan(&b.ID, &b.User, &b.Status, &b.Filename, &b.FileSize, &b.ErrorMessage,
		&b.OffsiteKey, &b.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

// Create records a pending job for user.
func (s *BackupStore) Create(user string) (*model.Backup, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO backups (user, status, created_at) VALUES (?, ?, ?)`,
		user, model.BackupStatusPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Backup{
		ID:        id,
		User:      user,
		Status:    model.BackupStatusPending,
		CreatedAt: now,
	}, nil
}

// Get returns a job regardless of owner; used by the export worker.
func (s *BackupStore) Get(id int64) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return b, nil
}

func (s *BackupStore) GetByID(id int64, user string) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ? AND user = ?`, id, user))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return b, nil
}

func (s *BackupStore) List(user string) ([]model.Backup, error) {
	return s.query(`SELECT `+backupCols+` FROM backups WHERE user = ? ORDER BY created_at DESC, id DESC`, user)
}

func (s *BackupStore) query(q string, args ...any) ([]model.Backup, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	backups := []model.Backup{}
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// transition runs a conditional update and reports ErrInvalidTransition
// when the job was not in an allowed source state.
func (s *BackupStore) transition(id int64, q string, args ...any) error {
	result, err := s.db.Exec(q, args...)
	if err != nil {
		return fmt.Errorf("update backup %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("backup %d: %w", id, ErrInvalidTransition)
	}
	return nil
}

func (s *BackupStore) MarkProcessing(id int64) error {
	return s.transition(id,
		`UPDATE backups SET status = ? WHERE id = ? AND status = ?`,
		model.BackupStatusProcessing, id, model.BackupStatusPending,
	)
}

func (s *BackupStore) MarkCompleted(id int64, filename string, size int64) error {
	return s.transition(id,
		`UPDATE backups SET status = ?, filename = ?, file_size = ?, completed_at = ? WHERE id = ? AND status = ?`,
		model.BackupStatusCompleted, filename, size, time.Now().UTC(), id, model.BackupStatusProcessing,
	)
}

func (s *BackupStore) MarkFailed(id int64, message string) error {
	return s.transition(id,
		`UPDATE backups SET status = ?, error_message = ?, completed_at = ? WHERE id = ? AND status IN (?, ?)`,
		model.BackupStatusFailed, message, time.Now().UTC(), id,
		model.BackupStatusPending, model.BackupStatusProcessing,
	)
}

func (s *BackupStore) SetOffsiteKey(id int64, key string) error {
	_, err := s.db.Exec(`UPDATE backups SET offsite_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return fmt.Errorf("set offsite key: %w", err)
	}
	return nil
}

func (s *BackupStore) Delete(id int64, user string) error {
	_, err := s.db.Exec(`DELETE FROM backups WHERE id = ? AND user = ?`, id, user)
	if err != nil {
		return fmt.Errorf("delete backup %d: %w", id, err)
	}
	return nil
}

// FailInterrupted marks every unfinished job as failed. Jobs left pending or
// processing by a previous process will never be picked up again.
func (s *BackupStore) FailInterrupted() (int64, error) {
	result, err := s.db.Exec(
		`UPDATE backups SET status = ?, error_message = ?, completed_at = ? WHERE status IN (?, ?)`,
		model.BackupStatusFailed, "interrupted by restart", time.Now().UTC(),
		model.BackupStatusPending, model.BackupStatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted backups: %w", err)
	}
	return result.RowsAffected()
}

// ListOlderThan returns finished jobs created before the cutoff.
func (s *BackupStore) ListOlderThan(before time.Time) ([]model.Backup, error) {
	return s.query(
		`SELECT `+backupCols+` FROM backups WHERE created_at < ? AND status IN (?, ?) ORDER BY id`,
		before.UTC(), model.BackupStatusCompleted, model.BackupStatusFailed,
	)
}
