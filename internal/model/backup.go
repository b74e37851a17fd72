package model

import "time"

type BackupStatus string

const (
	BackupStatusPending    BackupStatus = "pending"
	BackupStatusProcessing BackupStatus = "processing"
	BackupStatusCompleted  BackupStatus = "completed"
	BackupStatusFailed     BackupStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s BackupStatus) Terminal() bool {
	return s == BackupStatusCompleted || s == BackupStatusFailed
}

type Backup struct {
	ID           int64        `json:"id"`
	User         string       `json:"user"`
	Status       BackupStatus `json:"status"`
	Filename     string       `json:"filename,omitempty"`
	FileSize     int64        `json:"file_size"`
	ErrorMessage string       `json:"error_message,omitempty"`
	OffsiteKey   string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}
