package backup

import "errors"

var (
	ErrNotZip          = errors.New("file must be a ZIP archive")
	ErrInvalidBackup   = errors.New("invalid backup file")
	ErrUnsupportedType = errors.New("unsupported backup content type")
	ErrImportFailed    = errors.New("backup import failed")
	ErrNotFound        = errors.New("backup not found")
)
