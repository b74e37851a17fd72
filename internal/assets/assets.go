// Package assets stores image and trip attachment payloads on disk under
// generated keys.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnknownImageFormat = errors.New("unknown image format")
	ErrInvalidName        = errors.New("invalid asset name")
)

type Store struct {
	imagesDir      string
	attachmentsDir string
}

func New(imagesDir, attachmentsDir string) (*Store, error) {
	for _, dir := range []string{imagesDir, attachmentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create asset dir: %w", err)
		}
	}
	return &Store{imagesDir: imagesDir, attachmentsDir: attachmentsDir}, nil
}

// DetectImageFormat returns the file extension for png, jpeg and webp
// payloads, identified by their magic bytes.
func DetectImageFormat(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png", nil
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return "jpeg", nil
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp", nil
	}
	return "", ErrUnknownImageFormat
}

func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}

// SaveImage validates data and writes it under a fresh uuid filename.
func (s *Store) SaveImage(data []byte) (string, error) {
	ext, err := DetectImageFormat(data)
	if err != nil {
		return "", err
	}
	name := uuid.NewString() + "." + ext
	if err := os.WriteFile(filepath.Join(s.imagesDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

func (s *Store) ImagePath(filename string) (string, error) {
	if err := checkName(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.imagesDir, filename), nil
}

func (s *Store) ReadImage(filename string) ([]byte, error) {
	path, err := s.ImagePath(filename)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// RemoveImage deletes an image file; a missing file is not an error.
func (s *Store) RemoveImage(filename string) error {
	path, err := s.ImagePath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// NewAttachmentName returns a generated stored filename for an upload.
func NewAttachmentName() string {
	return uuid.NewString() + ".pdf"
}

func (s *Store) AttachmentPath(tripID int64, stored string) (string, error) {
	if err := checkName(stored); err != nil {
		return "", err
	}
	return filepath.Join(s.attachmentsDir, strconv.FormatInt(tripID, 10), stored), nil
}

func (s *Store) SaveAttachment(tripID int64, stored string, data []byte) error {
	path, err := s.AttachmentPath(tripID, stored)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create attachment dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return nil
}

func (s *Store) ReadAttachment(tripID int64, stored string) ([]byte, error) {
	path, err := s.AttachmentPath(tripID, stored)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (s *Store) RemoveAttachment(tripID int64, stored string) error {
	path, err := s.AttachmentPath(tripID, stored)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// checkName rejects names that would escape the asset directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
