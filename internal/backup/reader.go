package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dukerupert/tripkeep/internal/snapshot"
)

var zipMagic = []byte("PK\x03\x04")

// maxEntrySize bounds how much of any single entry is decompressed.
const maxEntrySize = 256 << 20

// Archive is a validated backup archive. It serves embedded images to the
// reconciler by basename and attachments by their per-trip entry path,
// falling back to the basename.
type Archive struct {
	Doc         *snapshot.Document
	images      map[string]*zip.File
	attachments map[string]*zip.File
	entries     map[string]*zip.File
}

// OpenArchive checks the ZIP signature, then decodes data.json and indexes
// the images/ and attachments/ entries.
func OpenArchive(data []byte) (*Archive, error) {
	if len(data) < len(zipMagic) || !bytes.Equal(data[:len(zipMagic)], zipMagic) {
		return nil, ErrNotZip
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	a := &Archive{
		images:      make(map[string]*zip.File),
		attachments: make(map[string]*zip.File),
		entries:     make(map[string]*zip.File),
	}
	var docEntry *zip.File
	for _, f := range zr.File {
		switch {
		case f.Name == dataEntry:
			docEntry = f
		case strings.HasSuffix(f.Name, "/"):
		case strings.HasPrefix(f.Name, imagesPrefix):
			a.images[path.Base(f.Name)] = f
		case strings.HasPrefix(f.Name, attachmentsPrefix):
			a.attachments[path.Base(f.Name)] = f
			a.entries[f.Name] = f
		}
	}
	if docEntry == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidBackup, dataEntry)
	}

	raw, err := readEntry(docEntry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	var doc snapshot.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	a.Doc = &doc
	return a, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return data, nil
}

func (a *Archive) lookup(index map[string]*zip.File, name string) ([]byte, bool) {
	f, ok := index[name]
	if !ok || name == "" {
		return nil, false
	}
	data, err := readEntry(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (a *Archive) Image(ref ImageRef) ([]byte, bool) {
	return a.lookup(a.images, snapshot.ImageBasename(ref.Filename))
}

func (a *Archive) Attachment(tripID int64, stored string) ([]byte, bool) {
	if stored == "" {
		return nil, false
	}
	if data, ok := a.lookup(a.entries, attachmentEntry(tripID, stored)); ok {
		return data, true
	}
	return a.lookup(a.attachments, stored)
}

// ImportArchive validates a ZIP export and runs it through the reconciler.
func (r *Reconciler) ImportArchive(ctx context.Context, user string, data []byte) (*ImportResult, error) {
	a, err := OpenArchive(data)
	if err != nil {
		return nil, err
	}
	return r.Import(ctx, user, a.Doc, a)
}
