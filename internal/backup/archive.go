package backup

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strconv"

	"github.com/dukerupert/tripkeep/internal/snapshot"
)

const (
	dataEntry         = "data.json"
	imagesPrefix      = "images/"
	attachmentsPrefix = "attachments/"
)

// AssetLocator resolves stored assets to paths on disk.
type AssetLocator interface {
	ImagePath(filename string) (string, error)
	AttachmentPath(tripID int64, stored string) (string, error)
}

// WriteArchive writes doc as data.json followed by every image and trip
// attachment found on disk. Assets that no longer exist are skipped.
func WriteArchive(w io.Writer, doc *snapshot.Document, images []string, assets AssetLocator, logger *slog.Logger) error {
	zw := zip.NewWriter(w)

	dw, err := zw.CreateHeader(&zip.FileHeader{Name: dataEntry, Method: zip.Deflate, Modified: doc.Meta.At})
	if err != nil {
		return fmt.Errorf("create %s: %w", dataEntry, err)
	}
	enc := json.NewEncoder(dw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", dataEntry, err)
	}

	for _, name := range images {
		p, err := assets.ImagePath(name)
		if err != nil {
			logger.Debug("skipping image", "filename", name, "error", err)
			continue
		}
		if err := addFile(zw, p, imagesPrefix+name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("image missing on disk", "filename", name)
				continue
			}
			return err
		}
	}

	for _, t := range doc.Trips {
		for _, a := range t.Attachments {
			p, err := assets.AttachmentPath(t.ID, a.StoredFilename)
			if err != nil {
				logger.Debug("skipping attachment", "trip_id", t.ID, "stored_filename", a.StoredFilename, "error", err)
				continue
			}
			entry := attachmentEntry(t.ID, a.StoredFilename)
			if err := addFile(zw, p, entry); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					logger.Debug("attachment missing on disk", "trip_id", t.ID, "stored_filename", a.StoredFilename)
					continue
				}
				return err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

// addFile copies a regular file into the archive. It returns an error
// wrapping fs.ErrNotExist when the file is gone or is not a regular file.
func addFile(zw *zip.Writer, src, entry string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", entry, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", entry, fs.ErrNotExist)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header %s: %w", entry, err)
	}
	hdr.Name = entry
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create %s: %w", entry, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", entry, err)
	}
	return nil
}

// attachmentEntry is the archive path of a trip attachment.
func attachmentEntry(tripID int64, stored string) string {
	return path.Join(attachmentsPrefix, strconv.FormatInt(tripID, 10), stored)
}
