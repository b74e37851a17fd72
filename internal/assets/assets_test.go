package assets

import (
	"errors"
	"os"
	"testing"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDetectImageFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", pngBytes, "png"},
		{"jpeg", []byte("\xff\xd8\xff\xe0rest"), "jpeg"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectImageFormat(tt.data)
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if got != tt.want {
				t.Errorf("format = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := DetectImageFormat([]byte("GIF89a")); !errors.Is(err, ErrUnknownImageFormat) {
		t.Errorf("gif err = %v, want ErrUnknownImageFormat", err)
	}
	if _, err := DetectImageFormat(nil); !errors.Is(err, ErrUnknownImageFormat) {
		t.Errorf("empty err = %v, want ErrUnknownImageFormat", err)
	}
}

func TestSaveAndRemoveImage(t *testing.T) {
	s, err := New(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	name, err := s.SaveImage(pngBytes)
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	data, err := s.ReadImage(name)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Error("image payload mismatch")
	}

	if err := s.RemoveImage(name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.ReadImage(name); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("read after remove err = %v, want not exist", err)
	}
	if err := s.RemoveImage(name); err != nil {
		t.Errorf("second remove: %v", err)
	}

	if _, err := s.SaveImage([]byte("not an image")); !errors.Is(err, ErrUnknownImageFormat) {
		t.Errorf("save junk err = %v, want ErrUnknownImageFormat", err)
	}
}

func TestAttachmentPathRejectsTraversal(t *testing.T) {
	s, _ := New(t.TempDir(), t.TempDir())

	for _, name := range []string{"", "..", "../x.pdf", "a/b.pdf", `a\b.pdf`} {
		if _, err := s.AttachmentPath(1, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("AttachmentPath(%q) err = %v, want ErrInvalidName", name, err)
		}
	}

	if err := s.SaveAttachment(7, "doc.pdf", []byte("%PDF-1.4")); err != nil {
		t.Fatalf("save attachment: %v", err)
	}
	data, err := s.ReadAttachment(7, "doc.pdf")
	if err != nil {
		t.Fatalf("read attachment: %v", err)
	}
	if !IsPDF(data) {
		t.Error("expected PDF payload")
	}
}
