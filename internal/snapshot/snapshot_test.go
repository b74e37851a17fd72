package snapshot

import (
	"encoding/json"
	"testing"
)

func TestImageBasename(t *testing.T) {
	tests := map[string]string{
		"abc.png":                  "abc.png",
		"/api/assets/abc.png":      "abc.png",
		"https://x.test/a/b/c.jpg": "c.jpg",
		"":                         "",
	}
	for in, want := range tests {
		if got := ImageBasename(in); got != want {
			t.Errorf("ImageBasename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSettingsAbsentFieldsStayNil(t *testing.T) {
	var s Settings
	if err := json.Unmarshal([]byte(`{"currency":"$","mode_dark":false}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Currency == nil || *s.Currency != "$" {
		t.Errorf("currency = %v, want $", s.Currency)
	}
	if s.ModeDark == nil || *s.ModeDark {
		t.Errorf("mode_dark = %v, want present false", s.ModeDark)
	}
	if s.MapLat != nil || s.DoNotDisplay != nil {
		t.Errorf("absent fields decoded as present: %+v", s)
	}
}

func TestDocumentMetaKey(t *testing.T) {
	var doc Document
	raw := `{"_":{"version":"1","at":"2024-05-01T10:00:00Z","user":"alice"},"categories":[],"places":[],"trips":[]}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Meta.User != "alice" || doc.Meta.Version != "1" {
		t.Errorf("meta = %+v", doc.Meta)
	}
}
