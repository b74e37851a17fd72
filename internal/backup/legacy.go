package backup

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukerupert/tripkeep/internal/snapshot"
)

// legacySource serves the inline base64 images of a flat JSON export. The
// format carries no attachments.
type legacySource map[string]string

func (s legacySource) Image(ref ImageRef) ([]byte, bool) {
	if ref.ID == nil {
		return nil, false
	}
	encoded, ok := s[strconv.FormatInt(*ref.ID, 10)]
	if !ok || encoded == "" {
		return nil, false
	}
	data, err := decodeInlineImage(encoded)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (legacySource) Attachment(int64, string) ([]byte, bool) {
	return nil, false
}

// decodeInlineImage strips an optional data:image/...;base64, prefix.
func decodeInlineImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:image/") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			s = payload
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

// decodeLegacy parses a flat JSON export into a document for the reconciler.
func decodeLegacy(data []byte) (*snapshot.Document, legacySource, error) {
	var legacy snapshot.LegacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	doc := &snapshot.Document{
		Settings:   legacy.Settings,
		Categories: legacy.Categories,
		Places:     legacy.Places,
		Trips:      legacy.Trips,
	}
	for i := range doc.Trips {
		doc.Trips[i].PackingItems = nil
		doc.Trips[i].ChecklistItems = nil
		doc.Trips[i].Attachments = nil
	}
	return doc, legacySource(legacy.Images), nil
}

// ImportLegacy runs a flat JSON export through the reconciler.
func (r *Reconciler) ImportLegacy(ctx context.Context, user string, data []byte) (*ImportResult, error) {
	doc, src, err := decodeLegacy(data)
	if err != nil {
		return nil, err
	}
	return r.Import(ctx, user, doc, src)
}
