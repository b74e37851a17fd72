// Package snapshot defines the portable document exchanged by backup
// export and import. Foreign keys are expressed as nested objects so an
// import can match categories by name and places by their in-document id.
package snapshot

import (
	"strings"
	"time"
)

// FormatVersion is written to the metadata of every export.
const FormatVersion = "1"

type Document struct {
	Meta       Meta       `json:"_"`
	Settings   *Settings  `json:"settings,omitempty"`
	Categories []Category `json:"categories"`
	Places     []Place    `json:"places"`
	Trips      []Trip     `json:"trips"`
}

type Meta struct {
	Version string    `json:"version"`
	At      time.Time `json:"at"`
	User    string    `json:"user"`
}

// Settings fields are pointers so a partial import can tell an absent
// field from a zero value.
type Settings struct {
	Username       string    `json:"username,omitempty"`
	MapLat         *float64  `json:"map_lat,omitempty"`
	MapLng         *float64  `json:"map_lng,omitempty"`
	Currency       *string   `json:"currency,omitempty"`
	TileLayer      *string   `json:"tile_layer,omitempty"`
	ModeLowNetwork *bool     `json:"mode_low_network,omitempty"`
	ModeDark       *bool     `json:"mode_dark,omitempty"`
	ModeGPXInPlace *bool     `json:"mode_gpx_in_place,omitempty"`
	DoNotDisplay   *[]string `json:"do_not_display,omitempty"`
}

type Category struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Color   *string `json:"color"`
	Image   *string `json:"image"`
	ImageID *int64  `json:"image_id"`
}

type Place struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Place       string    `json:"place"`
	Category    *Category `json:"category"`
	Image       *string   `json:"image"`
	ImageID     *int64    `json:"image_id"`
	AllowDog    *bool     `json:"allowdog"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Duration    *int      `json:"duration"`
	Favorite    *bool     `json:"favorite"`
	Visited     *bool     `json:"visited"`
	Restroom    *bool     `json:"restroom"`
	GPX         *string   `json:"gpx"`
}

type Trip struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Archived       *bool           `json:"archived"`
	Currency       *string         `json:"currency"`
	Notes          *string         `json:"notes"`
	Image          *string         `json:"image"`
	ImageID        *int64          `json:"image_id"`
	Days           []Day           `json:"days"`
	Places         []Place         `json:"places"`
	Collaborators  []string        `json:"collaborators"`
	Shared         bool            `json:"shared"`
	PackingItems   []PackingItem   `json:"packing_items"`
	ChecklistItems []ChecklistItem `json:"checklist_items"`
	Attachments    []Attachment    `json:"attachments"`
}

type Day struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Items []Item `json:"items"`
}

type Item struct {
	ID      int64    `json:"id"`
	Time    string   `json:"time"`
	Text    string   `json:"text"`
	Comment *string  `json:"comment"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Price   *float64 `json:"price"`
	Status  *string  `json:"status"`
	Place   *Place   `json:"place"`
	DayID   int64    `json:"day_id"`
	Image   *string  `json:"image"`
	ImageID *int64   `json:"image_id"`
	GPX     *string  `json:"gpx"`
	PaidBy  *string  `json:"paid_by"`
}

type PackingItem struct {
	ID       int64   `json:"id"`
	Text     string  `json:"text"`
	Qt       *int    `json:"qt"`
	Category *string `json:"category"`
	Packed   *bool   `json:"packed"`
}

type ChecklistItem struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Checked *bool  `json:"checked"`
}

type Attachment struct {
	ID             int64      `json:"id"`
	Filename       string     `json:"filename"`
	StoredFilename string     `json:"stored_filename"`
	FileSize       int64      `json:"file_size"`
	UploadedAt     *time.Time `json:"uploaded_at,omitempty"`
}

// LegacyDocument is the flat export format that predates archives. Images
// maps a stringified image id to base64 bytes.
type LegacyDocument struct {
	Settings   *Settings         `json:"settings"`
	Categories []Category        `json:"categories"`
	Places     []Place           `json:"places"`
	Trips      []Trip            `json:"trips"`
	Images     map[string]string `json:"images"`
}

// ImageBasename strips any path or URL prefix from an image reference.
func ImageBasename(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
