package model

import (
	"fmt"
	"regexp"
	"time"
)

type ItemStatus string

// StatusConfirmed is stored and exported as "booked".
const (
	StatusPending    ItemStatus = "pending"
	StatusConfirmed  ItemStatus = "booked"
	StatusConstraint ItemStatus = "constraint"
	StatusOptional   ItemStatus = "optional"
)

// ParseItemStatus accepts the stored names plus "confirmed" as an alias.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch ItemStatus(s) {
	case StatusPending, StatusConfirmed, StatusConstraint, StatusOptional:
		return ItemStatus(s), nil
	}
	if s == "confirmed" {
		return StatusConfirmed, nil
	}
	return "", fmt.Errorf("invalid item status %q", s)
}

var (
	hourOnly   = regexp.MustCompile(`^([01]\d|2[0-3])$`)
	hourMinute = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// NormalizeItemTime pads a bare "HH" to "HH:00" and validates "HH:MM".
func NormalizeItemTime(s string) (string, error) {
	if hourOnly.MatchString(s) {
		return s + ":00", nil
	}
	if hourMinute.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("invalid item time %q", s)
}

type Trip struct {
	ID       int64   `json:"id"`
	User     string  `json:"user"`
	Name     string  `json:"name"`
	Archived *bool   `json:"archived"`
	Currency *string `json:"currency"`
	Notes    *string `json:"notes"`
	ImageID  *int64  `json:"image_id"`
	Image    string  `json:"image,omitempty"`
}

type TripDay struct {
	ID     int64  `json:"id"`
	TripID int64  `json:"trip_id"`
	Label  string `json:"label"`
}

type TripItem struct {
	ID      int64       `json:"id"`
	DayID   int64       `json:"day_id"`
	Time    string      `json:"time"`
	Text    string      `json:"text"`
	Comment *string     `json:"comment"`
	Lat     *float64    `json:"lat"`
	Lng     *float64    `json:"lng"`
	Price   *float64    `json:"price"`
	Status  *ItemStatus `json:"status"`
	PlaceID *int64      `json:"place_id"`
	ImageID *int64      `json:"image_id"`
	Image   string      `json:"image,omitempty"`
	GPX     *string     `json:"gpx,omitempty"`
	PaidBy  *string     `json:"paid_by"`
}

type PackingItem struct {
	ID       int64   `json:"id"`
	TripID   int64   `json:"trip_id"`
	Text     string  `json:"text"`
	Qt       *int    `json:"qt"`
	Category *string `json:"category"`
	Packed   *bool   `json:"packed"`
}

type ChecklistItem struct {
	ID      int64  `json:"id"`
	TripID  int64  `json:"trip_id"`
	Text    string `json:"text"`
	Checked *bool  `json:"checked"`
}

type Attachment struct {
	ID             int64     `json:"id"`
	TripID         int64     `json:"trip_id"`
	User           string    `json:"user"`
	Filename       string    `json:"filename"`
	StoredFilename string    `json:"stored_filename"`
	FileSize       int64     `json:"file_size"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

type TripMember struct {
	TripID    int64      `json:"trip_id"`
	User      string     `json:"user"`
	InvitedBy string     `json:"invited_by"`
	InvitedAt time.Time  `json:"invited_at"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
}
