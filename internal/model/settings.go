package model

import "strings"

// Settings are the per-user preferences. DoNotDisplay holds category names
// hidden on the map; it is persisted comma-joined.
type Settings struct {
	Username       string   `json:"username"`
	MapLat         float64  `json:"map_lat"`
	MapLng         float64  `json:"map_lng"`
	Currency       string   `json:"currency"`
	TileLayer      *string  `json:"tile_layer,omitempty"`
	ModeLowNetwork *bool    `json:"mode_low_network,omitempty"`
	ModeDark       *bool    `json:"mode_dark,omitempty"`
	ModeGPXInPlace *bool    `json:"mode_gpx_in_place,omitempty"`
	DoNotDisplay   []string `json:"do_not_display"`
	GoogleAPIKey   string   `json:"-"`
}

// SettingsPatch lists every updatable settings field. A nil field is left
// untouched by Apply.
type SettingsPatch struct {
	MapLat         *float64  `json:"map_lat"`
	MapLng         *float64  `json:"map_lng"`
	Currency       *string   `json:"currency"`
	TileLayer      *string   `json:"tile_layer"`
	ModeLowNetwork *bool     `json:"mode_low_network"`
	ModeDark       *bool     `json:"mode_dark"`
	ModeGPXInPlace *bool     `json:"mode_gpx_in_place"`
	DoNotDisplay   *[]string `json:"do_not_display"`
	GoogleAPIKey   *string   `json:"google_apikey"`
}

// Empty reports whether the patch would change nothing.
func (p SettingsPatch) Empty() bool {
	return p.MapLat == nil && p.MapLng == nil && p.Currency == nil &&
		p.TileLayer == nil && p.ModeLowNetwork == nil && p.ModeDark == nil &&
		p.ModeGPXInPlace == nil && p.DoNotDisplay == nil && p.GoogleAPIKey == nil
}

// Apply copies the present fields of p onto s.
func (p SettingsPatch) Apply(s *Settings) {
	if p.MapLat != nil {
		s.MapLat = *p.MapLat
	}
	if p.MapLng != nil {
		s.MapLng = *p.MapLng
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.TileLayer != nil {
		s.TileLayer = p.TileLayer
	}
	if p.ModeLowNetwork != nil {
		s.ModeLowNetwork = p.ModeLowNetwork
	}
	if p.ModeDark != nil {
		s.ModeDark = p.ModeDark
	}
	if p.ModeGPXInPlace != nil {
		s.ModeGPXInPlace = p.ModeGPXInPlace
	}
	if p.DoNotDisplay != nil {
		s.DoNotDisplay = append([]string(nil), (*p.DoNotDisplay)...)
	}
	if p.GoogleAPIKey != nil {
		s.GoogleAPIKey = *p.GoogleAPIKey
	}
}

// JoinDoNotDisplay encodes the exclusion list for storage.
func JoinDoNotDisplay(names []string) string {
	return strings.Join(names, ",")
}

// SplitDoNotDisplay decodes the stored exclusion list.
func SplitDoNotDisplay(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
