package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/tripkeep/internal/model"
)

type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

// Ensure creates the user row with default settings if it does not exist.
// A newly created user also gets model.DefaultCategories.
func (s *UserStore) Ensure(username string) error {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO users (username, created_at) VALUES (?, ?)`,
		username, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ensure user %q: %w", username, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ensure user %q: %w", username, err)
	}
	if n == 0 {
		return nil
	}
	if err := s.seedCategories(username); err != nil {
		// Drop the row so the next Ensure seeds again.
		s.db.Exec(`DELETE FROM users WHERE username = ?`, username)
		return err
	}
	return nil
}

func (s *UserStore) seedCategories(username string) error {
	values := make([]string, 0, len(model.DefaultCategories))
	args := make([]any, 0, 2*len(model.DefaultCategories))
	for _, name := range model.DefaultCategories {
		values = append(values, "(?, ?)")
		args = append(args, username, name)
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO categories (user, name) VALUES `+strings.Join(values, ", "),
		args...,
	)
	if err != nil {
		return fmt.Errorf("seed categories for %q: %w", username, err)
	}
	return nil
}

func (s *UserStore) GetSettings(username string) (*model.Settings, error) {
	var st model.Settings
	var tileLayer, apiKey sql.NullString
	var lowNetwork, dark, gpxInPlace sql.NullBool
	var doNotDisplay string
	err := s.db.QueryRow(
		`SELECT username, map_lat, map_lng, currency, tile_layer, mode_low_network, mode_dark,
		        mode_gpx_in_place, do_not_display, google_apikey
		 FROM users WHERE username = ?`, username,
	).Scan(&st.Username, &st.MapLat, &st.MapLng, &st.Currency, &tileLayer, &lowNetwork, &dark,
		&gpxInPlace, &doNotDisplay, &apiKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for %q: %w", username, err)
	}
	st.TileLayer = nullString(tileLayer)
	st.ModeLowNetwork = nullBool(lowNetwork)
	st.ModeDark = nullBool(dark)
	st.ModeGPXInPlace = nullBool(gpxInPlace)
	st.DoNotDisplay = model.SplitDoNotDisplay(doNotDisplay)
	st.GoogleAPIKey = apiKey.String
	return &st, nil
}

// ApplySettings writes the fields present in patch and returns the
// refreshed settings. Fields absent from patch keep their stored value.
func (s *UserStore) ApplySettings(username string, patch model.SettingsPatch) (*model.Settings, error) {
	st, err := s.GetSettings(username)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("apply settings: user %q not found", username)
	}
	if patch.Empty() {
		return st, nil
	}
	patch.Apply(st)

	var apiKey *string
	if st.GoogleAPIKey != "" {
		apiKey = &st.GoogleAPIKey
	}
	_, err = s.db.Exec(
		`UPDATE users SET map_lat = ?, map_lng = ?, currency = ?, tile_layer = ?, mode_low_network = ?,
		        mode_dark = ?, mode_gpx_in_place = ?, do_not_display = ?, google_apikey = ?
		 WHERE username = ?`,
		st.MapLat, st.MapLng, st.Currency, st.TileLayer, st.ModeLowNetwork,
		st.ModeDark, st.ModeGPXInPlace, model.JoinDoNotDisplay(st.DoNotDisplay), apiKey,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("apply settings for %q: %w", username, err)
	}
	return st, nil
}
