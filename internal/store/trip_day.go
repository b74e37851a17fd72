package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/tripkeep/internal/model"
)

func (s *TripStore) CreateDay(tripID int64, user, label string) (*model.TripDay, error) {
	result, err := s.db.Exec(`INSERT INTO trip_days (trip_id, user, label) VALUES (?, ?, ?)`, tripID, user, label)
	if err != nil {
		return nil, fmt.Errorf("insert trip day: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.TripDay{ID: id, TripID: tripID, Label: label}, nil
}

func (s *TripStore) ListDays(tripID int64) ([]model.TripDay, error) {
	rows, err := s.db.Query(`SELECT id, trip_id, label FROM trip_days WHERE trip_id = ? ORDER BY id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list trip days: %w", err)
	}
	defer rows.Close()

	var days []model.TripDay
	for rows.Next() {
		var d model.TripDay
		if err := rows.Scan(&d.ID, &d.TripID, &d.Label); err != nil {
			return nil, fmt.Errorf("scan trip day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// CreateItem inserts it under its day. The item time is normalized to
// HH:MM and a linked place must already be in the day's trip place set.
func (s *TripStore) CreateItem(user string, it *model.TripItem) error {
	t, err := model.NormalizeItemTime(it.Time)
	if err != nil {
		return err
	}
	it.Time = t

	if it.PlaceID != nil {
		var n int
		err := s.db.QueryRow(
			`SELECT COUNT(*) FROM trip_days d JOIN trip_places tp ON tp.trip_id = d.trip_id
			 WHERE d.id = ? AND tp.place_id = ?`, it.DayID, *it.PlaceID,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("check item place: %w", err)
		}
		if n == 0 {
			return ErrPlaceNotInTrip
		}
	}

	result, err := s.db.Exec(
		`INSERT INTO trip_items (day_id, user, time, text, comment, lat, lng, price, status, place_id,
		                         image_id, gpx, paid_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.DayID, user, it.Time, it.Text, it.Comment, it.Lat, it.Lng, it.Price, it.Status, it.PlaceID,
		it.ImageID, it.GPX, it.PaidBy,
	)
	if err != nil {
		return fmt.Errorf("insert trip item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	it.ID = id
	return nil
}

func (s *TripStore) ListItems(dayID int64) ([]model.TripItem, error) {
	rows, err := s.db.Query(
		`SELECT it.id, it.day_id, it.time, it.text, it.comment, it.lat, it.lng, it.price, it.status,
		        it.place_id, it.image_id, COALESCE(i.filename, ''), it.gpx, it.paid_by
		 FROM trip_items it LEFT JOIN images i ON i.id = it.image_id
		 WHERE it.day_id = ? ORDER BY it.time, it.id`, dayID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trip items: %w", err)
	}
	defer rows.Close()

	var items []model.TripItem
	for rows.Next() {
		var it model.TripItem
		var comment, status, gpx, paidBy sql.NullString
		var lat, lng, price sql.NullFloat64
		var placeID, imageID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.DayID, &it.Time, &it.Text, &comment, &lat, &lng, &price, &status,
			&placeID, &imageID, &it.Image, &gpx, &paidBy); err != nil {
			return nil, fmt.Errorf("scan trip item: %w", err)
		}
		it.Comment = nullString(comment)
		it.Lat = nullFloat(lat)
		it.Lng = nullFloat(lng)
		it.Price = nullFloat(price)
		if status.Valid {
			st := model.ItemStatus(status.String)
			it.Status = &st
		}
		it.PlaceID = nullInt64(placeID)
		it.ImageID = nullInt64(imageID)
		it.GPX = nullString(gpx)
		it.PaidBy = nullString(paidBy)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *TripStore) CreatePackingItem(user string, it *model.PackingItem) error {
	result, err := s.db.Exec(
		`INSERT INTO trip_packing_items (trip_id, user, text, qt, category, packed) VALUES (?, ?, ?, ?, ?, ?)`,
		it.TripID, user, it.Text, it.Qt, it.Category, it.Packed,
	)
	if err != nil {
		return fmt.Errorf("insert packing item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	it.ID = id
	return nil
}

func (s *TripStore) ListPackingItems(tripID int64) ([]model.PackingItem, error) {
	rows, err := s.db.Query(
		`SELECT id, trip_id, text, qt, category, packed FROM trip_packing_items WHERE trip_id = ? ORDER BY id`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list packing items: %w", err)
	}
	defer rows.Close()

	items := []model.PackingItem{}
	for rows.Next() {
		var it model.PackingItem
		var qt sql.NullInt64
		var category sql.NullString
		var packed sql.NullBool
		if err := rows.Scan(&it.ID, &it.TripID, &it.Text, &qt, &category, &packed); err != nil {
			return nil, fmt.Errorf("scan packing item: %w", err)
		}
		it.Qt = nullInt(qt)
		it.Category = nullString(category)
		it.Packed = nullBool(packed)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *TripStore) CreateChecklistItem(user string, it *model.ChecklistItem) error {
	result, err := s.db.Exec(
		`INSERT INTO trip_checklist_items (trip_id, user, text, checked) VALUES (?, ?, ?, ?)`,
		it.TripID, user, it.Text, it.Checked,
	)
	if err != nil {
		return fmt.Errorf("insert checklist item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	it.ID = id
	return nil
}

func (s *TripStore) ListChecklistItems(tripID int64) ([]model.ChecklistItem, error) {
	rows, err := s.db.Query(
		`SELECT id, trip_id, text, checked FROM trip_checklist_items WHERE trip_id = ? ORDER BY id`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	defer rows.Close()

	items := []model.ChecklistItem{}
	for rows.Next() {
		var it model.ChecklistItem
		var checked sql.NullBool
		if err := rows.Scan(&it.ID, &it.TripID, &it.Text, &checked); err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		it.Checked = nullBool(checked)
		items = append(items, it)
	}
	return items, rows.Err()
}
