package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/tripkeep/internal/model"
)

type TripStore struct {
	db DBTX
}

func NewTripStore(db DBTX) *TripStore {
	return &TripStore{db: db}
}

const tripCols = `t.id, t.user, t.name, t.archived, t.currency, t.notes, t.image_id, COALESCE(i.filename, '')`

const tripFrom = ` FROM trips t LEFT JOIN images i ON i.id = t.image_id`

func scanTrip(sc scanner) (*model.Trip, error) {
	var t model.Trip
	var archived sql.NullBool
	var currency, notes sql.NullString
	var imageID sql.NullInt64
	if err := sc.Scan(&t.ID, &t.User, &t.Name, &archived, &currency, &notes, &imageID, &t.Image); err != nil {
		return nil, err
	}
	t.Archived = nullBool(archived)
	t.Currency = nullString(currency)
	t.Notes = nullString(notes)
	t.ImageID = nullInt64(imageID)
	return &t, nil
}

// Create inserts t and sets its ID.
func (s *TripStore) Create(t *model.Trip) error {
	result, err := s.db.Exec(
		`INSERT INTO trips (user, name, archived, currency, notes, image_id) VALUES (?, ?, ?, ?, ?, ?)`,
		t.User, t.Name, t.Archived, t.Currency, t.Notes, t.ImageID,
	)
	if err != nil {
		return fmt.Errorf("insert trip %q: %w", t.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return nil
}

func (s *TripStore) GetByID(id int64, user string) (*model.Trip, error) {
	t, err := scanTrip(s.db.QueryRow(`SELECT `+tripCols+tripFrom+` WHERE t.id = ? AND t.user = ?`, id, user))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip %d: %w", id, err)
	}
	return t, nil
}

func (s *TripStore) List(user string) ([]model.Trip, error) {
	rows, err := s.db.Query(`SELECT `+tripCols+tripFrom+` WHERE t.user = ? ORDER BY t.id`, user)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (s *TripStore) AddPlace(tripID, placeID int64) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO trip_places (trip_id, place_id) VALUES (?, ?)`, tripID, placeID)
	if err != nil {
		return fmt.Errorf("add place %d to trip %d: %w", placeID, tripID, err)
	}
	return nil
}

func (s *TripStore) HasPlace(tripID, placeID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM trip_places WHERE trip_id = ? AND place_id = ?`, tripID, placeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check trip place: %w", err)
	}
	return n > 0, nil
}

func (s *TripStore) AddMember(m model.TripMember) error {
	_, err := s.db.Exec(
		`INSERT INTO trip_members (trip_id, user, invited_by, invited_at, joined_at) VALUES (?, ?, ?, ?, ?)`,
		m.TripID, m.User, m.InvitedBy, m.InvitedAt.UTC(), m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("add member %q to trip %d: %w", m.User, m.TripID, err)
	}
	return nil
}

func (s *TripStore) ListMembers(tripID int64) ([]model.TripMember, error) {
	rows, err := s.db.Query(
		`SELECT trip_id, user, COALESCE(invited_by, ''), invited_at, joined_at
		 FROM trip_members WHERE trip_id = ? ORDER BY invited_at`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trip members: %w", err)
	}
	defer rows.Close()

	var members []model.TripMember
	for rows.Next() {
		var m model.TripMember
		var joinedAt sql.NullTime
		if err := rows.Scan(&m.TripID, &m.User, &m.InvitedBy, &m.InvitedAt, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan trip member: %w", err)
		}
		if joinedAt.Valid {
			m.JoinedAt = &joinedAt.Time
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *TripStore) Share(tripID int64, token string) error {
	_, err := s.db.Exec(`INSERT INTO trip_shares (trip_id, token) VALUES (?, ?)`, tripID, token)
	if err != nil {
		return fmt.Errorf("share trip %d: %w", tripID, err)
	}
	return nil
}

func (s *TripStore) IsShared(tripID int64) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM trip_shares WHERE trip_id = ?`, tripID).Scan(&n); err != nil {
		return false, fmt.Errorf("check trip share: %w", err)
	}
	return n > 0, nil
}

func (s *TripStore) CreateAttachment(a *model.Attachment) error {
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	result, err := s.db.Exec(
		`INSERT INTO trip_attachments (trip_id, user, filename, stored_filename, file_size, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.TripID, a.User, a.Filename, a.StoredFilename, a.FileSize, a.UploadedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	return nil
}

func (s *TripStore) ListAttachments(tripID int64) ([]model.Attachment, error) {
	rows, err := s.db.Query(
		`SELECT id, trip_id, user, filename, stored_filename, file_size, uploaded_at
		 FROM trip_attachments WHERE trip_id = ? ORDER BY id`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.TripID, &a.User, &a.Filename, &a.StoredFilename, &a.FileSize, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
