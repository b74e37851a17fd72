package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/tripkeep/internal/model"
)

type PlaceStore struct {
	db DBTX
}

func NewPlaceStore(db DBTX) *PlaceStore {
	return &PlaceStore{db: db}
}

const placeCols = `p.id, p.user, p.name, p.lat, p.lng, p.place, p.category_id, p.image_id,
	COALESCE(pi.filename, ''), p.allowdog, p.description, p.price, p.duration, p.favorite,
	p.visited, p.restroom, p.gpx,
	c.id, c.user, c.name, c.color, c.image_id, COALESCE(ci.filename, '')`

const placeFrom = ` FROM places p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN images pi ON pi.id = p.image_id
	LEFT JOIN images ci ON ci.id = c.image_id`

func scanPlace(sc scanner) (*model.Place, error) {
	var p model.Place
	var c model.Category
	var imageID, duration, catImageID sql.NullInt64
	var allowDog, favorite, visited, restroom sql.NullBool
	var description, gpx, color sql.NullString
	var price sql.NullFloat64
	err := sc.Scan(&p.ID, &p.User, &p.Name, &p.Lat, &p.Lng, &p.Place, &p.CategoryID, &imageID,
		&p.Image, &allowDog, &description, &price, &duration, &favorite,
		&visited, &restroom, &gpx,
		&c.ID, &c.User, &c.Name, &color, &catImageID, &c.Image)
	if err != nil {
		return nil, err
	}
	p.ImageID = nullInt64(imageID)
	p.AllowDog = nullBool(allowDog)
	p.Description = nullString(description)
	p.Price = nullFloat(price)
	p.Duration = nullInt(duration)
	p.Favorite = nullBool(favorite)
	p.Visited = nullBool(visited)
	p.Restroom = nullBool(restroom)
	p.GPX = nullString(gpx)
	c.Color = nullString(color)
	c.ImageID = nullInt64(catImageID)
	p.Category = &c
	return &p, nil
}

// Create inserts p and sets its ID.
func (s *PlaceStore) Create(p *model.Place) error {
	result, err := s.db.Exec(
		`INSERT INTO places (user, name, lat, lng, place, category_id, image_id, allowdog, description,
		                     price, duration, favorite, visited, restroom, gpx)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.User, p.Name, p.Lat, p.Lng, p.Place, p.CategoryID, p.ImageID, p.AllowDog, p.Description,
		p.Price, p.Duration, p.Favorite, p.Visited, p.Restroom, p.GPX,
	)
	if err != nil {
		return fmt.Errorf("insert place %q: %w", p.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return nil
}

func (s *PlaceStore) GetByID(id int64, user string) (*model.Place, error) {
	p, err := scanPlace(s.db.QueryRow(`SELECT `+placeCols+placeFrom+` WHERE p.id = ? AND p.user = ?`, id, user))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get place %d: %w", id, err)
	}
	return p, nil
}

func (s *PlaceStore) List(user string) ([]model.Place, error) {
	return s.query(`SELECT `+placeCols+placeFrom+` WHERE p.user = ? ORDER BY p.id`, user)
}

// ListByTrip returns the places in a trip's place set.
func (s *PlaceStore) ListByTrip(tripID int64) ([]model.Place, error) {
	return s.query(
		`SELECT `+placeCols+placeFrom+`
		 JOIN trip_places tp ON tp.place_id = p.id
		 WHERE tp.trip_id = ? ORDER BY p.id`, tripID,
	)
}

func (s *PlaceStore) query(q string, args ...any) ([]model.Place, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, *p)
	}
	return places, rows.Err()
}
