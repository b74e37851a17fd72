package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/tripkeep/internal/model"
)

type CategoryStore struct {
	db DBTX
}

func NewCategoryStore(db DBTX) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryCols = `c.id, c.user, c.name, c.color, c.image_id, COALESCE(i.filename, '')`

const categoryFrom = ` FROM categories c LEFT JOIN images i ON i.id = c.image_id`

func scanCategory(sc scanner) (*model.Category, error) {
	var c model.Category
	var color sql.NullString
	var imageID sql.NullInt64
	if err := sc.Scan(&c.ID, &c.User, &c.Name, &color, &imageID, &c.Image); err != nil {
		return nil, err
	}
	c.Color = nullString(color)
	c.ImageID = nullInt64(imageID)
	return &c, nil
}

func (s *CategoryStore) Create(user, name string, color *string, imageID *int64) (*model.Category, error) {
	result, err := s.db.Exec(
		`INSERT INTO categories (user, name, color, image_id) VALUES (?, ?, ?, ?)`,
		user, name, color, imageID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category %q: %w", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CategoryStore) GetByID(id int64) (*model.Category, error) {
	c, err := scanCategory(s.db.QueryRow(`SELECT `+categoryCols+categoryFrom+` WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// GetByName looks up a category by its natural key.
func (s *CategoryStore) GetByName(user, name string) (*model.Category, error) {
	c, err := scanCategory(s.db.QueryRow(
		`SELECT `+categoryCols+categoryFrom+` WHERE c.user = ? AND c.name = ?`, user, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", name, err)
	}
	return c, nil
}

func (s *CategoryStore) List(user string) ([]model.Category, error) {
	rows, err := s.db.Query(`SELECT `+categoryCols+categoryFrom+` WHERE c.user = ? ORDER BY c.id`, user)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *CategoryStore) Update(id int64, color *string, imageID *int64) error {
	_, err := s.db.Exec(`UPDATE categories SET color = ?, image_id = ? WHERE id = ?`, color, imageID, id)
	if err != nil {
		return fmt.Errorf("update category %d: %w", id, err)
	}
	return nil
}
