package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/tripkeep/internal/model"
)

type ImageStore struct {
	db DBTX
}

func NewImageStore(db DBTX) *ImageStore {
	return &ImageStore{db: db}
}

func (s *ImageStore) Create(user, filename string) (*model.Image, error) {
	result, err := s.db.Exec(`INSERT INTO images (user, filename) VALUES (?, ?)`, user, filename)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.Image{ID: id, User: user, Filename: filename}, nil
}

func (s *ImageStore) GetByID(id int64) (*model.Image, error) {
	var img model.Image
	err := s.db.QueryRow(`SELECT id, user, filename FROM images WHERE id = ?`, id).
		Scan(&img.ID, &img.User, &img.Filename)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image %d: %w", id, err)
	}
	return &img, nil
}

func (s *ImageStore) ListByUser(user string) ([]model.Image, error) {
	rows, err := s.db.Query(`SELECT id, user, filename FROM images WHERE user = ? ORDER BY id`, user)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.User, &img.Filename); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *ImageStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete image %d: %w", id, err)
	}
	return nil
}
