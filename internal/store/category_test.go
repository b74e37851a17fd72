package store

import (
	"testing"

	"github.com/dukerupert/tripkeep/internal/model"
)

func TestCategoryCreateAndGetByName(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCategoryStore(db)
	is := NewImageStore(db)

	img, err := is.Create("alice", "abc.png")
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	c, err := cs.Create("alice", "Street Food", ptr("#ff0000"), &img.ID)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if c.Image != "abc.png" {
		t.Errorf("image = %q, want %q", c.Image, "abc.png")
	}

	got, err := cs.GetByName("alice", "Street Food")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got == nil || got.ID != c.ID {
		t.Fatalf("got = %+v, want id %d", got, c.ID)
	}
	if got.Color == nil || *got.Color != "#ff0000" {
		t.Errorf("color = %v, want #ff0000", got.Color)
	}

	other, _ := cs.GetByName("bob", "Street Food")
	if other != nil {
		t.Errorf("categories must be scoped per user, got %+v", other)
	}
}

func TestCategoryNameUniquePerUser(t *testing.T) {
	cs := NewCategoryStore(setupTestDB(t))

	if _, err := cs.Create("alice", "Museums", nil, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cs.Create("alice", "Museums", nil, nil); err == nil {
		t.Error("expected unique constraint error for duplicate name")
	}
	if _, err := cs.Create("bob", "Museums", nil, nil); err != nil {
		t.Errorf("same name for another user: %v", err)
	}
}

func TestCategoryUpdate(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCategoryStore(db)
	is := NewImageStore(db)

	c, _ := cs.Create("alice", "Museums", nil, nil)
	img, _ := is.Create("alice", "new.webp")
	if err := cs.Update(c.ID, ptr("#00ff00"), &img.ID); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := cs.GetByID(c.ID)
	if got.Color == nil || *got.Color != "#00ff00" {
		t.Errorf("color = %v, want #00ff00", got.Color)
	}
	if got.Image != "new.webp" {
		t.Errorf("image = %q, want new.webp", got.Image)
	}

	list, _ := cs.List("alice")
	if want := len(model.DefaultCategories) + 1; len(list) != want {
		t.Errorf("len = %d, want %d", len(list), want)
	}
}
