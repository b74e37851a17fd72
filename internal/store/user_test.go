package store

import (
	"testing"

	"github.com/dukerupert/tripkeep/internal/model"
)

func TestUserDefaults(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	st, err := us.GetSettings("alice")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if st.MapLat != 48.107 || st.MapLng != -2.988 {
		t.Errorf("map center = (%v, %v), want (48.107, -2.988)", st.MapLat, st.MapLng)
	}
	if st.Currency != "€" {
		t.Errorf("currency = %q, want %q", st.Currency, "€")
	}
	if len(st.DoNotDisplay) != 0 {
		t.Errorf("do_not_display = %v, want empty", st.DoNotDisplay)
	}
}

func TestUserEnsureIsIdempotent(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	us.ApplySettings("alice", model.SettingsPatch{Currency: ptr("$")})
	if err := us.Ensure("alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	st, _ := us.GetSettings("alice")
	if st.Currency != "$" {
		t.Errorf("currency = %q, want %q after second Ensure", st.Currency, "$")
	}
}

func TestUserEnsureSeedsDefaultCategories(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	cs := NewCategoryStore(db)

	if err := us.Ensure("carol"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	list, err := cs.List("carol")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(list) != len(model.DefaultCategories) {
		t.Fatalf("len = %d, want %d", len(list), len(model.DefaultCategories))
	}
	for i, c := range list {
		if c.Name != model.DefaultCategories[i] {
			t.Errorf("category %d = %q, want %q", i, c.Name, model.DefaultCategories[i])
		}
		if c.Color != nil || c.ImageID != nil {
			t.Errorf("category %q has color %v image %v, want none", c.Name, c.Color, c.ImageID)
		}
	}

	if _, err := db.Exec(`DELETE FROM categories WHERE user = ? AND name = ?`, "carol", "Wellness"); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if err := us.Ensure("carol"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	list, _ = cs.List("carol")
	if len(list) != len(model.DefaultCategories)-1 {
		t.Errorf("len = %d after second Ensure, want %d", len(list), len(model.DefaultCategories)-1)
	}
}

func TestUserGetSettingsUnknown(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	st, err := us.GetSettings("nobody")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil, got %+v", st)
	}
}

func TestUserApplySettingsPartial(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	_, err := us.ApplySettings("alice", model.SettingsPatch{
		Currency:     ptr("$"),
		ModeDark:     ptr(true),
		DoNotDisplay: &[]string{"Culture", "Nature & Outdoor"},
	})
	if err != nil {
		t.Fatalf("apply settings: %v", err)
	}

	st, err := us.ApplySettings("alice", model.SettingsPatch{MapLat: ptr(10.5)})
	if err != nil {
		t.Fatalf("apply settings: %v", err)
	}
	if st.MapLat != 10.5 {
		t.Errorf("map_lat = %v, want 10.5", st.MapLat)
	}
	if st.MapLng != -2.988 {
		t.Errorf("map_lng = %v, want untouched default", st.MapLng)
	}
	if st.Currency != "$" {
		t.Errorf("currency = %q, want %q", st.Currency, "$")
	}
	if st.ModeDark == nil || !*st.ModeDark {
		t.Errorf("mode_dark = %v, want true", st.ModeDark)
	}

	reloaded, _ := us.GetSettings("alice")
	if len(reloaded.DoNotDisplay) != 2 || reloaded.DoNotDisplay[1] != "Nature & Outdoor" {
		t.Errorf("do_not_display = %v", reloaded.DoNotDisplay)
	}
}
