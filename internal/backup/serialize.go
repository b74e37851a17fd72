package backup

import (
	"fmt"
	"time"

	"github.com/dukerupert/tripkeep/internal/model"
	"github.com/dukerupert/tripkeep/internal/snapshot"
	"github.com/dukerupert/tripkeep/internal/store"
)

// Serializer reads one user's graph into a snapshot document.
type Serializer struct {
	users      *store.UserStore
	images     *store.ImageStore
	categories *store.CategoryStore
	places     *store.PlaceStore
	trips      *store.TripStore
}

func NewSerializer(db store.DBTX) *Serializer {
	return &Serializer{
		users:      store.NewUserStore(db),
		images:     store.NewImageStore(db),
		categories: store.NewCategoryStore(db),
		places:     store.NewPlaceStore(db),
		trips:      store.NewTripStore(db),
	}
}

// Serialize returns the document for user and the filenames of every image
// the user owns. Any read error aborts the whole document.
func (s *Serializer) Serialize(user string, at time.Time) (*snapshot.Document, []string, error) {
	settings, err := s.users.GetSettings(user)
	if err != nil {
		return nil, nil, err
	}
	if settings == nil {
		return nil, nil, fmt.Errorf("serialize: user %q not found", user)
	}

	doc := &snapshot.Document{
		Meta:       snapshot.Meta{Version: snapshot.FormatVersion, At: at.UTC(), User: user},
		Settings:   settingsToSnapshot(settings),
		Categories: []snapshot.Category{},
		Places:     []snapshot.Place{},
		Trips:      []snapshot.Trip{},
	}

	categories, err := s.categories.List(user)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range categories {
		doc.Categories = append(doc.Categories, categoryToSnapshot(c))
	}

	places, err := s.places.List(user)
	if err != nil {
		return nil, nil, err
	}
	placeByID := make(map[int64]snapshot.Place, len(places))
	for _, p := range places {
		sp := placeToSnapshot(p)
		placeByID[p.ID] = nestedPlace(sp)
		doc.Places = append(doc.Places, sp)
	}

	trips, err := s.trips.List(user)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range trips {
		st, err := s.serializeTrip(t, placeByID)
		if err != nil {
			return nil, nil, err
		}
		doc.Trips = append(doc.Trips, *st)
	}

	images, err := s.images.ListByUser(user)
	if err != nil {
		return nil, nil, err
	}
	filenames := make([]string, 0, len(images))
	for _, img := range images {
		filenames = append(filenames, img.Filename)
	}

	return doc, filenames, nil
}

func (s *Serializer) serializeTrip(t model.Trip, placeByID map[int64]snapshot.Place) (*snapshot.Trip, error) {
	st := &snapshot.Trip{
		ID:             t.ID,
		Name:           t.Name,
		Archived:       t.Archived,
		Currency:       t.Currency,
		Notes:          t.Notes,
		Image:          optional(t.Image),
		ImageID:        t.ImageID,
		Days:           []snapshot.Day{},
		Places:         []snapshot.Place{},
		Collaborators:  []string{},
		PackingItems:   []snapshot.PackingItem{},
		ChecklistItems: []snapshot.ChecklistItem{},
		Attachments:    []snapshot.Attachment{},
	}

	places, err := s.places.ListByTrip(t.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range places {
		st.Places = append(st.Places, nestedPlace(placeToSnapshot(p)))
	}

	days, err := s.trips.ListDays(t.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		items, err := s.trips.ListItems(d.ID)
		if err != nil {
			return nil, err
		}
		sd := snapshot.Day{ID: d.ID, Label: d.Label, Items: []snapshot.Item{}}
		for _, it := range items {
			sd.Items = append(sd.Items, itemToSnapshot(it, placeByID))
		}
		st.Days = append(st.Days, sd)
	}

	members, err := s.trips.ListMembers(t.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		st.Collaborators = append(st.Collaborators, m.User)
	}
	if st.Shared, err = s.trips.IsShared(t.ID); err != nil {
		return nil, err
	}

	packing, err := s.trips.ListPackingItems(t.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range packing {
		st.PackingItems = append(st.PackingItems, snapshot.PackingItem{
			ID: p.ID, Text: p.Text, Qt: p.Qt, Category: p.Category, Packed: p.Packed,
		})
	}

	checklist, err := s.trips.ListChecklistItems(t.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range checklist {
		st.ChecklistItems = append(st.ChecklistItems, snapshot.ChecklistItem{ID: c.ID, Text: c.Text, Checked: c.Checked})
	}

	attachments, err := s.trips.ListAttachments(t.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range attachments {
		uploaded := a.UploadedAt
		st.Attachments = append(st.Attachments, snapshot.Attachment{
			ID:             a.ID,
			Filename:       a.Filename,
			StoredFilename: a.StoredFilename,
			FileSize:       a.FileSize,
			UploadedAt:     &uploaded,
		})
	}

	return st, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func settingsToSnapshot(s *model.Settings) *snapshot.Settings {
	doNotDisplay := append([]string{}, s.DoNotDisplay...)
	return &snapshot.Settings{
		Username:       s.Username,
		MapLat:         &s.MapLat,
		MapLng:         &s.MapLng,
		Currency:       &s.Currency,
		TileLayer:      s.TileLayer,
		ModeLowNetwork: s.ModeLowNetwork,
		ModeDark:       s.ModeDark,
		ModeGPXInPlace: s.ModeGPXInPlace,
		DoNotDisplay:   &doNotDisplay,
	}
}

func categoryToSnapshot(c model.Category) snapshot.Category {
	return snapshot.Category{
		ID:      c.ID,
		Name:    c.Name,
		Color:   c.Color,
		Image:   optional(c.Image),
		ImageID: c.ImageID,
	}
}

func placeToSnapshot(p model.Place) snapshot.Place {
	sp := snapshot.Place{
		ID:          p.ID,
		Name:        p.Name,
		Lat:         p.Lat,
		Lng:         p.Lng,
		Place:       p.Place,
		Image:       optional(p.Image),
		ImageID:     p.ImageID,
		AllowDog:    p.AllowDog,
		Description: p.Description,
		Price:       p.Price,
		Duration:    p.Duration,
		Favorite:    p.Favorite,
		Visited:     p.Visited,
		Restroom:    p.Restroom,
		GPX:         p.GPX,
	}
	if p.Category != nil {
		c := categoryToSnapshot(*p.Category)
		sp.Category = &c
	}
	return sp
}

// nestedPlace is the copy of a place embedded in a trip or item. The GPX
// track is only carried on the top-level place.
func nestedPlace(p snapshot.Place) snapshot.Place {
	p.GPX = nil
	return p
}

func itemToSnapshot(it model.TripItem, placeByID map[int64]snapshot.Place) snapshot.Item {
	si := snapshot.Item{
		ID:      it.ID,
		Time:    it.Time,
		Text:    it.Text,
		Comment: it.Comment,
		Lat:     it.Lat,
		Lng:     it.Lng,
		Price:   it.Price,
		DayID:   it.DayID,
		Image:   optional(it.Image),
		ImageID: it.ImageID,
		GPX:     it.GPX,
		PaidBy:  it.PaidBy,
	}
	if it.Status != nil {
		status := string(*it.Status)
		si.Status = &status
	}
	if it.PlaceID != nil {
		if p, ok := placeByID[*it.PlaceID]; ok {
			si.Place = &p
		}
	}
	return si
}
