package backup

import (
	"bytes"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukerupert/tripkeep/internal/assets"
	"github.com/dukerupert/tripkeep/internal/database"
	"github.com/dukerupert/tripkeep/internal/model"
	"github.com/dukerupert/tripkeep/internal/store"
	"github.com/stretchr/testify/require"
)

var (
	pngData      = []byte("\x89PNG\r\n\x1a\nplace image body")
	otherPngData = []byte("\x89PNG\r\n\x1a\nanother image body")
	pdfData      = []byte("%PDF-1.4 boarding pass")
)

type testEnv struct {
	db     *sql.DB
	assets *assets.Store
	logger *slog.Logger
	rec    *Reconciler
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	as, err := assets.New(filepath.Join(dir, "assets"), filepath.Join(dir, "attachments"))
	require.NoError(t, err)

	users := store.NewUserStore(db)
	for _, u := range []string{"alice", "bob"} {
		require.NoError(t, users.Ensure(u))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		db:     db,
		assets: as,
		logger: logger,
		rec:    NewReconciler(db, as, 1<<20, logger),
		dir:    dir,
	}
}

type seeded struct {
	categoryID int64
	placeID    int64
	tripID     int64
	dayID      int64
}

func ptr[T any](v T) *T { return &v }

// seedMinimal gives user one category, one place, and one trip with one
// day holding one item linked to the place.
func (e *testEnv) seedMinimal(t *testing.T, user string) seeded {
	t.Helper()
	images := store.NewImageStore(e.db)
	categories := store.NewCategoryStore(e.db)
	places := store.NewPlaceStore(e.db)
	trips := store.NewTripStore(e.db)

	name, err := e.assets.SaveImage(pngData)
	require.NoError(t, err)
	img, err := images.Create(user, name)
	require.NoError(t, err)

	cat, err := categories.GetByName(user, "Food & Drink")
	require.NoError(t, err)
	require.NotNil(t, cat)
	require.NoError(t, categories.Update(cat.ID, ptr("#ff0000"), nil))

	place := &model.Place{
		User: user, Name: "Chez Paul", Lat: 48.85, Lng: 2.35, Place: "Paris",
		CategoryID: cat.ID, ImageID: &img.ID, Price: ptr(25.0), Duration: ptr(90),
		Favorite: ptr(true), GPX: ptr("<gpx/>"),
	}
	require.NoError(t, places.Create(place))

	trip := &model.Trip{User: user, Name: "Paris weekend", Archived: ptr(false), Currency: ptr("€")}
	require.NoError(t, trips.Create(trip))
	require.NoError(t, trips.AddPlace(trip.ID, place.ID))

	day, err := trips.CreateDay(trip.ID, user, "Saturday")
	require.NoError(t, err)
	status := model.StatusConfirmed
	require.NoError(t, trips.CreateItem(user, &model.TripItem{
		DayID: day.ID, Time: "12", Text: "Lunch", PlaceID: &place.ID, Status: &status, Price: ptr(30.0),
	}))

	require.NoError(t, trips.CreatePackingItem(user, &model.PackingItem{TripID: trip.ID, Text: "Umbrella", Qt: ptr(1)}))
	require.NoError(t, trips.CreateChecklistItem(user, &model.ChecklistItem{TripID: trip.ID, Text: "Book table", Checked: ptr(true)}))

	require.NoError(t, e.assets.SaveAttachment(trip.ID, "ticket.pdf", pdfData))
	require.NoError(t, trips.CreateAttachment(&model.Attachment{
		TripID: trip.ID, User: user, Filename: "Train ticket.pdf", StoredFilename: "ticket.pdf",
		FileSize: int64(len(pdfData)), UploadedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}))

	return seeded{categoryID: cat.ID, placeID: place.ID, tripID: trip.ID, dayID: day.ID}
}

func (e *testEnv) exportArchive(t *testing.T, user string) []byte {
	t.Helper()
	doc, images, err := NewSerializer(e.db).Serialize(user, time.Now())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, doc, images, e.assets, e.logger))
	return buf.Bytes()
}

func categoryByName(cats []model.Category, name string) *model.Category {
	for i := range cats {
		if cats[i].Name == name {
			return &cats[i]
		}
	}
	return nil
}

func (e *testEnv) count(t *testing.T, table, user string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE user = ?`, user).Scan(&n))
	return n
}
