package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/tripkeep/internal/assets"
	"github.com/dukerupert/tripkeep/internal/model"
	"github.com/dukerupert/tripkeep/internal/snapshot"
	"github.com/dukerupert/tripkeep/internal/store"
)

// ImageRef identifies an image in an import source. Archives look images up
// by filename, legacy documents by id.
type ImageRef struct {
	ID       *int64
	Filename string
}

// AssetSource supplies the binary payloads referenced by an imported
// document. A false result means the payload is absent. Attachments are
// requested with the trip id from the imported document.
type AssetSource interface {
	Image(ref ImageRef) ([]byte, bool)
	Attachment(tripID int64, storedFilename string) ([]byte, bool)
}

type ImportResult struct {
	Places     []model.Place    `json:"places"`
	Categories []model.Category `json:"categories"`
	Settings   *model.Settings  `json:"settings"`
}

// Reconciler merges an imported document into a user's data. Every entity
// gets a fresh id except categories, which are matched by name.
type Reconciler struct {
	db            *sql.DB
	assets        *assets.Store
	maxAttachment int64
	logger        *slog.Logger
}

func NewReconciler(db *sql.DB, as *assets.Store, maxAttachment int64, logger *slog.Logger) *Reconciler {
	return &Reconciler{db: db, assets: as, maxAttachment: maxAttachment, logger: logger}
}

// Import applies doc for user in a single transaction. On failure nothing
// is persisted and every file written so far is removed.
func (r *Reconciler) Import(ctx context.Context, user string, doc *snapshot.Document, src AssetSource) (*ImportResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrImportFailed, err)
	}

	run := &importRun{
		Reconciler:     r,
		user:           user,
		src:            src,
		users:          store.NewUserStore(tx),
		images:         store.NewImageStore(tx),
		categories:     store.NewCategoryStore(tx),
		places:         store.NewPlaceStore(tx),
		trips:          store.NewTripStore(tx),
		categoryByName: make(map[string]*model.Category),
		placeIDs:       make(map[int64]int64),
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
			run.discardWritten()
		}
	}()

	if err := run.apply(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrImportFailed, err)
	}
	committed = true

	for _, name := range run.replaced {
		if err := r.assets.RemoveImage(name); err != nil {
			r.logger.Warn("remove replaced image", "filename", name, "error", err)
		}
	}

	categories, err := store.NewCategoryStore(r.db).List(user)
	if err != nil {
		return nil, err
	}
	settings, err := store.NewUserStore(r.db).GetSettings(user)
	if err != nil {
		return nil, err
	}
	r.logger.Info("backup imported", "user", user, "places", len(run.created), "trips", run.tripCount)
	return &ImportResult{Places: run.created, Categories: categories, Settings: settings}, nil
}

type attachmentKey struct {
	tripID int64
	stored string
}

type importRun struct {
	*Reconciler
	user string
	src  AssetSource

	users      *store.UserStore
	images     *store.ImageStore
	categories *store.CategoryStore
	places     *store.PlaceStore
	trips      *store.TripStore

	categoryByName map[string]*model.Category
	placeIDs       map[int64]int64
	created        []model.Place
	tripCount      int

	writtenImages      []string
	writtenAttachments []attachmentKey
	replaced           []string
}

func (run *importRun) apply(doc *snapshot.Document) error {
	if err := run.users.Ensure(run.user); err != nil {
		return err
	}
	if err := run.mergeCategories(doc.Categories); err != nil {
		return err
	}
	if err := run.createPlaces(doc.Places); err != nil {
		return err
	}
	if doc.Settings != nil {
		if _, err := run.users.ApplySettings(run.user, settingsPatch(doc.Settings)); err != nil {
			return err
		}
	}
	for _, t := range doc.Trips {
		if err := run.createTrip(t); err != nil {
			return err
		}
	}
	return nil
}

func (run *importRun) discardWritten() {
	for _, name := range run.writtenImages {
		run.assets.RemoveImage(name)
	}
	for _, a := range run.writtenAttachments {
		run.assets.RemoveAttachment(a.tripID, a.stored)
	}
}

func imageRef(image *string, id *int64) (ImageRef, bool) {
	if image == nil && id == nil {
		return ImageRef{}, false
	}
	ref := ImageRef{ID: id}
	if image != nil {
		ref.Filename = snapshot.ImageBasename(*image)
	}
	return ref, true
}

// importImage stores the referenced image if the source has it. A missing
// or unrecognised payload yields nil so the referencing field is omitted.
func (run *importRun) importImage(image *string, id *int64) (*model.Image, error) {
	ref, ok := imageRef(image, id)
	if !ok {
		return nil, nil
	}
	data, ok := run.src.Image(ref)
	if !ok {
		run.logger.Debug("image not in import source", "filename", ref.Filename)
		return nil, nil
	}
	return run.saveImage(data)
}

func (run *importRun) saveImage(data []byte) (*model.Image, error) {
	filename, err := run.assets.SaveImage(data)
	if errors.Is(err, assets.ErrUnknownImageFormat) {
		run.logger.Debug("skipping unrecognised image payload", "size", len(data))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.writtenImages = append(run.writtenImages, filename)
	return run.images.Create(run.user, filename)
}

func (run *importRun) mergeCategories(imported []snapshot.Category) error {
	existing, err := run.categories.List(run.user)
	if err != nil {
		return err
	}
	for i := range existing {
		run.categoryByName[existing[i].Name] = &existing[i]
	}

	for _, c := range imported {
		if c.Name == "" {
			continue
		}
		if cur, ok := run.categoryByName[c.Name]; ok {
			if err := run.mergeCategory(cur, c); err != nil {
				return err
			}
			continue
		}

		img, err := run.importImage(c.Image, c.ImageID)
		if err != nil {
			return err
		}
		var imageID *int64
		if img != nil {
			imageID = &img.ID
		}
		created, err := run.categories.Create(run.user, c.Name, c.Color, imageID)
		if err != nil {
			return err
		}
		run.categoryByName[c.Name] = created
	}
	return nil
}

// mergeCategory updates an existing category in place. Existing values win
// for fields the import leaves empty; a different image replaces the old one.
func (run *importRun) mergeCategory(cur *model.Category, c snapshot.Category) error {
	color := cur.Color
	if c.Color != nil && *c.Color != "" {
		color = c.Color
	}

	imageID, imageName := cur.ImageID, cur.Image
	var oldImageID *int64
	if ref, ok := imageRef(c.Image, c.ImageID); ok {
		if data, ok := run.src.Image(ref); ok && !run.sameImage(cur.Image, data) {
			img, err := run.saveImage(data)
			if err != nil {
				return err
			}
			if img != nil {
				oldImageID = cur.ImageID
				imageID, imageName = &img.ID, img.Filename
			}
		}
	}

	if err := run.categories.Update(cur.ID, color, imageID); err != nil {
		return err
	}
	if oldImageID != nil {
		if err := run.images.Delete(*oldImageID); err != nil {
			return err
		}
		run.replaced = append(run.replaced, cur.Image)
	}
	cur.Color, cur.ImageID, cur.Image = color, imageID, imageName
	return nil
}

func (run *importRun) sameImage(filename string, data []byte) bool {
	if filename == "" {
		return false
	}
	current, err := run.assets.ReadImage(filename)
	return err == nil && bytes.Equal(current, data)
}

func (run *importRun) createPlaces(imported []snapshot.Place) error {
	for _, p := range imported {
		if p.Category == nil {
			continue
		}
		cat, ok := run.categoryByName[p.Category.Name]
		if !ok {
			run.logger.Debug("skipping place with unknown category", "place", p.Name, "category", p.Category.Name)
			continue
		}

		np := model.Place{
			User:        run.user,
			Name:        p.Name,
			Lat:         p.Lat,
			Lng:         p.Lng,
			Place:       p.Place,
			CategoryID:  cat.ID,
			AllowDog:    p.AllowDog,
			Description: p.Description,
			Price:       p.Price,
			Duration:    p.Duration,
			Favorite:    p.Favorite,
			Visited:     p.Visited,
			Restroom:    p.Restroom,
			GPX:         p.GPX,
		}
		img, err := run.importImage(p.Image, p.ImageID)
		if err != nil {
			return err
		}
		if img != nil {
			np.ImageID, np.Image = &img.ID, img.Filename
		}
		if err := run.places.Create(&np); err != nil {
			return err
		}
		category := *cat
		np.Category = &category
		run.placeIDs[p.ID] = np.ID
		run.created = append(run.created, np)
	}
	return nil
}

func (run *importRun) createTrip(t snapshot.Trip) error {
	nt := model.Trip{
		User:     run.user,
		Name:     t.Name,
		Archived: t.Archived,
		Currency: t.Currency,
		Notes:    t.Notes,
	}
	img, err := run.importImage(t.Image, t.ImageID)
	if err != nil {
		return err
	}
	if img != nil {
		nt.ImageID = &img.ID
	}
	if err := run.trips.Create(&nt); err != nil {
		return err
	}
	run.tripCount++

	inTrip := make(map[int64]bool)
	addPlace := func(id int64) error {
		if inTrip[id] {
			return nil
		}
		inTrip[id] = true
		return run.trips.AddPlace(nt.ID, id)
	}
	for _, p := range t.Places {
		if id, ok := run.placeIDs[p.ID]; ok {
			if err := addPlace(id); err != nil {
				return err
			}
		}
	}

	for _, d := range t.Days {
		day, err := run.trips.CreateDay(nt.ID, run.user, d.Label)
		if err != nil {
			return err
		}
		for _, it := range d.Items {
			ni := model.TripItem{
				DayID:   day.ID,
				Time:    it.Time,
				Text:    it.Text,
				Comment: it.Comment,
				Lat:     it.Lat,
				Lng:     it.Lng,
				Price:   it.Price,
				GPX:     it.GPX,
				PaidBy:  it.PaidBy,
			}
			if it.Status != nil {
				if st, err := model.ParseItemStatus(*it.Status); err == nil {
					ni.Status = &st
				}
			}
			if it.Place != nil {
				if id, ok := run.placeIDs[it.Place.ID]; ok {
					if err := addPlace(id); err != nil {
						return err
					}
					ni.PlaceID = &id
				}
			}
			img, err := run.importImage(it.Image, it.ImageID)
			if err != nil {
				return err
			}
			if img != nil {
				ni.ImageID = &img.ID
			}
			if err := run.trips.CreateItem(run.user, &ni); err != nil {
				return err
			}
		}
	}

	for _, p := range t.PackingItems {
		item := model.PackingItem{TripID: nt.ID, Text: p.Text, Qt: p.Qt, Category: p.Category, Packed: p.Packed}
		if err := run.trips.CreatePackingItem(run.user, &item); err != nil {
			return err
		}
	}
	for _, c := range t.ChecklistItems {
		item := model.ChecklistItem{TripID: nt.ID, Text: c.Text, Checked: c.Checked}
		if err := run.trips.CreateChecklistItem(run.user, &item); err != nil {
			return err
		}
	}

	for _, a := range t.Attachments {
		if err := run.importAttachment(t.ID, nt.ID, a); err != nil {
			return err
		}
	}
	return nil
}

func (run *importRun) importAttachment(srcTripID, tripID int64, a snapshot.Attachment) error {
	if _, err := run.assets.AttachmentPath(tripID, a.StoredFilename); err != nil {
		run.logger.Debug("skipping attachment with invalid name", "stored_filename", a.StoredFilename)
		return nil
	}
	data, ok := run.src.Attachment(srcTripID, a.StoredFilename)
	if !ok {
		return nil
	}
	if !assets.IsPDF(data) || (run.maxAttachment > 0 && int64(len(data)) > run.maxAttachment) {
		run.logger.Debug("skipping attachment", "stored_filename", a.StoredFilename, "size", len(data))
		return nil
	}

	if err := run.assets.SaveAttachment(tripID, a.StoredFilename, data); err != nil {
		return err
	}
	run.writtenAttachments = append(run.writtenAttachments, attachmentKey{tripID, a.StoredFilename})

	na := model.Attachment{
		TripID:         tripID,
		User:           run.user,
		Filename:       a.Filename,
		StoredFilename: a.StoredFilename,
		FileSize:       a.FileSize,
		UploadedAt:     time.Now().UTC(),
	}
	if na.Filename == "" {
		na.Filename = a.StoredFilename
	}
	if na.FileSize == 0 {
		na.FileSize = int64(len(data))
	}
	if a.UploadedAt != nil {
		na.UploadedAt = *a.UploadedAt
	}
	return run.trips.CreateAttachment(&na)
}

func settingsPatch(s *snapshot.Settings) model.SettingsPatch {
	return model.SettingsPatch{
		MapLat:         s.MapLat,
		MapLng:         s.MapLng,
		Currency:       s.Currency,
		TileLayer:      s.TileLayer,
		ModeLowNetwork: s.ModeLowNetwork,
		ModeDark:       s.ModeDark,
		ModeGPXInPlace: s.ModeGPXInPlace,
		DoNotDisplay:   s.DoNotDisplay,
	}
}
