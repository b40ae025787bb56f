package repositories

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

// PresentationsKey is the store key holding every saved presentation.
const PresentationsKey = "saved_presentations"

const blobVersion = 1

// presentationBlob is the persisted layout. Older data is a bare JSON array
// of presentations, which [decodeBlob] still accepts.
type presentationBlob struct {
	Version       int                        `json:"version"`
	Presentations []models.SavedPresentation `json:"presentations"`
}

// PresentationRepository stores named deck snapshots in a single blob.
//
// Every Save rewrites the whole list. Names are not unique; entries are
// selected by ID.
type PresentationRepository struct {
	store Store
	db    *sql.DB
	now   func() time.Time
}

// NewPresentationRepository creates a repository over store. When db is
// non-nil the presentation_index table is kept in step with the blob.
func NewPresentationRepository(store Store, db *sql.DB) *PresentationRepository {
	return &PresentationRepository{store: store, db: db, now: func() time.Time { return time.Now().UTC() }}
}

func decodeBlob(data []byte) ([]models.SavedPresentation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var legacy []models.SavedPresentation
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("%w: decode presentations: %v", shared.ErrPersistenceUnavailable, err)
		}
		for i := range legacy {
			if legacy[i].ID == "" {
				legacy[i].ID = fmt.Sprintf("legacy-%d", i+1)
			}
		}
		return legacy, nil
	}

	var blob presentationBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: decode presentations: %v", shared.ErrPersistenceUnavailable, err)
	}
	if blob.Version > blobVersion {
		return nil, fmt.Errorf("%w: unsupported presentations version %d", shared.ErrPersistenceUnavailable, blob.Version)
	}
	return blob.Presentations, nil
}

func (r *PresentationRepository) read(ctx context.Context) ([]models.SavedPresentation, error) {
	data, err := r.store.Get(ctx, PresentationsKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBlob(data)
}

func (r *PresentationRepository) write(ctx context.Context, list []models.SavedPresentation) error {
	if list == nil {
		list = []models.SavedPresentation{}
	}
	data, err := json.Marshal(presentationBlob{Version: blobVersion, Presentations: list})
	if err != nil {
		return fmt.Errorf("%w: encode presentations: %v", shared.ErrPersistenceUnavailable, err)
	}
	return r.store.Put(ctx, PresentationsKey, data)
}

// Save appends a snapshot of deck under name and returns it.
func (r *PresentationRepository) Save(ctx context.Context, name string, deck models.Deck) (*models.SavedPresentation, error) {
	entry, err := models.NewSavedPresentation(name, deck.Slides)
	if err != nil {
		return nil, err
	}
	now := r.now()
	entry.CreatedAt, entry.LastModified = now, now

	list, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	list = append(list, entry)

	if err := r.write(ctx, list); err != nil {
		return nil, err
	}
	if err := r.index(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every saved presentation in save order.
func (r *PresentationRepository) List(ctx context.Context) ([]models.SavedPresentation, error) {
	return r.read(ctx)
}

// Load returns the presentation with id.
func (r *PresentationRepository) Load(ctx context.Context, id string) (*models.SavedPresentation, error) {
	list, err := r.read(ctx)
	if err != nil {
		return nil, err
	}

	i := slices.IndexFunc(list, func(p models.SavedPresentation) bool { return p.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPresentationNotFound, id)
	}
	return &list[i], nil
}

// Resolve finds a presentation by ID or, failing that, by exact name. When
// several share the name the most recently saved wins.
func (r *PresentationRepository) Resolve(ctx context.Context, ref string) (*models.SavedPresentation, error) {
	list, err := r.read(ctx)
	if err != nil {
		return nil, err
	}

	if i := slices.IndexFunc(list, func(p models.SavedPresentation) bool { return p.ID == ref }); i >= 0 {
		return &list[i], nil
	}

	var found *models.SavedPresentation
	for i := range list {
		if list[i].Name != ref {
			continue
		}
		if found == nil || !list[i].LastModified.Before(found.LastModified) {
			found = &list[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPresentationNotFound, ref)
	}
	return found, nil
}

// Delete removes the presentation with id.
func (r *PresentationRepository) Delete(ctx context.Context, id string) error {
	list, err := r.read(ctx)
	if err != nil {
		return err
	}

	i := slices.IndexFunc(list, func(p models.SavedPresentation) bool { return p.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrPresentationNotFound, id)
	}
	list = slices.Delete(list, i, i+1)

	if err := r.write(ctx, list); err != nil {
		return err
	}
	if r.db != nil {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM presentation_index WHERE id = ?", id); err != nil {
			return fmt.Errorf("%w: update index: %v", shared.ErrPersistenceUnavailable, err)
		}
	}
	return nil
}

// IndexEntry is one row of the presentation listing.
type IndexEntry struct {
	ID         string
	Name       string
	SlideCount int
	SavedAt    time.Time
}

// Search lists presentations whose name contains query, newest first. An
// empty query lists everything.
func (r *PresentationRepository) Search(ctx context.Context, query string) ([]IndexEntry, error) {
	if r.db != nil {
		return r.searchIndex(ctx, query)
	}

	list, err := r.read(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var entries []IndexEntry
	for _, p := range list {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		entries = append(entries, IndexEntry{ID: p.ID, Name: p.Name, SlideCount: len(p.Slides), SavedAt: p.LastModified})
	}
	slices.SortStableFunc(entries, func(a, b IndexEntry) int { return b.SavedAt.Compare(a.SavedAt) })
	return entries, nil
}

func (r *PresentationRepository) searchIndex(ctx context.Context, query string) ([]IndexEntry, error) {
	sqlQuery := `
		SELECT id, name, slide_count, saved_at
		FROM presentation_index
	`
	args := []any{}
	if q := strings.TrimSpace(query); q != "" {
		sqlQuery += " WHERE name LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(q)+"%")
	}
	sqlQuery += " ORDER BY saved_at DESC"

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query index: %v", shared.ErrPersistenceUnavailable, err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		var e IndexEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.SlideCount, &e.SavedAt); err != nil {
			return nil, fmt.Errorf("%w: scan index: %v", shared.ErrPersistenceUnavailable, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration: %v", shared.ErrPersistenceUnavailable, err)
	}
	return entries, nil
}

func (r *PresentationRepository) index(ctx context.Context, p models.SavedPresentation) error {
	if r.db == nil {
		return nil
	}

	query := `
		INSERT INTO presentation_index (id, name, slide_count, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, slide_count = excluded.slide_count, saved_at = excluded.saved_at
	`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, len(p.Slides), p.LastModified); err != nil {
		return fmt.Errorf("%w: update index: %v", shared.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Reindex rebuilds presentation_index from the blob, which is the source of truth.
func (r *PresentationRepository) Reindex(ctx context.Context) (int, error) {
	if r.db == nil {
		return 0, nil
	}

	list, err := r.read(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", shared.ErrPersistenceUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM presentation_index"); err != nil {
		return 0, fmt.Errorf("%w: clear index: %v", shared.ErrPersistenceUnavailable, err)
	}
	for _, p := range list {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO presentation_index (id, name, slide_count, saved_at) VALUES (?, ?, ?, ?)",
			p.ID, p.Name, len(p.Slides), p.LastModified,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: insert index: %v", shared.ErrPersistenceUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", shared.ErrPersistenceUnavailable, err)
	}
	return len(list), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
