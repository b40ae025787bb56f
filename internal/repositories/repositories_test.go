package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	th "github.com/desertthunder/lyricslide/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// stores returns each backend under test, freshly created.
func stores(t *testing.T) map[string]func(t *testing.T) (Store, *sql.DB) {
	return map[string]func(t *testing.T) (Store, *sql.DB){
		"sqlite": func(t *testing.T) (Store, *sql.DB) {
			db := setupTestDB(t)
			return NewSQLiteStore(db), db
		},
		"file": func(t *testing.T) (Store, *sql.DB) {
			return NewFileStore(filepath.Join(t.TempDir(), "data", "presentations.json")), nil
		},
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("missing key", func(t *testing.T) {
				store, _ := open(t)
				if _, err := store.Get(ctx, "nothing"); !errors.Is(err, ErrKeyNotFound) {
					t.Errorf("expected ErrKeyNotFound, got %v", err)
				}
			})

			t.Run("put and replace", func(t *testing.T) {
				store, _ := open(t)
				if err := store.Put(ctx, "k", []byte(`{"a":1}`)); err != nil {
					t.Fatalf("failed to put: %v", err)
				}
				if err := store.Put(ctx, "k", []byte(`{"a":2}`)); err != nil {
					t.Fatalf("failed to replace: %v", err)
				}

				got, err := store.Get(ctx, "k")
				if err != nil {
					t.Fatalf("failed to get: %v", err)
				}
				if string(got) != `{"a":2}` {
					t.Errorf("expected replaced value, got %s", got)
				}
				if err := store.Close(); err != nil {
					t.Errorf("expected clean close, got %v", err)
				}
			})
		})
	}

	t.Run("file store rejects non-JSON", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "p.json"))
		if err := store.Put(ctx, "k", []byte("not json")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("file store corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "p.json")
		if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
			t.Fatal(err)
		}

		store := NewFileStore(path)
		if _, err := store.Get(ctx, "k"); !errors.Is(err, shared.ErrPersistenceUnavailable) {
			t.Errorf("expected ErrPersistenceUnavailable, got %v", err)
		}
	})

	t.Run("file store leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "p.json"))
		for i := range 3 {
			if err := store.Put(ctx, "k", []byte(`[]`)); err != nil {
				t.Fatalf("put %d: %v", i, err)
			}
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("expected only the store file, got %d entries", len(entries))
		}
	})

	t.Run("sqlite store closed database", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatal(err)
		}
		db.Close()

		store := NewSQLiteStore(db)
		if _, err := store.Get(ctx, "k"); !errors.Is(err, shared.ErrPersistenceUnavailable) {
			t.Errorf("expected ErrPersistenceUnavailable, got %v", err)
		}
		if err := store.Put(ctx, "k", []byte("{}")); !errors.Is(err, shared.ErrPersistenceUnavailable) {
			t.Errorf("expected ErrPersistenceUnavailable, got %v", err)
		}
	})

	t.Run("OpenStore", func(t *testing.T) {
		dir := t.TempDir()
		cfg := shared.DefaultConfig()
		cfg.Database.Path = filepath.Join(dir, "app.db")
		cfg.Storage.FilePath = filepath.Join(dir, "p.json")

		store, db, err := OpenStore(cfg)
		if err != nil {
			t.Fatalf("failed to open sqlite store: %v", err)
		}
		if db == nil {
			t.Error("expected database for sqlite backend")
		}
		if err := store.Close(); err != nil {
			t.Errorf("failed to close: %v", err)
		}

		cfg.Storage.Backend = "file"
		store, db, err = OpenStore(cfg)
		if err != nil {
			t.Fatalf("failed to open file store: %v", err)
		}
		if db != nil {
			t.Error("expected no database for file backend")
		}
		if _, ok := store.(*FileStore); !ok {
			t.Errorf("expected *FileStore, got %T", store)
		}

		cfg.Storage.Backend = "s3"
		if _, _, err := OpenStore(cfg); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestPresentationRepository(t *testing.T) {
	ctx := context.Background()

	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("Save and Load", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)
				deck := th.StyledDeck()

				saved, err := repo.Save(ctx, "Sunday", deck)
				if err != nil {
					t.Fatalf("failed to save: %v", err)
				}
				if saved.ID == "" {
					t.Error("expected ID to be set")
				}
				if !saved.CreatedAt.Equal(saved.LastModified) {
					t.Error("expected createdAt == lastModified on save")
				}

				loaded, err := repo.Load(ctx, saved.ID)
				if err != nil {
					t.Fatalf("failed to load: %v", err)
				}
				if loaded.Name != "Sunday" || len(loaded.Slides) != 3 {
					t.Errorf("unexpected presentation %s with %d slides", loaded.Name, len(loaded.Slides))
				}
				if loaded.Slides[1].FontColor != "#FFD700" || loaded.Slides[2].Notes != "Hold the last line" {
					t.Error("expected slide styles to survive persistence")
				}
			})

			t.Run("Save snapshots the deck", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)
				deck := th.SampleDeck("One")

				saved, err := repo.Save(ctx, "Snap", deck)
				if err != nil {
					t.Fatal(err)
				}
				deck.Slides[0].Content = "Changed"

				loaded, _ := repo.Load(ctx, saved.ID)
				if loaded.Slides[0].Content != "One" {
					t.Error("expected saved slides to be independent of the deck")
				}
			})

			t.Run("duplicate names", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)

				first, _ := repo.Save(ctx, "Same", th.SampleDeck("A"))
				second, _ := repo.Save(ctx, "Same", th.SampleDeck("B", "C"))

				list, err := repo.List(ctx)
				if err != nil {
					t.Fatal(err)
				}
				if len(list) != 2 {
					t.Fatalf("expected 2 presentations, got %d", len(list))
				}
				if first.ID == second.ID {
					t.Error("expected distinct IDs")
				}
				if list[0].ID != first.ID || list[1].ID != second.ID {
					t.Error("expected save order")
				}
			})

			t.Run("empty name", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)
				if _, err := repo.Save(ctx, "   ", th.SampleDeck("A")); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})

			t.Run("not found", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)

				if _, err := repo.Load(ctx, "missing"); !errors.Is(err, shared.ErrPresentationNotFound) {
					t.Errorf("expected ErrPresentationNotFound, got %v", err)
				}
				if err := repo.Delete(ctx, "missing"); !errors.Is(err, shared.ErrPresentationNotFound) {
					t.Errorf("expected ErrPresentationNotFound, got %v", err)
				}

				list, err := repo.List(ctx)
				if err != nil || len(list) != 0 {
					t.Errorf("expected empty list, got %d, %v", len(list), err)
				}
			})

			t.Run("Delete", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)

				keep, _ := repo.Save(ctx, "Keep", th.SampleDeck("A"))
				drop, _ := repo.Save(ctx, "Drop", th.SampleDeck("B"))

				if err := repo.Delete(ctx, drop.ID); err != nil {
					t.Fatalf("failed to delete: %v", err)
				}

				list, _ := repo.List(ctx)
				if len(list) != 1 || list[0].ID != keep.ID {
					t.Errorf("expected only %s to remain", keep.ID)
				}

				entries, _ := repo.Search(ctx, "")
				if len(entries) != 1 {
					t.Errorf("expected 1 indexed entry, got %d", len(entries))
				}
			})

			t.Run("Resolve", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)

				tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
				repo.now = func() time.Time {
					tick = tick.Add(time.Minute)
					return tick
				}

				older, _ := repo.Save(ctx, "Hymns", th.SampleDeck("Old"))
				newer, _ := repo.Save(ctx, "Hymns", th.SampleDeck("New"))

				got, err := repo.Resolve(ctx, "Hymns")
				if err != nil {
					t.Fatal(err)
				}
				if got.ID != newer.ID {
					t.Errorf("expected newest entry %s, got %s", newer.ID, got.ID)
				}

				got, err = repo.Resolve(ctx, older.ID)
				if err != nil || got.ID != older.ID {
					t.Errorf("expected lookup by ID, got %v, %v", got, err)
				}

				if _, err := repo.Resolve(ctx, "Psalms"); !errors.Is(err, shared.ErrPresentationNotFound) {
					t.Errorf("expected ErrPresentationNotFound, got %v", err)
				}
			})

			t.Run("Search", func(t *testing.T) {
				store, db := open(t)
				repo := NewPresentationRepository(store, db)

				tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
				repo.now = func() time.Time {
					tick = tick.Add(time.Minute)
					return tick
				}

				repo.Save(ctx, "Morning Worship", th.SampleDeck("A", "B"))
				repo.Save(ctx, "Evening Prayer", th.SampleDeck("C"))
				repo.Save(ctx, "Worship 100%", th.SampleDeck("D"))

				entries, err := repo.Search(ctx, "worship")
				if err != nil {
					t.Fatal(err)
				}
				if len(entries) != 2 {
					t.Fatalf("expected 2 matches, got %d", len(entries))
				}
				if entries[0].Name != "Worship 100%" {
					t.Errorf("expected newest first, got %s", entries[0].Name)
				}
				if entries[1].SlideCount != 2 {
					t.Errorf("expected slide count 2, got %d", entries[1].SlideCount)
				}

				entries, _ = repo.Search(ctx, "100%")
				if len(entries) != 1 {
					t.Errorf("expected literal %% match, got %d", len(entries))
				}

				entries, _ = repo.Search(ctx, "")
				if len(entries) != 3 {
					t.Errorf("expected all entries, got %d", len(entries))
				}
			})
		})
	}

	t.Run("legacy array", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "p.json"))
		legacy := `[{"name":"Old Deck","slides":[{"content":"Hello","background":"#000000","fontColor":"#FFFFFF","fontSize":30,"transition":"fade"}],"createdAt":"2024-05-01T10:00:00Z","lastModified":"2024-05-01T10:00:00Z"}]`
		if err := store.Put(ctx, PresentationsKey, []byte(legacy)); err != nil {
			t.Fatal(err)
		}

		repo := NewPresentationRepository(store, nil)
		list, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("expected legacy blob to load, got %v", err)
		}
		if len(list) != 1 || list[0].Name != "Old Deck" || list[0].ID == "" {
			t.Fatalf("unexpected legacy list %+v", list)
		}

		if _, err := repo.Save(ctx, "New Deck", th.SampleDeck("A")); err != nil {
			t.Fatal(err)
		}

		raw, _ := store.Get(ctx, PresentationsKey)
		if !strings.Contains(string(raw), `"version":1`) {
			t.Errorf("expected versioned blob after save, got %s", raw)
		}

		list, _ = repo.List(ctx)
		if len(list) != 2 || list[0].Slides[0].Content != "Hello" {
			t.Error("expected legacy entry to be kept")
		}
	})

	t.Run("future version", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "p.json"))
		store.Put(ctx, PresentationsKey, []byte(`{"version":9,"presentations":[]}`))

		repo := NewPresentationRepository(store, nil)
		if _, err := repo.List(ctx); !errors.Is(err, shared.ErrPersistenceUnavailable) {
			t.Errorf("expected ErrPersistenceUnavailable, got %v", err)
		}
	})

	t.Run("Reindex", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewSQLiteStore(db)

		NewPresentationRepository(store, nil).Save(ctx, "Unindexed", th.SampleDeck("A"))

		repo := NewPresentationRepository(store, db)
		entries, _ := repo.Search(ctx, "")
		if len(entries) != 0 {
			t.Fatalf("expected empty index, got %d", len(entries))
		}

		n, err := repo.Reindex(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("expected 1 reindexed entry, got %d", n)
		}

		entries, _ = repo.Search(ctx, "unindexed")
		if len(entries) != 1 {
			t.Errorf("expected indexed entry, got %d", len(entries))
		}
	})
}

func TestSongCache(t *testing.T) {
	ctx := context.Background()
	cache := NewSongCache(NewSQLiteStore(setupTestDB(t)))

	song := &models.Song{Title: "Amazing Grace", Artist: "John Newton", Lyrics: "Amazing grace\nhow sweet"}
	if err := cache.Put(ctx, "Amazing  Grace", song); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	got, ok, err := cache.Get(ctx, "amazing grace")
	if err != nil || !ok {
		t.Fatalf("expected a hit, got %v, %v", ok, err)
	}
	if got.Title != "Amazing Grace" || got.Lyrics != song.Lyrics {
		t.Errorf("unexpected cached song %+v", got)
	}

	if _, ok, _ := cache.Get(ctx, "other"); ok {
		t.Error("expected a miss")
	}

	if err := cache.Put(ctx, "empty", &models.Song{Title: "Empty"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := cache.Get(ctx, "empty"); ok {
		t.Error("expected songs without lyrics to be skipped")
	}
}
