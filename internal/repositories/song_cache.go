package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

const songKeyPrefix = "lyrics:"

// SongCache keeps lyrics lookups so repeated queries skip the network.
//
// Queries are folded to lower case with collapsed whitespace before keying.
type SongCache struct {
	store Store
}

// NewSongCache creates a SongCache over store.
func NewSongCache(store Store) *SongCache {
	return &SongCache{store: store}
}

func songKey(query string) string {
	return songKeyPrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get returns the cached song for query. ok is false on a miss.
func (c *SongCache) Get(ctx context.Context, query string) (song *models.Song, ok bool, err error) {
	data, err := c.store.Get(ctx, songKey(query))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var s models.Song
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("%w: decode cached song: %v", shared.ErrPersistenceUnavailable, err)
	}
	return &s, true, nil
}

// Put caches song under query. Songs without lyrics are not cached.
func (c *SongCache) Put(ctx context.Context, query string, song *models.Song) error {
	if song == nil || strings.TrimSpace(song.Lyrics) == "" {
		return nil
	}

	data, err := json.Marshal(song)
	if err != nil {
		return fmt.Errorf("%w: encode song: %v", shared.ErrPersistenceUnavailable, err)
	}
	return c.store.Put(ctx, songKey(query), data)
}
