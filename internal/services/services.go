package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

var (
	// ErrNoResults means the provider found no song for the query.
	ErrNoResults = errors.New("no results found")
	// ErrNoLyrics means a song was found but its lyrics could not be extracted.
	ErrNoLyrics = errors.New("could not extract lyrics")
)

// Service looks up a song with its lyrics from free-text queries.
type Service interface {
	// Lookup returns the best match for query.
	Lookup(ctx context.Context, query string) (*models.Song, error)

	// Name returns the provider name (e.g. "Genius", "lyrics server").
	Name() string
}

// SongCacher stores lookups between runs.
type SongCacher interface {
	Get(ctx context.Context, query string) (*models.Song, bool, error)
	Put(ctx context.Context, query string, song *models.Song) error
}

// CachedService consults a cache before delegating to another Service.
// Cache failures are logged and never fail a lookup.
type CachedService struct {
	next   Service
	cache  SongCacher
	logger *log.Logger
}

// NewCachedService wraps next with cache.
func NewCachedService(next Service, cache SongCacher, logger *log.Logger) *CachedService {
	return &CachedService{next: next, cache: cache, logger: logger}
}

// Name reports the wrapped provider's name.
func (c *CachedService) Name() string { return c.next.Name() }

// Lookup returns a cached song when present, else the wrapped result.
func (c *CachedService) Lookup(ctx context.Context, query string) (*models.Song, error) {
	if song, ok, err := c.cache.Get(ctx, query); err != nil {
		c.warn("song cache read failed", err)
	} else if ok {
		return song, nil
	}

	song, err := c.next.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(ctx, query, song); err != nil {
		c.warn("song cache write failed", err)
	}
	return song, nil
}

func (c *CachedService) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "error", err)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func requireQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: no song query provided", shared.ErrInvalidInput)
	}
	return query, nil
}
