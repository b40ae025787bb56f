package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

// LyricsClient queries the companion lyrics server.
type LyricsClient struct {
	api *APIService
}

// NewLyricsClient creates a client for the server at baseURL.
func NewLyricsClient(baseURL string, client *http.Client) *LyricsClient {
	return &LyricsClient{api: NewAPIService(baseURL, client)}
}

// Name implements [Service].
func (c *LyricsClient) Name() string { return "lyrics server" }

// Lookup calls GET /lyrics?song=query. Any failure is ErrLookupFailed.
func (c *LyricsClient) Lookup(ctx context.Context, query string) (*models.Song, error) {
	query, err := requireQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrLookupFailed, err)
	}

	resp, err := c.api.Get(ctx, "/lyrics", url.Values{"song": {query}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLookupFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s (status %d)", shared.ErrLookupFailed, resp.ErrorMessage(), resp.StatusCode)
	}

	var song models.Song
	if err := json.Unmarshal(resp.Body, &song); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrLookupFailed, err)
	}
	if strings.TrimSpace(song.Lyrics) == "" {
		return nil, fmt.Errorf("%w: response has no lyrics", shared.ErrLookupFailed)
	}
	return &song, nil
}
