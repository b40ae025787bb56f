package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	th "github.com/desertthunder/lyricslide/internal/testing"
)

const songPage = `<!DOCTYPE html>
<html><head><title>Amazing Grace Lyrics</title><script>var x = "[Verse]";</script></head>
<body>
  <div class="header">Amazing Grace</div>
  <div data-lyrics-container="true" class="Lyrics__Container-sc-1ynbvzw-6">[Verse 1]<br/>Amazing grace, how <a href="/a">sweet</a> the sound<br>That saved a wretch like me
    <div data-exclude-from-selection="true">Advertisement</div>
  </div>
  <div data-lyrics-container="true">[Verse 2]<br/>I once was lost</div>
</body></html>`

func geniusServer(t *testing.T, hits string, page string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"response":{"hits":[%s]}}`, strings.ReplaceAll(hits, "{{URL}}", srv.URL))
		case "/songs/amazing-grace":
			if r.Header.Get("Authorization") != "" {
				t.Error("expected no token on the song page request")
			}
			w.Write([]byte(page))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

const amazingHit = `{"type":"song","result":{"id":1,"title":"Amazing Grace","url":"{{URL}}/songs/amazing-grace","release_date_for_display":"","primary_artist":{"name":"John Newton"},"album":null}}`

func TestGeniusService(t *testing.T) {
	ctx := context.Background()

	t.Run("Lookup", func(t *testing.T) {
		srv := geniusServer(t, amazingHit, songPage)
		svc := NewGeniusService("secret", WithGeniusURL(srv.URL), WithRateLimit(0))

		song, err := svc.Lookup(ctx, "amazing grace")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if song.Title != "Amazing Grace" || song.Artist != "John Newton" {
			t.Errorf("unexpected song %+v", song)
		}
		if song.Album != "Unknown" || song.ReleaseDate != "Unknown" {
			t.Errorf("expected Unknown album and date, got %q, %q", song.Album, song.ReleaseDate)
		}

		want := "[Verse 1]\nAmazing grace, how sweet the sound\nThat saved a wretch like me\n\n[Verse 2]\nI once was lost"
		if song.Lyrics != want {
			t.Errorf("unexpected lyrics:\n%q\nwant:\n%q", song.Lyrics, want)
		}
	})

	t.Run("no hits", func(t *testing.T) {
		srv := geniusServer(t, "", songPage)
		svc := NewGeniusService("secret", WithGeniusURL(srv.URL), WithRateLimit(0))

		if _, err := svc.Lookup(ctx, "nothing"); !errors.Is(err, ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
	})

	t.Run("page without lyrics", func(t *testing.T) {
		srv := geniusServer(t, amazingHit, "<html><body><p>nothing here</p></body></html>")
		svc := NewGeniusService("secret", WithGeniusURL(srv.URL), WithRateLimit(0))

		if _, err := svc.Lookup(ctx, "amazing grace"); !errors.Is(err, ErrNoLyrics) {
			t.Errorf("expected ErrNoLyrics, got %v", err)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		srv := geniusServer(t, amazingHit, songPage)
		svc := NewGeniusService("wrong", WithGeniusURL(srv.URL), WithRateLimit(0))

		if _, err := svc.Lookup(ctx, "amazing grace"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		svc := NewGeniusService("secret")
		if _, err := svc.Lookup(ctx, "  "); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("rate limit honours context", func(t *testing.T) {
		srv := geniusServer(t, amazingHit, songPage)
		svc := NewGeniusService("secret", WithGeniusURL(srv.URL), WithRateLimit(0.001))

		short, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		// The search spends the only token; the page request cannot get
		// another before the deadline.
		if _, err := svc.Lookup(short, "amazing grace"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest from the limiter, got %v", err)
		}
	})

	t.Run("FromConfig", func(t *testing.T) {
		cfg := shared.DefaultConfig().Lyrics
		cfg.GeniusAPIURL = "http://genius.test/"
		svc := NewGeniusServiceFromConfig(cfg, nil)

		if svc.apiURL != "http://genius.test" {
			t.Errorf("unexpected api url %s", svc.apiURL)
		}
		if svc.httpClient.Timeout != 15*time.Second {
			t.Errorf("unexpected timeout %s", svc.httpClient.Timeout)
		}
		if svc.Name() != "Genius" {
			t.Errorf("unexpected name %s", svc.Name())
		}
	})
}

func TestExtractLyrics(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "legacy lyrics class",
			page: `<div class="song lyrics"><p>Line one<br>Line two</p></div>`,
			want: "Line one\nLine two",
		},
		{
			name: "generated container class",
			page: `<div class="Lyrics__Container-sc-1ynbvzw-6 abc">Only<br/>this</div>`,
			want: "Only\nthis",
		},
		{
			name: "attribute beats class",
			page: `<div class="lyrics">old</div><div data-lyrics-container="true">new</div>`,
			want: "new",
		},
		{
			name: "entities are decoded",
			page: `<div data-lyrics-container="true">Rock &amp; roll</div>`,
			want: "Rock & roll",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractLyrics(strings.NewReader(tt.page))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("nothing to extract", func(t *testing.T) {
		if _, err := ExtractLyrics(strings.NewReader(`<div data-lyrics-container="true">   </div>`)); !errors.Is(err, ErrNoLyrics) {
			t.Errorf("expected ErrNoLyrics, got %v", err)
		}
	})
}

type memoryCache struct {
	songs   map[string]*models.Song
	failGet bool
}

func (c *memoryCache) Get(ctx context.Context, query string) (*models.Song, bool, error) {
	if c.failGet {
		return nil, false, errors.New("disk on fire")
	}
	s, ok := c.songs[query]
	return s, ok, nil
}

func (c *memoryCache) Put(ctx context.Context, query string, song *models.Song) error {
	c.songs[query] = song
	return nil
}

func TestCachedService(t *testing.T) {
	ctx := context.Background()
	source := th.NewMockLyricsSource(models.Song{Title: "Amazing Grace", Lyrics: "Amazing grace"})

	t.Run("second lookup hits the cache", func(t *testing.T) {
		cache := &memoryCache{songs: map[string]*models.Song{}}
		svc := NewCachedService(&mockService{source}, cache, nil)

		for range 2 {
			if _, err := svc.Lookup(ctx, "amazing grace"); err != nil {
				t.Fatal(err)
			}
		}
		if len(source.Calls) != 1 {
			t.Errorf("expected 1 upstream call, got %d", len(source.Calls))
		}
		if svc.Name() != "mock" {
			t.Errorf("unexpected name %s", svc.Name())
		}
	})

	t.Run("cache failure falls through", func(t *testing.T) {
		cache := &memoryCache{songs: map[string]*models.Song{}, failGet: true}
		svc := NewCachedService(&mockService{source}, cache, nil)

		if _, err := svc.Lookup(ctx, "amazing grace"); err != nil {
			t.Errorf("expected lookup to succeed, got %v", err)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		cache := &memoryCache{songs: map[string]*models.Song{}}
		svc := NewCachedService(&mockService{source}, cache, nil)

		if _, err := svc.Lookup(ctx, "unknown"); err == nil {
			t.Error("expected error")
		}
		if len(cache.songs) != 0 {
			t.Error("expected nothing cached")
		}
	})
}

type mockService struct {
	*th.MockLyricsSource
}

func (m *mockService) Name() string { return "mock" }
