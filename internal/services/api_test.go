package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	th "github.com/desertthunder/lyricslide/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != "http://127.0.0.1:5000" {
				t.Errorf("expected default baseURL, got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/test" || r.URL.Query().Get("q") != "a b" {
					t.Errorf("unexpected request %s", r.URL)
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/test", url.Values{"q": {"a b"}})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK || !resp.IsJSON {
				t.Errorf("expected JSON 200, got %d (json=%v)", resp.StatusCode, resp.IsJSON)
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream exploded"))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/", nil)
			if err != nil {
				t.Fatal(err)
			}
			if resp.IsJSON {
				t.Error("expected non-JSON response")
			}
			if resp.ErrorMessage() != "upstream exploded" {
				t.Errorf("unexpected message %q", resp.ErrorMessage())
			}
		})

		t.Run("Transport Error", func(t *testing.T) {
			client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("connection refused"))}
			if _, err := NewAPIService("http://example.com", client).Get(context.Background(), "/", nil); err == nil {
				t.Error("expected error")
			}
		})
	})
}

func TestLyricsClient(t *testing.T) {
	song := models.Song{Title: "Amazing Grace", Artist: "John Newton", Album: "Unknown", ReleaseDate: "1779", Lyrics: "Amazing grace"}

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/lyrics" {
				t.Errorf("expected /lyrics, got %s", r.URL.Path)
			}
			if r.URL.Query().Get("song") != "amazing grace" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(song)
		}))
		defer server.Close()

		got, err := NewLyricsClient(server.URL, nil).Lookup(context.Background(), "  amazing grace ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if *got != song {
			t.Errorf("expected %+v, got %+v", song, *got)
		}
	})

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"No song query provided"}`},
		{"not found", http.StatusNotFound, `{"error":"No results found"}`},
		{"server error", http.StatusInternalServerError, `{"error":"An error occurred while fetching lyrics"}`},
		{"malformed body", http.StatusOK, `{"title":`},
		{"no lyrics", http.StatusOK, `{"title":"x","lyrics":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &http.Client{Transport: th.NewMockRoundTripper(th.JSONResponse(tt.status, tt.body), nil)}
			_, err := NewLyricsClient("http://lyrics.test", client).Lookup(context.Background(), "song")
			if !errors.Is(err, shared.ErrLookupFailed) {
				t.Errorf("expected ErrLookupFailed, got %v", err)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("dial tcp: refused"))}
		_, err := NewLyricsClient("http://lyrics.test", client).Lookup(context.Background(), "song")
		if !errors.Is(err, shared.ErrLookupFailed) {
			t.Errorf("expected ErrLookupFailed, got %v", err)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := NewLyricsClient("http://lyrics.test", nil).Lookup(context.Background(), "")
		if !errors.Is(err, shared.ErrLookupFailed) || !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrLookupFailed and ErrInvalidInput, got %v", err)
		}
	})
}
