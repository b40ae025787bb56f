// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/lyricslide/internal/models"
)

// SampleDeck returns a deck with one slide per content string, styled with
// the deck defaults.
func SampleDeck(contents ...string) models.Deck {
	d := models.NewDeck()
	for _, c := range contents {
		d.Slides = append(d.Slides, d.NewSlide(c))
	}
	return d
}

// StyledDeck returns a three-slide deck exercising gradients, solid colors,
// media and notes.
func StyledDeck() models.Deck {
	d := SampleDeck("Amazing grace<br/>How sweet the sound", "That saved a wretch<br/>like me", "I once was lost")
	d.Slides[1].Background = "#121212"
	d.Slides[1].FontColor = "#FFD700"
	d.Slides[1].FontSize = 36
	d.Slides[1].Transition = models.TransitionZoom
	d.Slides[2].Background = "linear-gradient(45deg, #F56217, #FF8C42, #FFA36C)"
	d.Slides[2].FontColor = "#000000"
	d.Slides[2].FontSize = 24
	d.Slides[2].Notes = "Hold the last line"
	return d
}

// MockLyricsSource is a test double for the lyrics lookup contract.
type MockLyricsSource struct {
	mu    sync.Mutex
	Songs map[string]models.Song
	Err   error
	Calls []string
}

func NewMockLyricsSource(songs ...models.Song) *MockLyricsSource {
	m := &MockLyricsSource{Songs: make(map[string]models.Song)}
	for _, s := range songs {
		m.Songs[strings.ToLower(s.Title)] = s
	}
	return m
}

func (m *MockLyricsSource) Lookup(ctx context.Context, query string) (*models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, query)
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	song, ok := m.Songs[strings.ToLower(query)]
	if !ok {
		return nil, fmt.Errorf("no lyrics for %q", query)
	}
	return &song, nil
}

// MockDisplay records every frame written while open.
type MockDisplay struct {
	mu      sync.Mutex
	open    bool
	OpenErr error
	Frames  []string
}

func (d *MockDisplay) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return d.OpenErr
	}
	d.open = true
	return nil
}

func (d *MockDisplay) Write(html string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		d.Frames = append(d.Frames, html)
	}
	return nil
}

func (d *MockDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

func (d *MockDisplay) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// FrameCount returns the number of recorded frames.
func (d *MockDisplay) FrameCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Frames)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// JSONResponse builds an *http.Response with a JSON body for MockRoundTripper.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
