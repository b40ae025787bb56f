package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"
)

const geniusBaseURL = "https://api.genius.com"

// GeniusSearchResponse is the subset of GET /search the service reads.
type GeniusSearchResponse struct {
	Response struct {
		Hits []GeniusHit `json:"hits"`
	} `json:"response"`
}

// GeniusHit is one search result.
type GeniusHit struct {
	Type   string     `json:"type"`
	Result GeniusSong `json:"result"`
}

// GeniusSong describes a song in search results.
type GeniusSong struct {
	ID                    int    `json:"id"`
	Title                 string `json:"title"`
	URL                   string `json:"url"`
	ReleaseDateForDisplay string `json:"release_date_for_display"`
	PrimaryArtist         struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
	Album *struct {
		Name string `json:"name"`
	} `json:"album"`
}

// GeniusService finds songs through the Genius API and scrapes their lyrics.
type GeniusService struct {
	apiURL     string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// GeniusOption configures a [GeniusService].
type GeniusOption func(*GeniusService)

// WithGeniusURL points the service at another API root.
func WithGeniusURL(apiURL string) GeniusOption {
	return func(s *GeniusService) {
		if apiURL != "" {
			s.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) GeniusOption {
	return func(s *GeniusService) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithRateLimit caps upstream requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) GeniusOption {
	return func(s *GeniusService) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) GeniusOption {
	return func(s *GeniusService) { s.logger = logger }
}

// NewGeniusService creates a service authenticated with token.
func NewGeniusService(token string, opts ...GeniusOption) *GeniusService {
	s := &GeniusService{
		apiURL:     geniusBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewGeniusServiceFromConfig builds the service from the [lyrics] config section.
func NewGeniusServiceFromConfig(cfg shared.LyricsConfig, logger *log.Logger) *GeniusService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewGeniusService(cfg.GeniusToken,
		WithGeniusURL(cfg.GeniusAPIURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithRateLimit(cfg.RequestsPerSecond),
		WithLogger(logger),
	)
}

// Name implements [Service].
func (s *GeniusService) Name() string { return "Genius" }

// Lookup searches for query, takes the first hit and scrapes its lyrics.
func (s *GeniusService) Lookup(ctx context.Context, query string) (*models.Song, error) {
	query, err := requireQuery(query)
	if err != nil {
		return nil, err
	}

	hit, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	lyrics, err := s.scrape(ctx, hit.URL)
	if err != nil {
		return nil, err
	}

	song := &models.Song{
		Title:       hit.Title,
		Artist:      hit.PrimaryArtist.Name,
		ReleaseDate: orUnknown(hit.ReleaseDateForDisplay),
		Lyrics:      lyrics,
	}
	if hit.Album != nil {
		song.Album = hit.Album.Name
	}
	song.Album = orUnknown(song.Album)

	if s.logger != nil {
		s.logger.Debug("lyrics found", "query", query, "title", song.Title, "artist", song.Artist)
	}
	return song, nil
}

// Search returns the first song hit for query.
func (s *GeniusService) Search(ctx context.Context, query string) (*GeniusSong, error) {
	resp, err := s.get(ctx, s.apiURL+"/search?"+url.Values{"q": {query}}.Encode(), true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result GeniusSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode search response: %v", shared.ErrAPIRequest, err)
	}

	i := slices.IndexFunc(result.Response.Hits, func(h GeniusHit) bool { return h.Type == "" || h.Type == "song" })
	if i < 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
	}
	return &result.Response.Hits[i].Result, nil
}

func (s *GeniusService) scrape(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", ErrNoLyrics
	}

	resp, err := s.get(ctx, pageURL, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	lyrics, err := ExtractLyrics(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", err
	}
	return lyrics, nil
}

func (s *GeniusService) get(ctx context.Context, target string, auth bool) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("User-Agent", "lyricslide/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: genius status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return resp, nil
}

// lyricsMatchers are tried in order; the first that matches anything wins.
var lyricsMatchers = []func(*html.Node) bool{
	func(n *html.Node) bool { return attrValue(n, "data-lyrics-container") == "true" },
	func(n *html.Node) bool { return slices.Contains(strings.Fields(attrValue(n, "class")), "lyrics") },
	func(n *html.Node) bool {
		return slices.ContainsFunc(strings.Fields(attrValue(n, "class")), func(c string) bool {
			return strings.HasPrefix(c, "Lyrics__Container")
		})
	},
}

// ExtractLyrics pulls the lyrics text out of a song page. Line breaks are
// kept and containers are separated by a blank line.
func ExtractLyrics(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoLyrics, err)
	}

	for _, match := range lyricsMatchers {
		var parts []string
		for _, n := range findAll(doc, match) {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n"), nil
		}
	}
	return "", ErrNoLyrics
}

func attrValue(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findAll returns the outermost nodes matching match in document order.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			found = append(found, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// nodeText flattens n to text with <br> as a newline. Scripts, styles and
// elements Genius excludes from selection are skipped.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				b.WriteByte('\n')
				return
			case atom.Script, atom.Style:
				return
			}
			if attrValue(n, "data-exclude-from-selection") == "true" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
