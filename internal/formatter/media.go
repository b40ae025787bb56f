package formatter

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/h2non/filetype"
)

// maxMediaSize bounds downloaded or decoded media.
const maxMediaSize = 64 << 20

// MediaFetcher loads media referenced by URL.
type MediaFetcher func(ctx context.Context, url string) ([]byte, error)

// HTTPFetcher downloads media with client, or a 30 second default client.
func HTTPFetcher(client *http.Client) MediaFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, rawURL string) ([]byte, error) {
		if rawURL == "" {
			return nil, fmt.Errorf("empty URL provided")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create media request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download media: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download media: status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read media data: %w", err)
		}
		if len(data) > maxMediaSize {
			return nil, fmt.Errorf("media exceeds %d bytes", maxMediaSize)
		}
		return data, nil
	}
}

// mediaBlob is decoded media ready to embed in a package.
type mediaBlob struct {
	Data []byte
	Ext  string
	MIME string
}

// decodeDataURI parses data:[<mime>][;base64],<payload>.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}

	mime := "text/plain"
	params := strings.Split(meta, ";")
	if params[0] != "" {
		mime = params[0]
	}

	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", fmt.Errorf("invalid base64 payload: %w", err)
			}
		}
		return data, mime, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid data URI payload: %w", err)
	}
	return []byte(decoded), mime, nil
}

// loadMedia resolves src to bytes and sniffs the real type from content.
func loadMedia(ctx context.Context, src string, fetch MediaFetcher) (*mediaBlob, error) {
	var (
		data     []byte
		declared string
		err      error
	)
	if isDataURI(src) {
		data, declared, err = decodeDataURI(src)
	} else {
		if fetch == nil {
			return nil, fmt.Errorf("no fetcher for remote media %q", src)
		}
		data, err = fetch(ctx, src)
	}
	if err != nil {
		return nil, err
	}
	if len(data) > maxMediaSize {
		return nil, fmt.Errorf("media exceeds %d bytes", maxMediaSize)
	}

	kind, _ := filetype.Match(data)
	if kind != filetype.Unknown {
		return &mediaBlob{Data: data, Ext: kind.Extension, MIME: kind.MIME.Value}, nil
	}
	if ext := extForMIME(declared); ext != "" {
		return &mediaBlob{Data: data, Ext: ext, MIME: declared}, nil
	}
	return nil, fmt.Errorf("unrecognised media type")
}

func extForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/svg+xml":
		return "svg"
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	}
	return ""
}

// isVideo reports whether blob holds video according to its sniffed type.
func (b *mediaBlob) isVideo() bool {
	return filetype.IsVideo(b.Data) || strings.HasPrefix(b.MIME, "video/")
}

// posterFrame is a 1x1 transparent PNG used as the still image for embedded
// video, which DrawingML requires.
func posterFrame() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{})

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
