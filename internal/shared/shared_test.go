package shared

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("slide exported", "count", 3)

		if !strings.Contains(buf.String(), "slide exported") {
			t.Errorf("expected message in output, got %q", buf.String())
		}
	})

	t.Run("WithLogger adds key-value pairs", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "deck", "amazing-grace")
		logger.Info("saved")

		if !strings.Contains(buf.String(), "deck=amazing-grace") {
			t.Errorf("expected deck key in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "presenter.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("hello")
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		tt := []struct {
			in   string
			want log.Level
		}{
			{"debug", log.DebugLevel},
			{"warn", log.WarnLevel},
			{"nonsense", log.InfoLevel},
			{"", log.InfoLevel},
		}
		for _, tc := range tt {
			if got := ParseLogLevel(tc.in); got != tc.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		}
	})
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected a valid uuid, got %q: %v", id, err)
	}
	if id == GenerateID() {
		t.Error("expected unique ids")
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]int{"fontSize": 30}

	compact, err := MarshalJSON(data, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(compact) != `{"fontSize":30}` {
		t.Errorf("unexpected compact output %s", compact)
	}

	pretty, err := MarshalJSON(data, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(pretty), "\n  \"fontSize\": 30") {
		t.Errorf("unexpected pretty output %s", pretty)
	}
}

func TestErrorsWrap(t *testing.T) {
	err := fmt.Errorf("%w: deck.xyz", ErrUnsupportedFormat)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Error("expected wrapped error to match sentinel")
	}
	if errors.Is(err, ErrNoSlidesFound) {
		t.Error("expected wrapped error not to match another sentinel")
	}
}

func TestBrowserURL(t *testing.T) {
	t.Run("passes through web URLs", func(t *testing.T) {
		got, err := browserURL("http://127.0.0.1:5000/display")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "http://127.0.0.1:5000/display" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("turns paths into file URLs", func(t *testing.T) {
		got, err := browserURL("exports/deck.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, "exports/deck.html") {
			t.Errorf("unexpected file URL %s", got)
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		if err := OpenInBrowser("https://example.com"); err == nil {
			t.Error("expected error on unsupported platform")
		}
	})
}
