package sizer

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/lyricslide/internal/shared"
)

// charMeasurer gives every rune a width of size/2 and every line a height of
// size, wrapping at maxWidth on word boundaries.
type charMeasurer struct {
	calls atomic.Int32
}

func (m *charMeasurer) Measure(text string, size, maxWidth int) (int, int) {
	m.calls.Add(1)
	widest, lines := 0, 0
	for _, hard := range strings.Split(text, "\n") {
		lines++
		current := 0
		for i, word := range strings.Fields(hard) {
			w := len([]rune(word)) * size / 2
			if i > 0 && current+size/2+w > maxWidth {
				lines++
				widest = max(widest, current)
				current = w
				continue
			}
			if i > 0 {
				current += size / 2
			}
			current += w
		}
		widest = max(widest, current)
	}
	return widest, lines * size
}

func TestFit(t *testing.T) {
	s := New(&charMeasurer{})

	t.Run("short text gets the maximum", func(t *testing.T) {
		if got := s.Fit(Box{Width: 1280, Height: 640}, "Hi"); got != DefaultMax {
			t.Errorf("got %d, want %d", got, DefaultMax)
		}
	})

	t.Run("huge text gets the minimum", func(t *testing.T) {
		content := strings.Repeat("word ", 2000)
		if got := s.Fit(Box{Width: 300, Height: 100}, content); got != DefaultMin {
			t.Errorf("got %d, want %d", got, DefaultMin)
		}
	})

	t.Run("line breaks count toward height", func(t *testing.T) {
		box := Box{Width: 1000, Height: 200}
		one := s.Fit(box, "a")
		many := s.Fit(box, strings.Repeat("a<br/>", 9)+"a")
		if many >= one {
			t.Errorf("ten lines (%d) should need a smaller size than one (%d)", many, one)
		}
	})

	t.Run("monotonic and bounded", func(t *testing.T) {
		box := Box{Width: 600, Height: 300}
		prev := DefaultMax + 1
		content := ""
		for i := 0; i < 60; i++ {
			content += "lyric "
			got := s.Fit(box, content)
			if got < DefaultMin || got > DefaultMax {
				t.Fatalf("size %d out of bounds", got)
			}
			if got > prev {
				t.Fatalf("size grew from %d to %d at length %d", prev, got, len(content))
			}
			prev = got
		}
	})
}

func TestFontMeasurer(t *testing.T) {
	m, err := NewFontMeasurer(nil)
	if err != nil {
		t.Fatalf("failed to load Go Regular: %v", err)
	}
	defer m.Close()

	t.Run("wider text measures wider", func(t *testing.T) {
		w1, h1 := m.Measure("iii", 30, 2000)
		w2, h2 := m.Measure("WWW", 30, 2000)
		if w2 <= w1 {
			t.Errorf("WWW (%d) should be wider than iii (%d)", w2, w1)
		}
		if h1 != h2 || h1 <= 0 {
			t.Errorf("single-line heights should match: %d vs %d", h1, h2)
		}
	})

	t.Run("larger size measures larger", func(t *testing.T) {
		w1, h1 := m.Measure("Amazing grace", 20, 2000)
		w2, h2 := m.Measure("Amazing grace", 40, 2000)
		if w2 <= w1 || h2 <= h1 {
			t.Errorf("expected growth: %dx%d -> %dx%d", w1, h1, w2, h2)
		}
	})

	t.Run("wraps at width", func(t *testing.T) {
		_, oneLine := m.Measure("how sweet the sound", 30, 5000)
		w, wrapped := m.Measure("how sweet the sound", 30, 120)
		if wrapped <= oneLine {
			t.Errorf("narrow box should wrap: %d vs %d", wrapped, oneLine)
		}
		if w > 120 {
			t.Errorf("wrapped width %d exceeds box", w)
		}
	})

	t.Run("real metrics with sizer", func(t *testing.T) {
		s := New(m)
		box := Box{Width: 1280, Height: 640}
		short := s.Fit(box, "Amazing grace")
		long := s.Fit(box, strings.Repeat("Amazing grace how sweet the sound<br/>", 20))
		if short != DefaultMax {
			t.Errorf("short line should fit at max, got %d", short)
		}
		if long >= short {
			t.Errorf("long verse (%d) should shrink below %d", long, short)
		}
	})
}

func TestPlainText(t *testing.T) {
	got := PlainText("Line A<br/>Line <b>B</b> &amp; C<BR>D")
	if got != "Line A\nLine B & C\nD" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(shared.SizerConfig{MinSize: 10, MaxSize: 20, Step: 5}, &charMeasurer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Min != 10 || s.Max != 20 || s.Step != 5 {
		t.Errorf("unexpected sizer %+v", s)
	}

	if _, err := FromConfig(shared.SizerConfig{MinSize: 30, MaxSize: 20, Step: 2}, &charMeasurer{}); err == nil {
		t.Error("expected error for inverted bounds")
	}
}

func TestCache(t *testing.T) {
	m := &charMeasurer{}
	c := NewCache(New(m), 2)
	box := Box{Width: 800, Height: 400}

	first := c.Fit(box, "verse one")
	calls := m.calls.Load()
	if again := c.Fit(box, "verse one"); again != first {
		t.Errorf("cached size changed: %d vs %d", again, first)
	}
	if m.calls.Load() != calls {
		t.Error("cache hit should not re-measure")
	}

	c.Fit(Box{Width: 400, Height: 400}, "verse one")
	if m.calls.Load() == calls {
		t.Error("box change should re-measure")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}

	c.Fit(box, "verse two")
	c.Fit(box, "verse three")
	if len(c.entries) > 2 {
		t.Errorf("cache exceeded limit: %d entries", len(c.entries))
	}
}
