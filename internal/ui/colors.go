package ui

import (
	"regexp"

	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

var hexColor = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)

// Palette is a small stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	notes lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		notes: NewStyle(w).BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).PaddingLeft(1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// swatch picks a terminal color for a CSS background: the color itself for
// solid fills, the first stop for gradients, and fallback for image
// backgrounds.
func swatch(css, fallback string) lipgloss.Color {
	if c := hexColor.FindString(css); c != "" {
		return lipgloss.Color(c)
	}
	if c := hexColor.FindString(fallback); c != "" {
		return lipgloss.Color(c)
	}
	return lipgloss.Color("#000000")
}

// slideStyle frames slide content in the slide's own colors.
func slideStyle(bg, fg lipgloss.Color, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(bg).
		Foreground(fg).
		Bold(true).
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Padding(1, 2)
}
