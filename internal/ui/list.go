package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/sizer"
)

var _ list.Item = slideItem{}

// slideItem wraps [models.Slide] to implement [list.Item] in the overview.
type slideItem struct {
	index int
	slide models.Slide
}

func (i slideItem) text() string {
	return strings.TrimSpace(sizer.PlainText(i.slide.Content))
}

func (i slideItem) FilterValue() string { return i.text() }

func (i slideItem) Title() string {
	first, _, _ := strings.Cut(i.text(), "\n")
	if first == "" {
		first = "(empty)"
	}
	return fmt.Sprintf("%d. %s", i.index+1, first)
}

func (i slideItem) Description() string {
	desc := fmt.Sprintf("%dpt • %s", i.slide.FontSize, i.slide.Transition)
	if i.slide.Notes != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.slide.Notes)
	}
	return desc
}

func slideItems(deck models.Deck) []list.Item {
	items := make([]list.Item, deck.Len())
	for i, s := range deck.Slides {
		items[i] = slideItem{index: i, slide: s}
	}
	return items
}
