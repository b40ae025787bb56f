package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/sizer"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PresentView ViewState = iota
	OverviewView
)

// Screen mirrors the current slide somewhere else, typically a
// [display.Presenter].
type Screen interface {
	Show(deck models.Deck, cursor int) error
}

// Options configure a presenter [Model].
type Options struct {
	Title  string
	Screen Screen // optional second screen
	Logger *log.Logger
}

// Model is the in-terminal presenter: the current slide, a preview of the
// next one, speaker notes and a slide counter.
type Model struct {
	ctx      context.Context
	view     ViewState
	deck     models.Deck
	cursor   int
	title    string
	screen   Screen
	logger   *log.Logger
	width    int
	height   int
	overview list.Model
	help     help.Model
	keys     keyMap
	status   string
}

// NewModel creates a presenter positioned at cursor, clamped into range.
// An empty deck cannot be presented.
func NewModel(ctx context.Context, deck models.Deck, cursor int, opts Options) (*Model, error) {
	if err := deck.Presentable(); err != nil {
		return nil, err
	}
	cursor = max(0, min(cursor, deck.Len()-1))

	overview := list.New(slideItems(deck), list.NewDefaultDelegate(), 76, 20)
	overview.Title = "Slides"
	overview.Select(cursor)

	return &Model{
		ctx:      ctx,
		view:     PresentView,
		deck:     deck.Clone(),
		cursor:   cursor,
		title:    opts.Title,
		screen:   opts.Screen,
		logger:   opts.Logger,
		width:    80,
		height:   24,
		overview: overview,
		help:     help.New(),
		keys:     newKeyMap(),
	}, nil
}

// Cursor returns the slide currently shown.
func (m *Model) Cursor() int { return m.cursor }

// State returns the active view.
func (m *Model) State() ViewState { return m.view }

// Init pushes the starting slide to the second screen.
func (m *Model) Init() tea.Cmd {
	return m.show()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.overview.SetSize(msg.Width-4, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if m.view == OverviewView {
			return m.handleOverviewKeys(msg)
		}
		return m.handlePresentKeys(msg)

	case Msg:
		if msg.kind == MsgSlideShown {
			shown := msg.data.(slideShown)
			if shown.err != nil {
				m.status = fmt.Sprintf("display: %v", shown.err)
				if m.logger != nil {
					m.logger.Warn("second screen update failed", "slide", shown.cursor+1, "error", shown.err)
				}
			} else {
				m.status = ""
			}
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handlePresentKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		return m.goTo(m.deck.Next(m.cursor))
	case key.Matches(msg, m.keys.prev):
		return m.goTo(m.deck.Prev(m.cursor))
	case key.Matches(msg, m.keys.first):
		return m.goTo(0)
	case key.Matches(msg, m.keys.last):
		return m.goTo(m.deck.Len() - 1)
	case key.Matches(msg, m.keys.overview):
		m.view = OverviewView
		m.overview.Select(m.cursor)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleOverviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overview.FilterState() != list.Filtering {
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.overview):
			m.view = PresentView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			m.view = PresentView
			if item, ok := m.overview.SelectedItem().(slideItem); ok {
				return m.goTo(item.index)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.overview, cmd = m.overview.Update(msg)
	return m, cmd
}

func (m *Model) goTo(cursor int) (tea.Model, tea.Cmd) {
	if cursor == m.cursor {
		return m, nil
	}
	m.cursor = cursor
	return m, m.show()
}

// show mirrors the current slide; display failures are reported, not fatal.
func (m *Model) show() tea.Cmd {
	if m.screen == nil || m.ctx.Err() != nil {
		return nil
	}
	deck, cursor := m.deck, m.cursor
	return func() tea.Msg {
		return slideShownMsg(cursor, m.screen.Show(deck, cursor))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.view == OverviewView {
		return fmt.Sprintf("%s\n\n%s", m.overview.View(),
			m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back}))
	}
	return m.renderPresent()
}

func (m *Model) renderPresent() string {
	slide := m.deck.Slides[m.cursor]
	next := m.deck.Slides[m.deck.Next(m.cursor)]

	var b strings.Builder

	header := styles.title.Render(m.heading())
	counter := styles.help.Render(fmt.Sprintf("Slide %d of %d", m.cursor+1, m.deck.Len()))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header, "  ", counter))
	b.WriteString("\n\n")

	width := max(20, m.width-4)
	height := max(5, m.height/2)
	frame := slideStyle(
		swatch(slide.Background, m.deck.GlobalBackground),
		swatch(slide.FontColor, m.deck.GlobalFontColor),
		width, height,
	).Render(plain(slide.Content))
	b.WriteString(frame)
	b.WriteString("\n\n")

	meta := fmt.Sprintf("%dpt • %s", slide.FontSize, slide.Transition)
	b.WriteString(styles.help.Render(meta))
	b.WriteString("\n")

	if slide.Notes != "" {
		b.WriteString(styles.notes.Render(slide.Notes))
		b.WriteString("\n")
	}

	preview := "Next: " + firstLine(next.Content)
	if m.deck.Next(m.cursor) == 0 {
		preview = "Next: (back to start) " + firstLine(next.Content)
	}
	b.WriteString(styles.warn.Render(preview))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(styles.err.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) heading() string {
	if m.title != "" {
		return m.title
	}
	return "LyricSlide"
}

func plain(content string) string {
	text := strings.TrimSpace(sizer.PlainText(content))
	if text == "" {
		return " "
	}
	return text
}

func firstLine(content string) string {
	line, _, _ := strings.Cut(plain(content), "\n")
	return line
}
