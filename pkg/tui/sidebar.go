package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/mattn/go-runewidth"
)

type entryKind int

const (
	entryHeading entryKind = iota
	entryRow
	entryEmpty
	entryError
)

type entry struct {
	kind       entryKind
	text       string
	restaurant *models.Restaurant
}

// Sidebar is the restaurant list. It implements store.ListRenderer and
// keeps a cursor over the rows.
type Sidebar struct {
	entries []entry
	rows    []int // entry index of each row
	cursor  int
	offset  int
}

func NewSidebar() *Sidebar {
	return &Sidebar{}
}

func (s *Sidebar) Clear() {
	s.entries = nil
	s.rows = nil
	s.cursor = 0
	s.offset = 0
}

func (s *Sidebar) Heading(title string, count int) {
	s.entries = append(s.entries, entry{kind: entryHeading, text: fmt.Sprintf("%s (%d)", title, count)})
}

func (s *Sidebar) Row(r *models.Restaurant) {
	s.rows = append(s.rows, len(s.entries))
	s.entries = append(s.entries, entry{kind: entryRow, text: rowText(r), restaurant: r})
}

func (s *Sidebar) ShowEmpty(message string) {
	s.entries = append(s.entries, entry{kind: entryEmpty, text: message})
}

func (s *Sidebar) ShowError(message string) {
	s.entries = append(s.entries, entry{kind: entryError, text: message})
}

// Move shifts the cursor by delta rows, clamped to the list
func (s *Sidebar) Move(delta int) {
	if len(s.rows) == 0 {
		return
	}
	s.cursor = min(max(s.cursor+delta, 0), len(s.rows)-1)
}

// SelectID puts the cursor on the row for id
func (s *Sidebar) SelectID(id string) bool {
	for i, e := range s.rows {
		if s.entries[e].restaurant.ID == id {
			s.cursor = i
			return true
		}
	}
	return false
}

// Selected returns the restaurant under the cursor
func (s *Sidebar) Selected() (*models.Restaurant, bool) {
	if len(s.rows) == 0 {
		return nil, false
	}
	return s.entries[s.rows[s.cursor]].restaurant, true
}

// Lines returns the plain text of every entry, in order
func (s *Sidebar) Lines() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.text
	}
	return out
}

// Render draws at most height lines of at most width cells, scrolled so
// the cursor is visible.
func (s *Sidebar) Render(width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}

	selected := -1
	if len(s.rows) > 0 {
		selected = s.rows[s.cursor]
	}
	if selected >= 0 {
		if selected < s.offset {
			s.offset = selected
		}
		if selected >= s.offset+height {
			s.offset = selected - height + 1
		}
	}
	s.offset = max(0, min(s.offset, len(s.entries)-height))

	end := min(len(s.entries), s.offset+height)
	lines := make([]string, 0, end-s.offset)
	for i := s.offset; i < end; i++ {
		e := s.entries[i]
		text := runewidth.Truncate(e.text, width, "…")
		switch {
		case i == selected:
			text = selectedStyle.Render(runewidth.FillRight(text, width))
		case e.kind == entryHeading:
			text = subtitleStyle.Render(text)
		case e.kind == entryEmpty:
			text = dimStyle.Render(text)
		case e.kind == entryError:
			text = errorStyle.Render(text)
		case e.kind == entryRow:
			text = rowStyle(e.restaurant).Render(text)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func rowText(r *models.Restaurant) string {
	glyph := glyphs[mapview.StyleFor(r)]
	if r.IsRated() {
		return fmt.Sprintf("%s %s  %s", glyph, r.Name, mapview.FormatRating(*r.Rating))
	}
	return fmt.Sprintf("%s %s", glyph, r.Name)
}

func rowStyle(r *models.Restaurant) lipgloss.Style {
	return glyphStyles[mapview.StyleFor(r)].UnsetBold()
}
