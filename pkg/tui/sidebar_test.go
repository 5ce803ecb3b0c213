package tui

import (
	"strings"
	"testing"

	"github.com/kass/restaurant-map/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidebarEntries(t *testing.T) {
	s := NewSidebar()
	s.Heading("Rated", 1)
	s.Row(&models.Restaurant{ID: "a", Name: "Pizza Place", Visited: true, Rating: models.Float(8.5)})
	s.Heading("To Visit", 1)
	s.Row(&models.Restaurant{ID: "b", Name: "Noodle Bar"})

	assert.Equal(t, []string{
		"Rated (1)",
		"★ Pizza Place  8.5",
		"To Visit (1)",
		"○ Noodle Bar",
	}, s.Lines())

	s.Clear()
	assert.Empty(t, s.Lines())
	_, ok := s.Selected()
	assert.False(t, ok)

	s.ShowError("Could not load restaurants: boom")
	assert.Equal(t, []string{"Could not load restaurants: boom"}, s.Lines())
}

func TestSidebarCursor(t *testing.T) {
	s := NewSidebar()
	s.Move(1)

	s.Heading("To Visit", 3)
	for _, id := range []string{"a", "b", "c"} {
		s.Row(&models.Restaurant{ID: id, Name: strings.ToUpper(id)})
	}

	r, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", r.ID)

	s.Move(5)
	r, _ = s.Selected()
	assert.Equal(t, "c", r.ID)

	s.Move(-10)
	r, _ = s.Selected()
	assert.Equal(t, "a", r.ID)

	assert.True(t, s.SelectID("b"))
	r, _ = s.Selected()
	assert.Equal(t, "b", r.ID)
	assert.False(t, s.SelectID("zzz"))
}

func TestSidebarRenderScrolls(t *testing.T) {
	s := NewSidebar()
	s.Heading("To Visit", 10)
	for i := 0; i < 10; i++ {
		s.Row(&models.Restaurant{ID: string(rune('a' + i)), Name: "Restaurant " + string(rune('A'+i))})
	}

	out := s.Render(30, 4)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "To Visit (10)")

	s.Move(9)
	out = s.Render(30, 4)
	assert.Contains(t, out, "Restaurant J")
	assert.NotContains(t, out, "To Visit")

	assert.Empty(t, s.Render(30, 0))
}

func TestSidebarTruncates(t *testing.T) {
	s := NewSidebar()
	s.ShowEmpty("No restaurants match the current filters.")

	out := s.Render(10, 5)
	assert.Equal(t, "No restau…", out)
}
