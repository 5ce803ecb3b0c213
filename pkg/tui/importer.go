package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kass/restaurant-map/pkg/models"
)

// Importer writes restaurants to a store, reporting progress as it goes
type Importer interface {
	BulkInsertRestaurants(ctx context.Context, restaurants []*models.Restaurant, progress func(done, total int)) error
}

type progressMsg struct {
	done, total int
}

type importDoneMsg struct {
	err      error
	duration time.Duration
}

type importModel struct {
	progress progress.Model
	done     int
	total    int
	finished bool
	err      error
	duration time.Duration
	width    int
}

func newImportModel(total int) importModel {
	return importModel{
		progress: progress.New(progress.WithDefaultGradient()),
		total:    total,
		width:    80,
	}
}

func (m importModel) Init() tea.Cmd {
	return nil
}

func (m importModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-10, 10)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		m.done, m.total = msg.done, msg.total
		return m, m.progress.SetPercent(m.percent())

	case importDoneMsg:
		m.finished = true
		m.err = msg.err
		m.duration = msg.duration
		return m, tea.Quit
	}
	return m, nil
}

func (m importModel) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

func (m importModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Importing Restaurants"))
	b.WriteString("\n\n")

	switch {
	case m.finished && m.err != nil:
		b.WriteString(errorStyle.Render("✗ Import failed: " + m.err.Error()))
	case m.finished:
		b.WriteString(successStyle.Render(fmt.Sprintf("✓ Imported %d restaurants in %v", m.total, m.duration.Round(time.Millisecond))))
	default:
		b.WriteString(m.progress.ViewAs(m.percent()))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d / %d", m.done, m.total)))
	}
	b.WriteString("\n")
	return b.String()
}

// RunImport inserts restaurants through importer behind a progress bar
func RunImport(ctx context.Context, importer Importer, restaurants []*models.Restaurant) error {
	p := tea.NewProgram(newImportModel(len(restaurants)), tea.WithContext(ctx))

	go func() {
		start := time.Now()
		err := importer.BulkInsertRestaurants(ctx, restaurants, func(done, total int) {
			p.Send(progressMsg{done: done, total: total})
		})
		p.Send(importDoneMsg{err: err, duration: time.Since(start)})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(importModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
