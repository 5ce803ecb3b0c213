// Package tui is the interactive terminal front end: a character map
// canvas beside the restaurant list, with search and rating filters.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/store"
)

const (
	minSidebarWidth = 28
	footerLines     = 3
)

// Options configure the terminal front end
type Options struct {
	Map          mapview.Options
	Policy       store.FloorPolicy
	RatingFloors []float64
	// Pick enables the click-to-pick location fields
	Pick bool
}

type datasetLoadedMsg struct {
	restaurants []*models.Restaurant
	err         error
}

// Model is the bubbletea model for the map screen
type Model struct {
	ctx    context.Context
	loader store.Loader

	canvas    *Canvas
	sidebar   *Sidebar
	scheduler *Scheduler
	inputs    *PickInputs
	mapView   *mapview.MapView
	store     *store.RestaurantStore

	spinner   spinner.Model
	search    textinput.Model
	searching bool
	floors    []float64
	floorIdx  int // 0 is no floor

	loading    bool
	waiting    bool
	status     string
	width      int
	height     int
	sidebarW   int
	mapOriginX int
	mapOriginY int
}

// New builds the screen and creates the map. A map that cannot be
// created is fatal.
func New(ctx context.Context, loader store.Loader, opts Options) (*Model, error) {
	m := &Model{
		ctx:       ctx,
		loader:    loader,
		canvas:    NewCanvas(80, 20),
		sidebar:   NewSidebar(),
		scheduler: &Scheduler{},
		floors:    opts.RatingFloors,
		loading:   true,
		width:     120,
		height:    30,
	}

	mapOpts := opts.Map
	mapOpts.Scheduler = m.scheduler
	if opts.Pick {
		m.inputs = NewPickInputs()
		mapOpts.Inputs = m.inputs
	}

	m.mapView = mapview.New(m.canvas, mapOpts)
	if err := m.mapView.Initialize(); err != nil {
		return nil, err
	}
	m.store = store.New(loader, m.mapView, m.sidebar, opts.Policy)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))
	m.spinner = s

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search names"
	search.CharLimit = 64
	m.search = search

	m.layout()
	m.canvas.InvalidateSize()
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadDataset(m.ctx, m.loader))
}

func loadDataset(ctx context.Context, loader store.Loader) tea.Cmd {
	return func() tea.Msg {
		restaurants, err := loader.Load(ctx)
		return datasetLoadedMsg{restaurants: restaurants, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if m.scheduler.Pending() > 0 && !m.waiting {
		m.waiting = true
		cmd = tea.Batch(cmd, waitForLayout())
	}
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.mapView.HandleResize()
		return nil

	case layoutSettledMsg:
		m.waiting = false
		m.scheduler.Flush()
		return nil

	case datasetLoadedMsg:
		m.loading = false
		if err := m.store.LoadResult(msg.restaurants, msg.err); err != nil {
			m.status = errorStyle.Render("Load failed")
			return nil
		}
		m.status = successStyle.Render(fmt.Sprintf("Loaded %d restaurants", len(msg.restaurants)))
		return nil

	case spinner.TickMsg:
		if !m.loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.MouseMsg:
		m.handleMouse(msg)
		return nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	}
	if m.ready() {
		if cmd, ok := m.handleListKey(msg); ok {
			return cmd
		}
	}

	switch msg.String() {
	case "+", "=":
		m.canvas.ZoomBy(1)
	case "-":
		m.canvas.ZoomBy(-1)
	case "left", "H":
		m.canvas.Pan(-4, 0)
	case "right", "L":
		m.canvas.Pan(4, 0)
	case "K":
		m.canvas.Pan(0, -2)
	case "J":
		m.canvas.Pan(0, 2)
	}
	return nil
}

// handleListKey runs the filter and selection keys. They need a dataset.
func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "/":
		m.searching = true
		return m.search.Focus(), true
	case "r":
		m.floorIdx = (m.floorIdx + 1) % (len(m.floors) + 1)
		m.applyFilter()
	case "a":
		m.floorIdx = 0
		m.search.SetValue("")
		m.store.ShowAll()
	case "up", "k":
		m.sidebar.Move(-1)
	case "down", "j":
		m.sidebar.Move(1)
	case "enter":
		if r, ok := m.sidebar.Selected(); ok {
			m.focus(r.ID)
		}
	default:
		return nil, false
	}
	return nil, true
}

// ready reports whether a dataset is installed. Until then, and after a
// failed load, the list controls are inert.
func (m *Model) ready() bool {
	return !m.loading && m.store.Loaded()
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "enter":
		m.searching = false
		m.search.Blur()
		return nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.applyFilter()
		return nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.applyFilter()
	}
	return cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	col, row := msg.X-m.mapOriginX, msg.Y-m.mapOriginY
	if !m.canvas.Contains(col, row) {
		return
	}

	loc := m.canvas.Unproject(col, row)
	// a row is two cells wide on the ground
	if id, ok := m.mapView.MarkerNear(loc.Lat, loc.Lon, 2*m.canvas.CellKm()); ok {
		m.focus(id)
		return
	}
	m.canvas.Click(col, row)
}

func (m *Model) focus(id string) {
	if err := m.store.Select(id); err != nil {
		m.status = errorStyle.Render(err.Error())
		return
	}
	m.sidebar.SelectID(id)
}

func (m *Model) applyFilter() {
	m.store.ApplyFilter(m.criteria())
}

func (m *Model) criteria() store.FilterCriteria {
	c := store.FilterCriteria{Search: m.search.Value()}
	if m.floorIdx > 0 {
		floor := m.floors[m.floorIdx-1]
		c.MinRating = &floor
	}
	return c
}

// layout sizes the panes from the window. The canvas container changes
// here but the canvas only adopts it on InvalidateSize.
func (m *Model) layout() {
	m.sidebarW = max(minSidebarWidth, m.width/3)
	bodyH := max(m.height-1-footerLines, 3)
	paneH := bodyH - 2
	mapW := max(m.width-m.sidebarW-4, 1)

	m.canvas.SetContainerSize(mapW, paneH)
	m.search.Width = max(m.sidebarW-4, 1)

	// title line, then the map pane border
	m.mapOriginX = m.sidebarW + 2 + 1
	m.mapOriginY = 1 + 1
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Restaurant Map"))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(m.filterSummary()))
	b.WriteString("\n")

	paneH := m.canvas.containerH
	var list string
	if m.loading {
		list = m.spinner.View() + " Loading restaurants..."
	} else {
		listH := paneH
		if m.searching || m.search.Value() != "" {
			listH--
		}
		list = m.sidebar.Render(m.sidebarW, listH)
		if m.searching || m.search.Value() != "" {
			list = m.search.View() + "\n" + list
		}
	}

	sidebar := paneStyle.Width(m.sidebarW).Height(paneH).Render(list)
	mapPane := activePaneStyle.Width(m.canvas.containerW).Height(paneH).Render(m.canvas.Render())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sidebar, mapPane))
	b.WriteString("\n")

	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) filterSummary() string {
	parts := []string{m.store.Policy().String()}
	if m.floorIdx > 0 {
		parts = append(parts, "rating >= "+mapview.FormatRating(m.floors[m.floorIdx-1]))
	}
	if q := m.search.Value(); q != "" {
		parts = append(parts, fmt.Sprintf("search %q", q))
	}
	return strings.Join(parts, " | ")
}

func (m *Model) footer() string {
	var lines []string

	if popup, ok := m.canvas.Popup(); ok {
		lines = append(lines, infoStyle.Render(strings.ReplaceAll(popup, "\n", " | ")))
	} else {
		lines = append(lines, "")
	}

	status := fmt.Sprintf("zoom %d  ", m.canvas.Zoom())
	if ids, err := m.mapView.MarkersIn(m.canvas.Visible()); err == nil {
		status += statStyle.Render(fmt.Sprintf("%d of %d markers in view", len(ids), m.mapView.MarkerCount()))
	}
	if m.inputs != nil {
		status += "  " + m.inputs.View()
	}
	if m.status != "" {
		status += "  " + m.status
	}
	lines = append(lines, status)

	lines = append(lines, dimStyle.Render("/ search  r rating  a show all  j/k move  enter focus  +/- zoom  arrows pan  q quit"))
	return strings.Join(lines, "\n")
}

// Store exposes the restaurant store driving the screen
func (m *Model) Store() *store.RestaurantStore { return m.store }

// MapView exposes the map view
func (m *Model) MapView() *mapview.MapView { return m.mapView }

// Canvas exposes the map canvas
func (m *Model) Canvas() *Canvas { return m.canvas }

// Sidebar exposes the list
func (m *Model) Sidebar() *Sidebar { return m.sidebar }

// Run starts the full-screen program and blocks until it exits
func Run(ctx context.Context, loader store.Loader, opts Options) error {
	m, err := New(ctx, loader, opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
