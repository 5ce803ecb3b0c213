package tui

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/rtree"
	"github.com/paulmach/orb"
)

const (
	// Columns spanned by the whole world at zoom 0
	worldCols = 64.0
	// Terminal cells are about twice as tall as they are wide
	cellAspect = 0.5

	MaxZoom = 18
	maxLat  = 85.05112878
)

var errNoMap = errors.New("map not created")

type canvasMarker struct {
	spec mapview.MarkerSpec
	seq  int
}

// Canvas is a character-cell web mercator map. It implements
// mapview.Provider.
type Canvas struct {
	width, height          int
	containerW, containerH int

	center  models.Location
	zoom    int
	created bool

	markers map[mapview.MarkerRef]*canvasMarker
	nextRef int
	popup   mapview.MarkerRef
	onClick func(lat, lon float64)
}

// NewCanvas returns a canvas whose container measures width x height cells
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:      width,
		height:     height,
		containerW: width,
		containerH: height,
		markers:    make(map[mapview.MarkerRef]*canvasMarker),
	}
}

func (c *Canvas) CreateMap(center models.Location, zoom int) error {
	if !center.Valid() {
		return fmt.Errorf("invalid center (%v, %v)", center.Lat, center.Lon)
	}
	if zoom < 0 || zoom > MaxZoom {
		return fmt.Errorf("zoom %d out of range [0, %d]", zoom, MaxZoom)
	}
	c.center = center
	c.zoom = zoom
	c.created = true
	return nil
}

func (c *Canvas) AddMarker(spec mapview.MarkerSpec) (mapview.MarkerRef, error) {
	if !c.created {
		return "", errNoMap
	}
	if !spec.Location.Valid() {
		return "", models.ErrInvalidLocation
	}
	c.nextRef++
	ref := mapview.MarkerRef(fmt.Sprintf("m%d", c.nextRef))
	c.markers[ref] = &canvasMarker{spec: spec, seq: c.nextRef}
	return ref, nil
}

func (c *Canvas) RemoveMarker(ref mapview.MarkerRef) {
	delete(c.markers, ref)
	if c.popup == ref {
		c.popup = ""
	}
}

// FitBounds picks the closest zoom, capped at opts.MaxZoom, at which bound
// fits inside the padded canvas, and centers on it.
func (c *Canvas) FitBounds(bound orb.Bound, opts mapview.FitOptions) {
	if !c.created {
		return
	}
	maxZoom := opts.MaxZoom
	if maxZoom <= 0 || maxZoom > MaxZoom {
		maxZoom = MaxZoom
	}
	availW := float64(c.width - 1 - 2*opts.Padding)
	availH := float64(c.height - 1 - 2*opts.Padding)

	x0, y0 := normalize(bound.Min.Lat(), bound.Min.Lon())
	x1, y1 := normalize(bound.Max.Lat(), bound.Max.Lon())
	dx, dy := math.Abs(x1-x0), math.Abs(y1-y0)

	zoom := 0
	for z := maxZoom; z >= 0; z-- {
		w := scale(z)
		if dx*w <= availW && dy*w*cellAspect <= availH {
			zoom = z
			break
		}
	}

	c.center = denormalize((x0+x1)/2, (y0+y1)/2)
	c.zoom = zoom
}

func (c *Canvas) SetView(center models.Location, zoom int) {
	c.center = center
	c.zoom = clampZoom(zoom)
}

func (c *Canvas) OpenPopup(ref mapview.MarkerRef) {
	if _, ok := c.markers[ref]; ok {
		c.popup = ref
	}
}

func (c *Canvas) OnClick(handler func(lat, lon float64)) {
	c.onClick = handler
}

// InvalidateSize adopts the current container size
func (c *Canvas) InvalidateSize() {
	c.width = c.containerW
	c.height = c.containerH
}

// SetContainerSize records a new container size. The canvas keeps drawing
// at the old size until InvalidateSize.
func (c *Canvas) SetContainerSize(width, height int) {
	c.containerW = max(width, 1)
	c.containerH = max(height, 1)
}

// Click reports a click on cell (col, row) to the click handler
func (c *Canvas) Click(col, row int) {
	if c.onClick == nil || !c.Contains(col, row) {
		return
	}
	loc := c.Unproject(col, row)
	c.onClick(loc.Lat, loc.Lon)
}

// Pan moves the view by whole cells
func (c *Canvas) Pan(cols, rows int) {
	c.center = c.Unproject(c.width/2+cols, c.height/2+rows)
}

// ZoomBy changes the zoom level, keeping the center
func (c *Canvas) ZoomBy(delta int) {
	c.zoom = clampZoom(c.zoom + delta)
}

// Project returns the cell for loc and whether it is on screen
func (c *Canvas) Project(loc models.Location) (col, row int, ok bool) {
	w := scale(c.zoom)
	cx, cy := normalize(c.center.Lat, c.center.Lon)
	x, y := normalize(loc.Lat, loc.Lon)

	col = int(math.Round((x-cx)*w)) + c.width/2
	row = int(math.Round((y-cy)*w*cellAspect)) + c.height/2
	return col, row, c.Contains(col, row)
}

// Unproject returns the location at the center of cell (col, row)
func (c *Canvas) Unproject(col, row int) models.Location {
	w := scale(c.zoom)
	cx, cy := normalize(c.center.Lat, c.center.Lon)
	x := cx + float64(col-c.width/2)/w
	y := cy + float64(row-c.height/2)/(w*cellAspect)
	return denormalize(x, y)
}

// Contains reports whether (col, row) is on the canvas
func (c *Canvas) Contains(col, row int) bool {
	return col >= 0 && row >= 0 && col < c.width && row < c.height
}

// CellKm is the ground width of one cell at the view center
func (c *Canvas) CellKm() float64 {
	a := c.Unproject(c.width/2, c.height/2)
	b := c.Unproject(c.width/2+1, c.height/2)
	return rtree.Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Visible returns the box currently on screen
func (c *Canvas) Visible() models.BoundingBox {
	nw := c.Unproject(0, 0)
	se := c.Unproject(c.width-1, c.height-1)
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: se.Lat, Lon: nw.Lon},
		TopRight:   models.Location{Lat: nw.Lat, Lon: se.Lon},
	}
}

// Popup returns the text of the open popup
func (c *Canvas) Popup() (string, bool) {
	m, ok := c.markers[c.popup]
	if !ok {
		return "", false
	}
	return m.spec.Popup, true
}

func (c *Canvas) Center() models.Location { return c.center }
func (c *Canvas) Zoom() int               { return c.zoom }
func (c *Canvas) Size() (int, int)        { return c.width, c.height }
func (c *Canvas) MarkerCount() int        { return len(c.markers) }

var (
	gridStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#44475A"))

	glyphs = map[mapview.MarkerStyle]string{
		mapview.StyleToVisit: "○",
		mapview.StyleVisited: "●",
		mapview.StyleRated:   "★",
		mapview.StylePick:    "✚",
	}
	glyphStyles = map[mapview.MarkerStyle]lipgloss.Style{
		mapview.StyleToVisit: lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")),
		mapview.StyleVisited: lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")),
		mapview.StyleRated:   lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true),
		mapview.StylePick:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true),
	}
	popupGlyphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6")).Bold(true)
)

// Render draws the canvas. Later markers are drawn over earlier ones and
// the marker with the open popup is drawn last.
func (c *Canvas) Render() string {
	cells := make([][]string, c.height)
	for row := range cells {
		cells[row] = make([]string, c.width)
		for col := range cells[row] {
			cells[row][col] = " "
			if row%4 == 0 && col%8 == 0 {
				cells[row][col] = gridStyle.Render("·")
			}
		}
	}

	refs := make([]mapview.MarkerRef, 0, len(c.markers))
	for ref := range c.markers {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		a, b := c.markers[refs[i]], c.markers[refs[j]]
		if (refs[i] == c.popup) != (refs[j] == c.popup) {
			return refs[j] == c.popup
		}
		return a.seq < b.seq
	})

	for _, ref := range refs {
		m := c.markers[ref]
		col, row, ok := c.Project(m.spec.Location)
		if !ok {
			continue
		}
		style := glyphStyles[m.spec.Style]
		if ref == c.popup {
			style = popupGlyphStyle
		}
		cells[row][col] = style.Render(glyphs[m.spec.Style])
	}

	lines := make([]string, c.height)
	for row := range cells {
		lines[row] = strings.Join(cells[row], "")
	}
	return strings.Join(lines, "\n")
}

func scale(zoom int) float64 {
	return worldCols * math.Exp2(float64(zoom))
}

func clampZoom(zoom int) int {
	return min(max(zoom, 0), MaxZoom)
}

// normalize maps a location to web mercator coordinates in [0, 1]
func normalize(lat, lon float64) (x, y float64) {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	phi := lat * math.Pi / 180
	x = (lon + 180) / 360
	y = (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2
	return x, y
}

func denormalize(x, y float64) models.Location {
	lon := x*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return models.Location{Lat: lat, Lon: lon}
}
