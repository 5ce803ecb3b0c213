package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
)

// PickInputs are the latitude and longitude fields filled by clicking on
// the map. They implement mapview.LocationInputs.
type PickInputs struct {
	Lat textinput.Model
	Lon textinput.Model
}

func NewPickInputs() *PickInputs {
	lat := textinput.New()
	lat.Prompt = "lat "
	lat.Placeholder = "click the map"
	lat.CharLimit = 12
	lat.Width = 12

	lon := textinput.New()
	lon.Prompt = "lon "
	lon.Placeholder = "click the map"
	lon.CharLimit = 12
	lon.Width = 12

	return &PickInputs{Lat: lat, Lon: lon}
}

func (p *PickInputs) SetLocation(lat, lon string) {
	p.Lat.SetValue(lat)
	p.Lon.SetValue(lon)
}

func (p *PickInputs) View() string {
	return p.Lat.View() + "  " + p.Lon.View()
}
