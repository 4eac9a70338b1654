// Package mapengine describes the map rendering engine the check-in page drives
// and provides a remote implementation that forwards every call to a browser.
package mapengine

import (
	"time"

	"github.com/paulmach/orb"
)

// Options configures a new map instance.
type Options struct {
	Container string
	Style     string
	Center    orb.Point
	Zoom      float64
}

// MarkerStyle describes how a marker is drawn.
type MarkerStyle struct {
	Color string `json:"color"`
	// Dot draws a small bordered circle instead of the default pin.
	Dot bool `json:"dot,omitempty"`
}

// Layer is a style layer drawn from a source.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint"`
}

// Marker is a handle to a marker placed on the map.
type Marker interface {
	SetPosition(at orb.Point)
	SetColor(color string)
	Remove()
}

// Engine is a live map instance.
type Engine interface {
	// OnLoad registers the handler run once the map style has loaded.
	OnLoad(handler func())
	AddMarker(at orb.Point, style MarkerStyle) (Marker, error)
	AddSource(id string, data any) error
	AddLayer(layer Layer) error
	// PanTo starts an animated pan. It does not wait for the animation.
	PanTo(at orb.Point, duration time.Duration)
	Destroy()
}

// Factory constructs an engine.
type Factory func(opts Options) (Engine, error)
