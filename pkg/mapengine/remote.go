package mapengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// Command types emitted by the remote engine.
const (
	CmdCreate       = "map.create"
	CmdDestroy      = "map.destroy"
	CmdPan          = "map.pan"
	CmdAddSource    = "source.add"
	CmdAddLayer     = "layer.add"
	CmdAddMarker    = "marker.add"
	CmdMoveMarker   = "marker.move"
	CmdColorMarker  = "marker.color"
	CmdRemoveMarker = "marker.remove"
)

// ErrDestroyed is returned for calls on a destroyed map.
var ErrDestroyed = errors.New("map has been destroyed")

// CommandSink delivers commands to the browser.
type CommandSink interface {
	Send(msgType string, data any) error
}

type createCommand struct {
	Container string     `json:"container"`
	Style     string     `json:"style"`
	Center    [2]float64 `json:"center"`
	Zoom      float64    `json:"zoom"`
}

type sourceCommand struct {
	ID   string `json:"id"`
	Data any    `json:"data"`
}

type markerCommand struct {
	ID    string       `json:"id"`
	At    *[2]float64  `json:"at,omitempty"`
	Style *MarkerStyle `json:"style,omitempty"`
	Color string       `json:"color,omitempty"`
}

type panCommand struct {
	At         [2]float64 `json:"at"`
	DurationMs int64      `json:"duration_ms"`
}

// RemoteMaps creates remote engines bound to one sink and routes the browser's
// load notification to the current engine.
type RemoteMaps struct {
	sink    CommandSink
	current *Remote
}

// NewRemoteMaps creates a RemoteMaps for the sink.
func NewRemoteMaps(sink CommandSink) *RemoteMaps {
	return &RemoteMaps{sink: sink}
}

// New is a Factory.
func (m *RemoteMaps) New(opts Options) (Engine, error) {
	err := m.sink.Send(CmdCreate, createCommand{
		Container: opts.Container,
		Style:     opts.Style,
		Center:    lngLat(opts.Center),
		Zoom:      opts.Zoom,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create map: %w", err)
	}
	m.current = &Remote{sink: m.sink}
	return m.current, nil
}

// HandleLoaded fires the load handler of the current engine.
func (m *RemoteMaps) HandleLoaded() {
	if m.current != nil {
		m.current.loaded()
	}
}

// Remote is an Engine whose drawing happens in the browser.
type Remote struct {
	sink       CommandSink
	onLoad     func()
	fired      bool
	destroyed  bool
	nextMarker int
}

// OnLoad registers the load handler.
func (r *Remote) OnLoad(handler func()) {
	r.onLoad = handler
}

func (r *Remote) loaded() {
	if r.fired || r.destroyed || r.onLoad == nil {
		return
	}
	r.fired = true
	r.onLoad()
}

// AddMarker places a marker and returns its handle.
func (r *Remote) AddMarker(at orb.Point, style MarkerStyle) (Marker, error) {
	if r.destroyed {
		return nil, ErrDestroyed
	}
	r.nextMarker++
	id := fmt.Sprintf("marker-%d", r.nextMarker)
	pos := lngLat(at)
	if err := r.sink.Send(CmdAddMarker, markerCommand{ID: id, At: &pos, Style: &style}); err != nil {
		return nil, err
	}
	return &remoteMarker{id: id, engine: r}, nil
}

// AddSource registers a GeoJSON source.
func (r *Remote) AddSource(id string, data any) error {
	if r.destroyed {
		return ErrDestroyed
	}
	return r.sink.Send(CmdAddSource, sourceCommand{ID: id, Data: data})
}

// AddLayer adds a style layer.
func (r *Remote) AddLayer(layer Layer) error {
	if r.destroyed {
		return ErrDestroyed
	}
	return r.sink.Send(CmdAddLayer, layer)
}

// PanTo asks the browser to ease the camera to at.
func (r *Remote) PanTo(at orb.Point, duration time.Duration) {
	if r.destroyed {
		return
	}
	_ = r.sink.Send(CmdPan, panCommand{At: lngLat(at), DurationMs: duration.Milliseconds()})
}

// Destroy removes the map. Further calls are ignored.
func (r *Remote) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	_ = r.sink.Send(CmdDestroy, struct{}{})
}

type remoteMarker struct {
	id      string
	engine  *Remote
	removed bool
}

func (m *remoteMarker) SetPosition(at orb.Point) {
	if m.removed || m.engine.destroyed {
		return
	}
	pos := lngLat(at)
	_ = m.engine.sink.Send(CmdMoveMarker, markerCommand{ID: m.id, At: &pos})
}

func (m *remoteMarker) SetColor(color string) {
	if m.removed || m.engine.destroyed {
		return
	}
	_ = m.engine.sink.Send(CmdColorMarker, markerCommand{ID: m.id, Color: color})
}

func (m *remoteMarker) Remove() {
	if m.removed {
		return
	}
	m.removed = true
	if !m.engine.destroyed {
		_ = m.engine.sink.Send(CmdRemoveMarker, markerCommand{ID: m.id})
	}
}

func lngLat(p orb.Point) [2]float64 {
	return [2]float64{p.Lon(), p.Lat()}
}
