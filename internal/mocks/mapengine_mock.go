package mocks

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/geo-checkin/pkg/mapengine"
)

// MockEngine is a mock implementation of the mapengine.Engine interface.
// OnLoad stores the handler so tests can fire it with Load.
type MockEngine struct {
	mock.Mock
	onLoad func()
}

func (m *MockEngine) OnLoad(handler func()) {
	m.Called(handler)
	m.onLoad = handler
}

// Load runs the registered load handler.
func (m *MockEngine) Load() {
	if m.onLoad != nil {
		m.onLoad()
	}
}

func (m *MockEngine) AddMarker(at orb.Point, style mapengine.MarkerStyle) (mapengine.Marker, error) {
	args := m.Called(at, style)
	if marker := args.Get(0); marker != nil {
		return marker.(mapengine.Marker), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) AddSource(id string, data any) error {
	args := m.Called(id, data)
	return args.Error(0)
}

func (m *MockEngine) AddLayer(layer mapengine.Layer) error {
	args := m.Called(layer)
	return args.Error(0)
}

func (m *MockEngine) PanTo(at orb.Point, duration time.Duration) {
	m.Called(at, duration)
}

func (m *MockEngine) Destroy() {
	m.Called()
}

// MockMarker is a mock implementation of the mapengine.Marker interface
type MockMarker struct {
	mock.Mock
}

func (m *MockMarker) SetPosition(at orb.Point) {
	m.Called(at)
}

func (m *MockMarker) SetColor(color string) {
	m.Called(color)
}

func (m *MockMarker) Remove() {
	m.Called()
}
