package services_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/internal/mocks"
	"github.com/benmeehan/geo-checkin/internal/models"
	"github.com/benmeehan/geo-checkin/internal/services"
	"github.com/benmeehan/geo-checkin/pkg/geometry"
	"github.com/benmeehan/geo-checkin/pkg/mapengine"
)

func layerWithID(id string) any {
	return mock.MatchedBy(func(l mapengine.Layer) bool { return l.ID == id })
}

// expectOverlays sets up the destination marker, circle source and both layers.
func expectOverlays(engine *mocks.MockEngine, zone models.TargetZone) *mocks.MockMarker {
	destination := new(mocks.MockMarker)
	engine.On("OnLoad", mock.Anything).Return()
	engine.On("AddMarker", zone.Center, mapengine.MarkerStyle{Color: constants.DestinationColor}).Return(destination, nil).Once()
	engine.On("AddSource", constants.CircleSourceID, mock.Anything).Return(nil).Once()
	engine.On("AddLayer", layerWithID(constants.CircleFillLayerID)).Return(nil).Once()
	engine.On("AddLayer", layerWithID(constants.CircleLineLayerID)).Return(nil).Once()
	return destination
}

type engineFactory struct {
	engine *mocks.MockEngine
	calls  []mapengine.Options
	err    error
}

func (f *engineFactory) New(opts mapengine.Options) (mapengine.Engine, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.engine, nil
}

func newMapView(t *testing.T) (*services.MapView, *engineFactory, models.TargetZone) {
	t.Helper()
	zone := models.DefaultTargetZone(geometry.NewGeodesic())
	factory := &engineFactory{engine: new(mocks.MockEngine)}
	view := services.NewMapView(zone, factory.New, constants.DefaultMapStyle, constants.InitialZoom, zerolog.Nop())
	return view, factory, zone
}

func TestMapView_MountDrawsOverlaysOnce(t *testing.T) {
	view, factory, zone := newMapView(t)
	engine := factory.engine
	expectOverlays(engine, zone)

	ready := 0
	require.NoError(t, view.Mount(constants.DefaultMapContainer, func() { ready++ }))
	require.NoError(t, view.Mount(constants.DefaultMapContainer, func() { ready++ }))

	require.Len(t, factory.calls, 1)
	assert.Equal(t, mapengine.Options{
		Container: constants.DefaultMapContainer,
		Style:     constants.DefaultMapStyle,
		Center:    zone.Center,
		Zoom:      constants.InitialZoom,
	}, factory.calls[0])

	engine.Load()
	engine.Load()

	assert.Equal(t, 2, ready)
	assert.True(t, view.Mounted())
	engine.AssertNumberOfCalls(t, "AddMarker", 1)
	engine.AssertNumberOfCalls(t, "AddSource", 1)
	engine.AssertNumberOfCalls(t, "AddLayer", 2)
	engine.AssertNumberOfCalls(t, "OnLoad", 1)
}

func TestMapView_CircleLayersUseZoneStyle(t *testing.T) {
	view, factory, zone := newMapView(t)
	engine := factory.engine
	expectOverlays(engine, zone)

	require.NoError(t, view.Mount(constants.DefaultMapContainer, nil))
	engine.Load()

	var fill, line mapengine.Layer
	for _, call := range engine.Calls {
		if call.Method != "AddLayer" {
			continue
		}
		layer := call.Arguments.Get(0).(mapengine.Layer)
		switch layer.ID {
		case constants.CircleFillLayerID:
			fill = layer
		case constants.CircleLineLayerID:
			line = layer
		}
	}
	assert.Equal(t, "fill", fill.Type)
	assert.Equal(t, constants.CircleSourceID, fill.Source)
	assert.Equal(t, constants.CircleColor, fill.Paint["fill-color"])
	assert.Equal(t, constants.CircleFillOpacity, fill.Paint["fill-opacity"])
	assert.Equal(t, "line", line.Type)
	assert.Equal(t, constants.CircleLineWidth, line.Paint["line-width"])
}

func TestMapView_MountFailure(t *testing.T) {
	view, factory, _ := newMapView(t)
	factory.err = errors.New("no webgl")

	err := view.Mount(constants.DefaultMapContainer, nil)

	assert.Error(t, err)
	assert.False(t, view.Mounted())
}

func TestMapView_UserMarkerLifecycle(t *testing.T) {
	view, factory, zone := newMapView(t)
	engine := factory.engine
	expectOverlays(engine, zone)
	user := new(mocks.MockMarker)

	engine.On("AddMarker", atStation.Point(), mapengine.MarkerStyle{Color: constants.UserInRangeColor, Dot: true}).Return(user, nil).Once()
	engine.On("PanTo", mock.Anything, constants.PanDuration).Return()
	user.On("SetPosition", mock.Anything).Return()
	user.On("SetColor", constants.UserOutRangeColor).Return().Once()
	user.On("SetColor", constants.UserInRangeColor).Return().Once()

	require.NoError(t, view.Mount(constants.DefaultMapContainer, nil))
	engine.Load()

	view.OnUserPositionChanged(atStation, true)
	view.OnUserPositionChanged(nearby, true)
	view.OnUserPositionChanged(farAway, false)
	view.OnUserPositionChanged(nearby, true)

	engine.AssertNumberOfCalls(t, "AddMarker", 2)
	engine.AssertNumberOfCalls(t, "PanTo", 4)
	engine.AssertCalled(t, "PanTo", farAway.Point(), constants.PanDuration)
	user.AssertNumberOfCalls(t, "SetPosition", 3)
	user.AssertNumberOfCalls(t, "SetColor", 2)
	user.AssertExpectations(t)
}

func TestMapView_PositionBeforeMountIsIgnored(t *testing.T) {
	view, factory, _ := newMapView(t)

	view.OnUserPositionChanged(atStation, true)

	factory.engine.AssertNotCalled(t, "AddMarker", mock.Anything, mock.Anything)
	factory.engine.AssertNotCalled(t, "PanTo", mock.Anything, mock.Anything)
}

func TestMapView_UnmountReleasesEverythingOnce(t *testing.T) {
	view, factory, zone := newMapView(t)
	engine := factory.engine
	expectOverlays(engine, zone)
	user := new(mocks.MockMarker)
	engine.On("AddMarker", nearby.Point(), mock.Anything).Return(user, nil).Once()
	engine.On("PanTo", mock.Anything, mock.Anything).Return()
	engine.On("Destroy").Return().Once()
	user.On("Remove").Return().Once()

	require.NoError(t, view.Mount(constants.DefaultMapContainer, nil))
	engine.Load()
	view.OnUserPositionChanged(nearby, true)

	view.Unmount()
	view.Unmount()

	assert.False(t, view.Mounted())
	user.AssertNumberOfCalls(t, "Remove", 1)
	engine.AssertNumberOfCalls(t, "Destroy", 1)
}

func TestMapView_UnmountWithoutMount(t *testing.T) {
	view, factory, _ := newMapView(t)

	assert.NotPanics(t, view.Unmount)
	factory.engine.AssertNotCalled(t, "Destroy")
}
