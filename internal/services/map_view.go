package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/internal/models"
	"github.com/benmeehan/geo-checkin/pkg/geometry"
	"github.com/benmeehan/geo-checkin/pkg/mapengine"
)

// MapView mirrors tracker state on the map. It owns the engine, the zone
// overlays and the user marker; it never feeds back into the tracker.
type MapView struct {
	zone      models.TargetZone
	newEngine mapengine.Factory
	style     string
	zoom      float64
	logger    zerolog.Logger

	engine        mapengine.Engine
	overlaysDrawn bool
	userMarker    mapengine.Marker
	userInRange   bool
}

// NewMapView creates a map view for zone.
func NewMapView(zone models.TargetZone, newEngine mapengine.Factory, style string, zoom float64, logger zerolog.Logger) *MapView {
	return &MapView{
		zone:      zone,
		newEngine: newEngine,
		style:     style,
		zoom:      zoom,
		logger:    logger,
	}
}

// Mount creates the map in container. onReady runs after the overlays are drawn.
// Mounting a mounted view does nothing.
func (v *MapView) Mount(container string, onReady func()) error {
	if v.engine != nil {
		v.logger.Debug().Msg("MapView is already mounted")
		return nil
	}

	engine, err := v.newEngine(mapengine.Options{
		Container: container,
		Style:     v.style,
		Center:    v.zone.Center,
		Zoom:      v.zoom,
	})
	if err != nil {
		return fmt.Errorf("failed to create map: %w", err)
	}
	v.engine = engine

	engine.OnLoad(func() {
		if err := v.drawOverlays(); err != nil {
			v.logger.Error().Err(err).Msg("Failed to draw destination overlays")
		}
		if onReady != nil {
			onReady()
		}
	})

	v.logger.Info().Str("container", container).Msg("MapView mounted")
	return nil
}

// drawOverlays adds the destination marker and the zone circle once per page.
func (v *MapView) drawOverlays() error {
	if v.overlaysDrawn || v.engine == nil {
		return nil
	}
	v.overlaysDrawn = true

	var errs []error
	if _, err := v.engine.AddMarker(v.zone.Center, mapengine.MarkerStyle{Color: constants.DestinationColor}); err != nil {
		errs = append(errs, fmt.Errorf("destination marker: %w", err))
	}
	if err := v.engine.AddSource(constants.CircleSourceID, geometry.CircleFeature(v.zone.Polygon)); err != nil {
		errs = append(errs, fmt.Errorf("circle source: %w", err))
		return errors.Join(errs...)
	}
	if err := v.engine.AddLayer(mapengine.Layer{
		ID:     constants.CircleFillLayerID,
		Type:   "fill",
		Source: constants.CircleSourceID,
		Paint: map[string]any{
			"fill-color":   constants.CircleColor,
			"fill-opacity": constants.CircleFillOpacity,
		},
	}); err != nil {
		errs = append(errs, fmt.Errorf("circle fill: %w", err))
	}
	if err := v.engine.AddLayer(mapengine.Layer{
		ID:     constants.CircleLineLayerID,
		Type:   "line",
		Source: constants.CircleSourceID,
		Paint: map[string]any{
			"line-color": constants.CircleColor,
			"line-width": constants.CircleLineWidth,
		},
	}); err != nil {
		errs = append(errs, fmt.Errorf("circle border: %w", err))
	}
	return errors.Join(errs...)
}

// OnUserPositionChanged places or moves the user marker and pans to it.
func (v *MapView) OnUserPositionChanged(pos models.Position, inRange bool) {
	if v.engine == nil {
		return
	}
	at := pos.Point()

	if v.userMarker == nil {
		marker, err := v.engine.AddMarker(at, mapengine.MarkerStyle{Color: userColor(inRange), Dot: true})
		if err != nil {
			v.logger.Error().Err(err).Msg("Failed to add user marker")
		} else {
			v.userMarker = marker
			v.userInRange = inRange
		}
	} else {
		v.userMarker.SetPosition(at)
		if inRange != v.userInRange {
			v.userMarker.SetColor(userColor(inRange))
			v.userInRange = inRange
		}
	}

	v.engine.PanTo(at, constants.PanDuration)
}

// Unmount releases the user marker and destroys the map. Safe to call at any time.
func (v *MapView) Unmount() {
	if v.userMarker != nil {
		v.userMarker.Remove()
		v.userMarker = nil
	}
	if v.engine != nil {
		v.engine.Destroy()
		v.engine = nil
		v.logger.Info().Msg("MapView unmounted")
	}
}

// Mounted reports whether an engine is live.
func (v *MapView) Mounted() bool {
	return v.engine != nil
}

func userColor(inRange bool) string {
	if inRange {
		return constants.UserInRangeColor
	}
	return constants.UserOutRangeColor
}
