package services

import (
	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/models"
	"github.com/benmeehan/geo-checkin/pkg/geometry"
)

// GeofenceObserver is notified synchronously after every tracker update.
type GeofenceObserver interface {
	PositionChanged(pos models.Position, inRange bool)
	ErrorChanged(message string)
}

// GeofenceTracker owns the in-range decision. InRange changes only on a
// successful position update; errors are recorded without touching it.
type GeofenceTracker struct {
	geometry geometry.Provider
	logger   zerolog.Logger

	zone        models.TargetZone
	initialized bool

	position  *models.Position
	state     models.GeofenceState
	observers []GeofenceObserver
}

// NewGeofenceTracker creates a tracker using geom for containment tests.
func NewGeofenceTracker(geom geometry.Provider, logger zerolog.Logger) *GeofenceTracker {
	return &GeofenceTracker{
		geometry: geom,
		logger:   logger,
	}
}

// Initialize sets the zone. Later calls are ignored.
func (t *GeofenceTracker) Initialize(zone models.TargetZone) {
	if t.initialized {
		t.logger.Debug().Msg("GeofenceTracker is already initialized")
		return
	}
	if len(zone.Polygon) == 0 {
		zone.Polygon = t.geometry.BuildCircle(zone.Center, zone.RadiusKm, zone.Steps)
	}
	t.zone = zone
	t.initialized = true

	t.logger.Info().
		Float64("longitude", zone.Center.Lon()).
		Float64("latitude", zone.Center.Lat()).
		Float64("radius_km", zone.RadiusKm).
		Msg("GeofenceTracker initialized")
}

// Subscribe adds an observer. Observers are notified in subscription order.
func (t *GeofenceTracker) Subscribe(observer GeofenceObserver) {
	t.observers = append(t.observers, observer)
}

// OnPositionUpdate records the latest fix, recomputes containment and clears any error.
func (t *GeofenceTracker) OnPositionUpdate(pos models.Position) {
	inRange := false
	if t.initialized {
		inRange = t.geometry.PointInPolygon(pos.Point(), t.zone.Polygon)
	} else {
		t.logger.Warn().Msg("Position received before the zone was initialized")
	}

	if inRange != t.state.InRange {
		t.logger.Info().Bool("in_range", inRange).Msg("Geofence state changed")
	}

	t.position = &pos
	t.state = models.GeofenceState{InRange: inRange}

	for _, o := range t.observers {
		o.PositionChanged(pos, inRange)
	}
}

// OnPositionError records message. The last containment result is kept.
func (t *GeofenceTracker) OnPositionError(message string) {
	t.state.Error = message

	for _, o := range t.observers {
		o.ErrorChanged(message)
	}
}

// InRange reports the containment result of the latest fix.
func (t *GeofenceTracker) InRange() bool {
	return t.state.InRange
}

// State returns the current geofence state.
func (t *GeofenceTracker) State() models.GeofenceState {
	return t.state
}

// Position returns the latest fix, if any.
func (t *GeofenceTracker) Position() (models.Position, bool) {
	if t.position == nil {
		return models.Position{}, false
	}
	return *t.position, true
}
