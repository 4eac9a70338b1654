package models

import (
	"github.com/paulmach/orb"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/pkg/geometry"
)

// TargetZone is the circular destination area. Build it once with NewTargetZone.
type TargetZone struct {
	Center   orb.Point
	RadiusKm float64
	Steps    int
	Polygon  orb.Polygon
}

// NewTargetZone approximates the zone boundary with steps vertices.
func NewTargetZone(center orb.Point, radiusKm float64, steps int, geom geometry.Provider) TargetZone {
	return TargetZone{
		Center:   center,
		RadiusKm: radiusKm,
		Steps:    steps,
		Polygon:  geom.BuildCircle(center, radiusKm, steps),
	}
}

// DefaultTargetZone is the check-in destination.
func DefaultTargetZone(geom geometry.Provider) TargetZone {
	return NewTargetZone(
		orb.Point{constants.DestinationLongitude, constants.DestinationLatitude},
		constants.DestinationRadiusKm,
		constants.CircleSteps,
		geom,
	)
}

// Position is a user fix in degrees.
type Position struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Point returns the position as a lon/lat point.
func (p Position) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// GeofenceState is the tracker's view of the user.
type GeofenceState struct {
	InRange bool   `json:"in_range"`
	Error   string `json:"error,omitempty"`
}

// ViewState is everything the page shell renders.
type ViewState struct {
	SessionID     string                 `json:"session_id"`
	InRange       bool                   `json:"in_range"`
	ButtonEnabled bool                   `json:"button_enabled"`
	ButtonLabel   string                 `json:"button_label"`
	Status        string                 `json:"status"`
	Warning       string                 `json:"warning,omitempty"`
	Position      *Position              `json:"position,omitempty"`
	Capture       constants.CaptureState `json:"capture"`
	HasPreview    bool                   `json:"has_preview"`
}

// Preview carries a captured image to the page.
type Preview struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
	Retake  string `json:"retake"`
}
