package location

import (
	"time"

	"github.com/paulmach/orb"
)

// Location represents the geographical coordinates of a device
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the location as a lon/lat point.
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}
