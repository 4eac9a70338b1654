package location

import "time"

// Options tunes a position request.
type Options struct {
	// EnableHighAccuracy asks the source to favor precision over availability.
	EnableHighAccuracy bool
	// Timeout bounds the wait for a fix before an error is reported. Zero waits forever.
	Timeout time.Duration
	// MaximumAge is the oldest cached fix that may be returned instead of a fresh one.
	MaximumAge time.Duration
}

// DefaultOptions favors availability, waits up to 30s and accepts fixes up to 5s old.
func DefaultOptions() Options {
	return Options{
		EnableHighAccuracy: false,
		Timeout:            30 * time.Second,
		MaximumAge:         5 * time.Second,
	}
}
