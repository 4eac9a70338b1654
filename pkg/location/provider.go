package location

import "context"

// Provider interface defines the methods for polled location providers
type Provider interface {
	GetLocation(ctx context.Context) (Location, error)
	Close() error
}
