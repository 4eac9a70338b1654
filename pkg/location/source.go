package location

// WatchID identifies a continuous position subscription. Zero is a valid id;
// holders track whether they own a subscription separately.
type WatchID uint64

// SuccessFunc receives a position fix.
type SuccessFunc func(Location)

// ErrorFunc receives a failed position request.
type ErrorFunc func(*PositionError)

// Source supplies one-shot and continuous position updates. Callbacks run on
// a goroutine other than the caller's and may block briefly.
type Source interface {
	// Available reports whether the source can supply positions at all.
	Available() bool
	// GetCurrentPosition requests a single fix; exactly one callback is invoked.
	GetCurrentPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options)
	// WatchPosition subscribes to continuous updates until ClearWatch is called.
	WatchPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options) WatchID
	// ClearWatch cancels a subscription. Unknown ids are ignored.
	ClearWatch(id WatchID)
}
