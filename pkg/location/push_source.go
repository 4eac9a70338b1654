package location

import (
	"sync"
)

// Geolocation command operations sent to a remote position provider.
const (
	OpGetCurrentPosition = "geo.get"
	OpWatchPosition      = "geo.watch"
	OpClearWatch         = "geo.clear"
)

// CommandSink delivers commands to the remote side, typically a browser page.
type CommandSink interface {
	Send(msgType string, data any) error
}

// GeoCommand asks the remote side to start or stop a position request.
type GeoCommand struct {
	Request            uint64 `json:"request"`
	EnableHighAccuracy bool   `json:"enable_high_accuracy,omitempty"`
	TimeoutMs          int64  `json:"timeout_ms,omitempty"`
	MaximumAgeMs       int64  `json:"maximum_age_ms,omitempty"`
}

type pushRequest struct {
	onSuccess SuccessFunc
	onError   ErrorFunc
	watch     bool
}

// PushSource is a Source whose fixes are pushed by a remote geolocation
// implementation. Requests are forwarded through the sink and results come back
// through Deliver and Fail.
type PushSource struct {
	sink CommandSink

	mu        sync.Mutex
	available bool
	nextID    uint64
	requests  map[uint64]pushRequest
}

// NewPushSource creates a PushSource. It reports unavailable until SetAvailable(true).
func NewPushSource(sink CommandSink) *PushSource {
	return &PushSource{
		sink:     sink,
		requests: make(map[uint64]pushRequest),
	}
}

// SetAvailable records whether the remote side has geolocation support.
func (p *PushSource) SetAvailable(available bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = available
}

// Available reports whether the remote side has geolocation support.
func (p *PushSource) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// GetCurrentPosition forwards a one-shot request. A failed send is reported
// asynchronously so callers may hold their own event loop.
func (p *PushSource) GetCurrentPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options) {
	id := p.register(pushRequest{onSuccess: onSuccess, onError: onError})
	if err := p.sink.Send(OpGetCurrentPosition, command(id, opts)); err != nil {
		go p.Fail(id, &PositionError{Code: PositionUnavailable, Message: err.Error()})
	}
}

// WatchPosition forwards a continuous request.
func (p *PushSource) WatchPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options) WatchID {
	id := p.register(pushRequest{onSuccess: onSuccess, onError: onError, watch: true})
	if err := p.sink.Send(OpWatchPosition, command(id, opts)); err != nil {
		go p.Fail(id, &PositionError{Code: PositionUnavailable, Message: err.Error()})
	}
	return WatchID(id)
}

// ClearWatch drops the subscription locally and tells the remote side to stop.
func (p *PushSource) ClearWatch(id WatchID) {
	p.mu.Lock()
	req, ok := p.requests[uint64(id)]
	if ok && req.watch {
		delete(p.requests, uint64(id))
	}
	p.mu.Unlock()

	if ok && req.watch {
		_ = p.sink.Send(OpClearWatch, GeoCommand{Request: uint64(id)})
	}
}

// Deliver routes a fix to the request it answers. One-shot requests are
// completed; fixes for unknown or cleared requests are dropped.
func (p *PushSource) Deliver(request uint64, loc Location) bool {
	req, ok := p.take(request)
	if ok {
		req.onSuccess(loc)
	}
	return ok
}

// Fail routes an error to the request it answers.
func (p *PushSource) Fail(request uint64, err *PositionError) bool {
	req, ok := p.take(request)
	if ok {
		req.onError(err)
	}
	return ok
}

// Pending returns the number of outstanding requests and watches.
func (p *PushSource) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *PushSource) register(req pushRequest) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.requests[id] = req
	return id
}

func (p *PushSource) take(id uint64) (pushRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.requests[id]
	if ok && !req.watch {
		delete(p.requests, id)
	}
	return req, ok
}

func command(id uint64, opts Options) GeoCommand {
	return GeoCommand{
		Request:            id,
		EnableHighAccuracy: opts.EnableHighAccuracy,
		TimeoutMs:          opts.Timeout.Milliseconds(),
		MaximumAgeMs:       opts.MaximumAge.Milliseconds(),
	}
}
