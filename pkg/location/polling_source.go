package location

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PollingSource turns a polled Provider into a Source. Every watch samples the
// provider on its own ticker; fixes younger than Options.MaximumAge are reused.
type PollingSource struct {
	provider Provider
	interval time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	nextID   WatchID
	watches  map[WatchID]context.CancelFunc
	last     Location
	lastAt   time.Time
	haveLast bool
	closed   bool

	wg  sync.WaitGroup
	now func() time.Time
}

// NewPollingSource creates a PollingSource sampling provider every interval while watched.
func NewPollingSource(provider Provider, interval time.Duration, logger zerolog.Logger) *PollingSource {
	return &PollingSource{
		provider: provider,
		interval: interval,
		logger:   logger,
		watches:  make(map[WatchID]context.CancelFunc),
		now:      time.Now,
	}
}

// Available reports whether the source still accepts requests.
func (p *PollingSource) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// GetCurrentPosition samples the provider once in the background.
func (p *PollingSource) GetCurrentPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		go onError(&PositionError{Code: PositionUnavailable, Message: "location source is closed"})
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		loc, err := p.fix(context.Background(), opts)
		if err != nil {
			onError(err)
			return
		}
		onSuccess(loc)
	}()
}

// WatchPosition samples immediately and then on every interval until cleared.
func (p *PollingSource) WatchPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options) WatchID {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	if p.closed {
		return id
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.watches[id] = cancel
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			loc, err := p.fix(ctx, opts)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
			} else {
				onSuccess(loc)
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	p.logger.Debug().Uint64("watch_id", uint64(id)).Dur("interval", p.interval).Msg("Position watch started")
	return id
}

// ClearWatch stops a watch. No callback for it is invoked after ClearWatch returns
// unless a sample was already being delivered.
func (p *PollingSource) ClearWatch(id WatchID) {
	p.mu.Lock()
	cancel, ok := p.watches[id]
	delete(p.watches, id)
	p.mu.Unlock()

	if ok {
		cancel()
		p.logger.Debug().Uint64("watch_id", uint64(id)).Msg("Position watch cleared")
	}
}

// Close cancels every watch, waits for in-flight samples and closes the provider.
func (p *PollingSource) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for id, cancel := range p.watches {
		cancel()
		delete(p.watches, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
	return p.provider.Close()
}

// fix returns a cached fix within MaximumAge or samples the provider bounded by Timeout.
func (p *PollingSource) fix(ctx context.Context, opts Options) (Location, *PositionError) {
	if loc, ok := p.cached(opts.MaximumAge); ok {
		return loc, nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	type result struct {
		loc Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := p.provider.GetLocation(ctx)
		done <- result{loc, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			p.logger.Warn().Err(r.err).Msg("Failed to get location from provider")
			return Location{}, NewPositionError(r.err)
		}
		if r.loc.Timestamp.IsZero() {
			r.loc.Timestamp = p.now()
		}
		p.store(r.loc)
		return r.loc, nil
	case <-ctx.Done():
		return Location{}, NewPositionError(ctx.Err())
	}
}

func (p *PollingSource) cached(maxAge time.Duration) (Location, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.haveLast || maxAge <= 0 || p.now().Sub(p.lastAt) > maxAge {
		return Location{}, false
	}
	return p.last, true
}

func (p *PollingSource) store(loc Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = loc
	p.lastAt = p.now()
	p.haveLast = true
}
