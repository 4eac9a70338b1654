package services

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/internal/models"
	"github.com/benmeehan/geo-checkin/internal/utils"
	"github.com/benmeehan/geo-checkin/pkg/camera"
	"github.com/benmeehan/geo-checkin/pkg/geometry"
	"github.com/benmeehan/geo-checkin/pkg/location"
	"github.com/benmeehan/geo-checkin/pkg/mapengine"
)

// Messages published to the page shell.
const (
	MsgState   = "state"
	MsgPreview = "capture.preview"
)

// pageQueueSize bounds pending tasks per page.
const pageQueueSize = 256

// Publisher pushes view updates to the page shell.
type Publisher interface {
	Send(msgType string, data any) error
}

// PageDeps are the collaborators of a CheckinPage.
type PageDeps struct {
	Zone      models.TargetZone
	Geometry  geometry.Provider
	Engines   mapengine.Factory
	Source    location.Source
	Camera    camera.Component
	Publisher Publisher
}

// PageConfig tunes a CheckinPage.
type PageConfig struct {
	Container string
	MapStyle  string
	Zoom      float64
	Options   location.Options
}

// CheckinPage is one open check-in page. All state lives on the page's event
// loop; exported methods queue work on it and return immediately.
type CheckinPage struct {
	id     string
	cfg    PageConfig
	source location.Source
	camera camera.Component
	pub    Publisher
	logger zerolog.Logger
	loop   *utils.EventLoop

	tracker *GeofenceTracker
	mapView *MapView
	capture *CaptureSession

	mounted    bool
	tornDown   bool
	watchID    location.WatchID
	watching   bool
	cameraOpen bool

	mu       sync.RWMutex
	snapshot models.ViewState
}

// NewCheckinPage wires a page. Nothing is drawn until Mount.
func NewCheckinPage(id string, deps PageDeps, cfg PageConfig, logger zerolog.Logger) *CheckinPage {
	logger = logger.With().Str("session_id", id).Logger()

	p := &CheckinPage{
		id:     id,
		cfg:    cfg,
		source: deps.Source,
		camera: deps.Camera,
		pub:    deps.Publisher,
		logger: logger,
		loop:   utils.NewEventLoop(pageQueueSize),
	}

	p.tracker = NewGeofenceTracker(deps.Geometry, logger)
	p.tracker.Initialize(deps.Zone)
	p.tracker.Subscribe(p)
	p.mapView = NewMapView(deps.Zone, deps.Engines, cfg.MapStyle, cfg.Zoom, logger)
	p.capture = NewCaptureSession(p.tracker, logger)
	p.snapshot = p.viewState()

	return p
}

// ID returns the page session id.
func (p *CheckinPage) ID() string {
	return p.id
}

// Do queues task on the page loop.
func (p *CheckinPage) Do(task func()) bool {
	return p.loop.Submit(task)
}

// Flush waits for queued work to finish.
func (p *CheckinPage) Flush() {
	p.loop.Flush()
}

// Mount draws the map. Position sampling starts once the map has loaded.
func (p *CheckinPage) Mount() {
	p.Do(p.mount)
}

// Unmount releases the map, the user marker and the position watch.
func (p *CheckinPage) Unmount() {
	p.Do(p.unmount)
}

// Close unmounts the page and stops its loop.
func (p *CheckinPage) Close() {
	p.Do(p.unmount)
	p.loop.Shutdown()
}

// RequestCapture opens the camera when the user is in range.
func (p *CheckinPage) RequestCapture() {
	p.Do(func() {
		if p.capture.RequestCapture() {
			p.syncCamera()
		}
		p.publish()
	})
}

// Retake discards the preview and opens the camera again.
func (p *CheckinPage) Retake() {
	p.Do(func() {
		if p.capture.Retake() {
			p.syncCamera()
		}
		p.publish()
	})
}

// State returns the last published view state. Safe from any goroutine.
func (p *CheckinPage) State() models.ViewState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

func (p *CheckinPage) mount() {
	if p.mounted || p.tornDown {
		return
	}
	if err := p.mapView.Mount(p.cfg.Container, p.startLocation); err != nil {
		p.logger.Error().Err(err).Msg("Failed to mount map")
		return
	}
	p.mounted = true
	p.publish()
}

func (p *CheckinPage) startLocation() {
	if p.tornDown || p.watching {
		return
	}
	if !p.source.Available() {
		p.logger.Warn().Msg("Geolocation is not available")
		p.tracker.OnPositionError(constants.ErrGeolocationMissing)
		return
	}

	p.source.GetCurrentPosition(p.onFix, func(err *location.PositionError) {
		p.Do(func() {
			p.logger.Warn().Str("code", err.Code.String()).Str("reason", err.Message).Msg("Failed to get current position")
			p.tracker.OnPositionError(constants.ErrGeolocationFailed)
		})
	}, p.cfg.Options)

	p.watchID = p.source.WatchPosition(p.onFix, func(err *location.PositionError) {
		p.logger.Warn().Str("code", err.Code.String()).Str("reason", err.Message).Msg("Position watch failed")
	}, p.cfg.Options)
	p.watching = true
}

func (p *CheckinPage) onFix(loc location.Location) {
	p.Do(func() {
		p.tracker.OnPositionUpdate(models.Position{Longitude: loc.Longitude, Latitude: loc.Latitude})
	})
}

func (p *CheckinPage) unmount() {
	if p.tornDown {
		return
	}
	p.tornDown = true

	p.mapView.Unmount()
	if p.watching {
		p.source.ClearWatch(p.watchID)
		p.watching = false
	}
	if p.cameraOpen {
		p.camera.Close()
		p.cameraOpen = false
	}
	p.logger.Info().Msg("Check-in page torn down")
}

// PositionChanged mirrors a new fix on the map.
func (p *CheckinPage) PositionChanged(pos models.Position, inRange bool) {
	p.mapView.OnUserPositionChanged(pos, inRange)
	p.publish()
}

// ErrorChanged republishes the warning line.
func (p *CheckinPage) ErrorChanged(string) {
	p.publish()
}

func (p *CheckinPage) onCaptured(image string) {
	p.cameraOpen = false
	if !p.capture.OnCaptured(image) {
		return
	}
	if err := p.pub.Send(MsgPreview, models.Preview{
		Image:   p.capture.Image(),
		Caption: constants.PreviewCaption,
		Retake:  constants.RetakeLabel,
	}); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to publish preview")
	}
	p.publish()
}

func (p *CheckinPage) onCameraClosed() {
	p.cameraOpen = false
	if p.capture.OnCancelled() {
		p.publish()
	}
}

// syncCamera opens the camera while capturing and closes it otherwise.
func (p *CheckinPage) syncCamera() {
	want := p.capture.State() == constants.CaptureCapturing && !p.tornDown
	switch {
	case want && !p.cameraOpen:
		p.cameraOpen = true
		p.camera.Open(p.onCameraClosed, p.onCaptured)
	case !want && p.cameraOpen:
		p.cameraOpen = false
		p.camera.Close()
	}
}

func (p *CheckinPage) viewState() models.ViewState {
	geo := p.tracker.State()
	vs := models.ViewState{
		SessionID:     p.id,
		InRange:       geo.InRange,
		ButtonEnabled: geo.InRange,
		ButtonLabel:   constants.ButtonLabelOutOfRange,
		Status:        constants.StatusOutOfRange,
		Warning:       geo.Error,
		Capture:       p.capture.State(),
		HasPreview:    p.capture.State() == constants.CapturePreviewing,
	}
	if geo.InRange {
		vs.ButtonLabel = constants.ButtonLabelInRange
		vs.Status = constants.StatusInRange
	}
	if pos, ok := p.tracker.Position(); ok {
		vs.Position = &pos
	}
	return vs
}

func (p *CheckinPage) publish() {
	vs := p.viewState()

	p.mu.Lock()
	p.snapshot = vs
	p.mu.Unlock()

	if err := p.pub.Send(MsgState, vs); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to publish view state")
	}
}
