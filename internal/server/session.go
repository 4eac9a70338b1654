package server

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/services"
	"github.com/benmeehan/geo-checkin/internal/ws"
	"github.com/benmeehan/geo-checkin/pkg/camera"
	"github.com/benmeehan/geo-checkin/pkg/location"
	"github.com/benmeehan/geo-checkin/pkg/mapengine"
)

// Page to server messages.
const (
	MsgHello          = "hello"
	MsgMapLoaded      = "map.loaded"
	MsgGeoPosition    = "geo.position"
	MsgGeoError       = "geo.error"
	MsgCaptureRequest = "capture.request"
	MsgCaptureRetake  = "capture.retake"
	MsgCameraCaptured = "camera.captured"
	MsgCameraClosed   = "camera.closed"
)

// Server to page messages not owned by a component.
const (
	MsgWelcome = "welcome"
	MsgError   = "error"
)

// Sender delivers messages to one page.
type Sender interface {
	Send(msgType string, data any) error
}

type helloData struct {
	Protocol    string `json:"protocol"`
	Geolocation bool   `json:"geolocation"`
}

type welcomeData struct {
	SessionID string `json:"session_id"`
	Protocol  string `json:"protocol"`
}

type errorData struct {
	Message string `json:"message"`
}

type positionData struct {
	Request   uint64   `json:"request"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"` // milliseconds since epoch
}

type positionErrorData struct {
	Request uint64 `json:"request"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type capturedData struct {
	Image string `json:"image"`
}

// Session binds one websocket to one check-in page.
type Session struct {
	id     string
	sender Sender
	page   *services.CheckinPage
	maps   *mapengine.RemoteMaps
	camera *camera.Remote
	push   *location.PushSource // nil when a device source is shared
	logger zerolog.Logger

	greeted bool
}

// SessionDeps are the shared pieces a session is built from.
type SessionDeps struct {
	Page   services.PageDeps
	Config services.PageConfig
	// Shared is the device-level source; nil means positions come from the page.
	Shared location.Source
}

// NewSession builds the page for a connected browser.
func NewSession(id string, sender Sender, deps SessionDeps, logger zerolog.Logger) *Session {
	s := &Session{
		id:     id,
		sender: sender,
		maps:   mapengine.NewRemoteMaps(sender),
		camera: camera.NewRemote(sender),
		logger: logger.With().Str("session_id", id).Logger(),
	}

	pageDeps := deps.Page
	pageDeps.Engines = s.maps.New
	pageDeps.Camera = s.camera
	pageDeps.Publisher = sender
	if deps.Shared != nil {
		pageDeps.Source = deps.Shared
	} else {
		s.push = location.NewPushSource(sender)
		pageDeps.Source = s.push
	}

	s.page = services.NewCheckinPage(id, pageDeps, deps.Config, logger)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Page returns the session's page.
func (s *Session) Page() *services.CheckinPage {
	return s.page
}

// Handle dispatches one page message. It is called from the read goroutine.
func (s *Session) Handle(msg ws.Message) {
	if !s.greeted && msg.Type != MsgHello {
		s.logger.Warn().Str("type", msg.Type).Msg("Message before hello")
		return
	}

	switch msg.Type {
	case MsgHello:
		s.handleHello(msg.Data)
	case MsgMapLoaded:
		s.page.Do(s.maps.HandleLoaded)
	case MsgGeoPosition:
		var d positionData
		if !s.decode(msg, &d) || s.push == nil {
			return
		}
		if d.Longitude == nil || d.Latitude == nil {
			s.logger.Warn().Uint64("request", d.Request).Msg("Dropping position without coordinates")
			return
		}
		loc := location.Location{
			Longitude: *d.Longitude,
			Latitude:  *d.Latitude,
			Accuracy:  d.Accuracy,
			Timestamp: time.UnixMilli(d.Timestamp),
		}
		if d.Timestamp == 0 {
			loc.Timestamp = time.Now()
		}
		if !s.push.Deliver(d.Request, loc) {
			s.logger.Debug().Uint64("request", d.Request).Msg("Position for unknown request")
		}
	case MsgGeoError:
		var d positionErrorData
		if !s.decode(msg, &d) || s.push == nil {
			return
		}
		s.push.Fail(d.Request, &location.PositionError{Code: location.ErrorCode(d.Code), Message: d.Message})
	case MsgCaptureRequest:
		s.page.RequestCapture()
	case MsgCaptureRetake:
		s.page.Retake()
	case MsgCameraCaptured:
		var d capturedData
		if !s.decode(msg, &d) {
			return
		}
		if _, _, err := camera.ParseDataURL(d.Image); err != nil {
			s.logger.Warn().Err(err).Msg("Rejected captured image")
			s.sendError(err.Error())
			s.page.Do(func() { s.camera.HandleClosed() })
			return
		}
		s.page.Do(func() { s.camera.HandleCaptured(d.Image) })
	case MsgCameraClosed:
		s.page.Do(func() { s.camera.HandleClosed() })
	default:
		s.logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown page message")
	}
}

func (s *Session) handleHello(raw json.RawMessage) {
	if s.greeted {
		return
	}
	var d helloData
	if err := json.Unmarshal(raw, &d); err != nil {
		s.sendError("malformed hello")
		return
	}
	if err := ws.CheckProtocol(d.Protocol); err != nil {
		s.logger.Warn().Err(err).Msg("Rejected page script")
		s.sendError(err.Error())
		return
	}
	s.greeted = true

	if s.push != nil {
		s.push.SetAvailable(d.Geolocation)
	}
	if err := s.sender.Send(MsgWelcome, welcomeData{SessionID: s.id, Protocol: ws.ProtocolVersion}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to greet page")
	}
	s.page.Mount()
}

// Close tears the page down.
func (s *Session) Close() {
	s.page.Close()
}

func (s *Session) decode(msg ws.Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		s.logger.Warn().Err(err).Str("type", msg.Type).Msg("Malformed page message")
		return false
	}
	return true
}

func (s *Session) sendError(message string) {
	_ = s.sender.Send(MsgError, errorData{Message: message})
}
