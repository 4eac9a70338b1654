package services

import (
	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/constants"
)

// Gate answers whether a capture may start right now.
type Gate interface {
	InRange() bool
}

// CaptureSession is the idle -> capturing -> previewing flow. Only the
// idle -> capturing step consults the gate; a retake from preview does not.
type CaptureSession struct {
	gate   Gate
	logger zerolog.Logger

	state constants.CaptureState
	image string
}

// NewCaptureSession creates an idle session.
func NewCaptureSession(gate Gate, logger zerolog.Logger) *CaptureSession {
	return &CaptureSession{
		gate:   gate,
		logger: logger,
		state:  constants.CaptureIdle,
	}
}

// RequestCapture starts capturing when in range. It is honored from idle and
// from preview, where it discards the previewed image like a retake.
func (c *CaptureSession) RequestCapture() bool {
	if c.state == constants.CaptureCapturing {
		return false
	}
	if !c.gate.InRange() {
		c.logger.Debug().Msg("Capture requested outside the destination zone")
		return false
	}
	c.image = ""
	c.state = constants.CaptureCapturing
	c.logger.Info().Msg("Capture started")
	return true
}

// OnCaptured stores image and moves to preview.
func (c *CaptureSession) OnCaptured(image string) bool {
	if c.state != constants.CaptureCapturing {
		return false
	}
	c.image = image
	c.state = constants.CapturePreviewing
	c.logger.Info().Int("image_bytes", len(image)).Msg("Capture completed")
	return true
}

// OnCancelled abandons capturing.
func (c *CaptureSession) OnCancelled() bool {
	if c.state != constants.CaptureCapturing {
		return false
	}
	c.image = ""
	c.state = constants.CaptureIdle
	c.logger.Info().Msg("Capture cancelled")
	return true
}

// Retake discards the preview and captures again without consulting the gate.
func (c *CaptureSession) Retake() bool {
	if c.state != constants.CapturePreviewing {
		return false
	}
	c.image = ""
	c.state = constants.CaptureCapturing
	c.logger.Info().Msg("Capture retake started")
	return true
}

// State returns the current state.
func (c *CaptureSession) State() constants.CaptureState {
	return c.state
}

// Image returns the previewed image, empty unless previewing.
func (c *CaptureSession) Image() string {
	return c.image
}
