package services_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/internal/services"
)

const testImage = "data:image/jpeg;base64,/9j/4AAQ"

type stubGate struct {
	inRange bool
}

func (g *stubGate) InRange() bool {
	return g.inRange
}

func TestCaptureSession_RequiresRange(t *testing.T) {
	gate := &stubGate{}
	session := services.NewCaptureSession(gate, zerolog.Nop())

	assert.False(t, session.RequestCapture())
	assert.Equal(t, constants.CaptureIdle, session.State())

	gate.inRange = true
	assert.True(t, session.RequestCapture())
	assert.Equal(t, constants.CaptureCapturing, session.State())
}

func TestCaptureSession_IgnoresRequestWhileCapturing(t *testing.T) {
	session := services.NewCaptureSession(&stubGate{inRange: true}, zerolog.Nop())

	assert.True(t, session.RequestCapture())
	assert.False(t, session.RequestCapture())
	assert.Equal(t, constants.CaptureCapturing, session.State())
}

func TestCaptureSession_CaptureMovesToPreview(t *testing.T) {
	session := services.NewCaptureSession(&stubGate{inRange: true}, zerolog.Nop())

	assert.False(t, session.OnCaptured(testImage))

	session.RequestCapture()
	assert.True(t, session.OnCaptured(testImage))

	assert.Equal(t, constants.CapturePreviewing, session.State())
	assert.Equal(t, testImage, session.Image())
}

func TestCaptureSession_CancelReturnsToIdle(t *testing.T) {
	session := services.NewCaptureSession(&stubGate{inRange: true}, zerolog.Nop())

	assert.False(t, session.OnCancelled())

	session.RequestCapture()
	assert.True(t, session.OnCancelled())
	assert.Equal(t, constants.CaptureIdle, session.State())
	assert.Empty(t, session.Image())
}

func TestCaptureSession_RetakeSkipsRangeCheck(t *testing.T) {
	gate := &stubGate{inRange: true}
	session := services.NewCaptureSession(gate, zerolog.Nop())

	session.RequestCapture()
	session.OnCaptured(testImage)

	// The user walked out of the zone after taking the photo.
	gate.inRange = false

	assert.True(t, session.Retake())
	assert.Equal(t, constants.CaptureCapturing, session.State())
	assert.Empty(t, session.Image())
}

func TestCaptureSession_RetakeOnlyFromPreview(t *testing.T) {
	session := services.NewCaptureSession(&stubGate{inRange: true}, zerolog.Nop())

	assert.False(t, session.Retake())

	session.RequestCapture()
	assert.False(t, session.Retake())
	assert.Equal(t, constants.CaptureCapturing, session.State())
}

func TestCaptureSession_RequestFromPreviewIsGated(t *testing.T) {
	gate := &stubGate{inRange: true}
	session := services.NewCaptureSession(gate, zerolog.Nop())
	session.RequestCapture()
	session.OnCaptured(testImage)

	gate.inRange = false
	assert.False(t, session.RequestCapture())
	assert.Equal(t, constants.CapturePreviewing, session.State())
	assert.Equal(t, testImage, session.Image())

	gate.inRange = true
	assert.True(t, session.RequestCapture())
	assert.Equal(t, constants.CaptureCapturing, session.State())
	assert.Empty(t, session.Image())
}
