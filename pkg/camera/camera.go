// Package camera models the capture component of the check-in page.
package camera

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Command types emitted by the remote camera.
const (
	CmdOpen  = "camera.open"
	CmdClose = "camera.close"
)

// MaxImageBytes bounds the decoded size of a captured image.
const MaxImageBytes = 10 << 20

var (
	// ErrNotDataURL is returned for values that are not base64 data URLs.
	ErrNotDataURL = errors.New("capture is not a base64 data URL")
	// ErrNotImage is returned for data URLs whose media type is not an image.
	ErrNotImage = errors.New("capture is not an image")
	// ErrImageTooLarge is returned when the decoded image exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("capture exceeds size limit")
)

// Component is the capture UI. While open it owns the device camera and
// reports exactly one of onClose or onCapture for the open session.
type Component interface {
	Open(onClose func(), onCapture func(dataURL string))
	Close()
}

// Sink delivers commands to the browser.
type Sink interface {
	Send(msgType string, data any) error
}

// Remote is a Component rendered by the browser.
type Remote struct {
	sink      Sink
	open      bool
	onClose   func()
	onCapture func(string)
}

// NewRemote creates a Remote camera.
func NewRemote(sink Sink) *Remote {
	return &Remote{sink: sink}
}

// Open shows the capture UI. Opening an open camera replaces its callbacks.
func (r *Remote) Open(onClose func(), onCapture func(dataURL string)) {
	r.onClose = onClose
	r.onCapture = onCapture
	if r.open {
		return
	}
	r.open = true
	_ = r.sink.Send(CmdOpen, struct{}{})
}

// Close hides the capture UI without invoking callbacks.
func (r *Remote) Close() {
	if !r.open {
		return
	}
	r.reset()
	_ = r.sink.Send(CmdClose, struct{}{})
}

// IsOpen reports whether the capture UI is shown.
func (r *Remote) IsOpen() bool {
	return r.open
}

// HandleCaptured completes the open session with an image.
func (r *Remote) HandleCaptured(dataURL string) bool {
	if !r.open {
		return false
	}
	cb := r.onCapture
	r.reset()
	if cb != nil {
		cb(dataURL)
	}
	return true
}

// HandleClosed completes the open session without an image.
func (r *Remote) HandleClosed() bool {
	if !r.open {
		return false
	}
	cb := r.onClose
	r.reset()
	if cb != nil {
		cb()
	}
	return true
}

func (r *Remote) reset() {
	r.open = false
	r.onClose = nil
	r.onCapture = nil
}

// ParseDataURL validates a base64 image data URL and returns its media type and bytes.
func ParseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", nil, ErrNotImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return "", nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	return mediaType, data, nil
}
