package camera_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/geo-checkin/internal/mocks"
	"github.com/benmeehan/geo-checkin/pkg/camera"
)

const jpegDataURL = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

func TestRemote_CaptureCompletesSession(t *testing.T) {
	sink := &mocks.RecordingSink{}
	cam := camera.NewRemote(sink)
	var captured []string
	closed := 0

	cam.Open(func() { closed++ }, func(img string) { captured = append(captured, img) })
	assert.True(t, cam.IsOpen())

	assert.True(t, cam.HandleCaptured(jpegDataURL))
	assert.False(t, cam.HandleCaptured(jpegDataURL))
	assert.False(t, cam.HandleClosed())

	assert.Equal(t, []string{jpegDataURL}, captured)
	assert.Equal(t, 0, closed)
	assert.False(t, cam.IsOpen())
	assert.Equal(t, []string{camera.CmdOpen}, sink.Types())
}

func TestRemote_CloseFromPage(t *testing.T) {
	cam := camera.NewRemote(&mocks.RecordingSink{})
	closed := 0

	cam.Open(func() { closed++ }, func(string) { t.Fatal("unexpected capture") })

	assert.True(t, cam.HandleClosed())
	assert.False(t, cam.HandleClosed())
	assert.Equal(t, 1, closed)
}

func TestRemote_CloseFromServerSkipsCallbacks(t *testing.T) {
	sink := &mocks.RecordingSink{}
	cam := camera.NewRemote(sink)

	cam.Open(func() { t.Fatal("unexpected close") }, func(string) { t.Fatal("unexpected capture") })
	cam.Close()
	cam.Close()

	assert.False(t, cam.HandleCaptured(jpegDataURL))
	assert.Equal(t, []string{camera.CmdOpen, camera.CmdClose}, sink.Types())
}

func TestRemote_ReopenReplacesCallbacks(t *testing.T) {
	sink := &mocks.RecordingSink{}
	cam := camera.NewRemote(sink)
	first, second := 0, 0

	cam.Open(func() { first++ }, nil)
	cam.Open(func() { second++ }, nil)
	cam.HandleClosed()

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Len(t, sink.OfType(camera.CmdOpen), 1)
}

func TestParseDataURL(t *testing.T) {
	mediaType, data, err := camera.ParseDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes")))

	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestParseDataURL_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not a data url", "https://example.com/a.jpg", camera.ErrNotDataURL},
		{"no comma", "data:image/png;base64", camera.ErrNotDataURL},
		{"not base64", "data:image/png,raw", camera.ErrNotDataURL},
		{"bad payload", "data:image/png;base64,***", camera.ErrNotDataURL},
		{"not an image", "data:text/plain;base64,aGk=", camera.ErrNotImage},
		{"too large", "data:image/jpeg;base64," + strings.Repeat("A", camera.MaxImageBytes/3*4+8), camera.ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := camera.ParseDataURL(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
