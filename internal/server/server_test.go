package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/geo-checkin/internal/mocks"
	"github.com/benmeehan/geo-checkin/internal/models"
	"github.com/benmeehan/geo-checkin/internal/server"
	"github.com/benmeehan/geo-checkin/internal/utils"
	"github.com/benmeehan/geo-checkin/internal/ws"
	"github.com/benmeehan/geo-checkin/pkg/location"
	"github.com/benmeehan/geo-checkin/pkg/mapengine"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newHTTPServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	config := utils.DefaultConfig()
	config.Map.AccessToken = "pk.test-token"
	srv := server.NewServer(config, testDeps(), zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func dialPage(t *testing.T, ts *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

// readUntil reads page messages until one of msgType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg envelope
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestServer_IndexCarriesPageSettings(t *testing.T) {
	_, ts := newHTTPServer(t)

	resp, body := get(t, ts.URL+"/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `data-token="pk.test-token"`)
	assert.Contains(t, body, `data-protocol="`+ws.ProtocolVersion+`"`)
	assert.Contains(t, body, `data-lon="135.4959"`)
	assert.Contains(t, body, `id="map"`)
	assert.Contains(t, body, "指定範囲外です")
}

func TestServer_SecurityHeaders(t *testing.T) {
	_, ts := newHTTPServer(t)

	resp, _ := get(t, ts.URL+"/")

	assert.Equal(t, `geolocation=(self "http://localhost:3000"), camera=(self)`, resp.Header.Get("Permissions-Policy"))
	assert.Equal(t, server.ContentSecurityPolicy, resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestPermissionsPolicy_SelfOnly(t *testing.T) {
	assert.Equal(t, "geolocation=(self), camera=(self)", server.PermissionsPolicy(""))
}

func TestServer_StaticAssets(t *testing.T) {
	_, ts := newHTTPServer(t)

	resp, body := get(t, ts.URL+"/static/app.js")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "geo.watch")
}

func TestServer_Health(t *testing.T) {
	_, ts := newHTTPServer(t)

	resp, body := get(t, ts.URL+"/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, body)
}

func TestServer_UnknownSession(t *testing.T) {
	_, ts := newHTTPServer(t)

	resp, _ := get(t, ts.URL+"/api/sessions/nope")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	_, ts := newHTTPServer(t)

	_, resp, err := dialPage(t, ts, http.Header{"Origin": {"https://evil.example"}})

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_PageSessionEndToEnd(t *testing.T) {
	srv, ts := newHTTPServer(t)
	conn, _, err := dialPage(t, ts, http.Header{"Origin": {"http://localhost:3000"}})
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": server.MsgHello,
		"data": map[string]any{"protocol": ws.ProtocolVersion, "geolocation": true},
	}))

	var welcome struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(readUntil(t, conn, server.MsgWelcome).Data, &welcome))
	require.NotEmpty(t, welcome.SessionID)
	readUntil(t, conn, mapengine.CmdCreate)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": server.MsgMapLoaded}))
	var watch location.GeoCommand
	require.NoError(t, json.Unmarshal(readUntil(t, conn, location.OpWatchPosition).Data, &watch))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": server.MsgGeoPosition,
		"data": map[string]any{"request": watch.Request, "longitude": 135.4959, "latitude": 34.7024},
	}))
	for {
		var state models.ViewState
		require.NoError(t, json.Unmarshal(readUntil(t, conn, "state").Data, &state))
		if state.InRange {
			break
		}
	}

	assert.Equal(t, 1, srv.SessionCount())
	resp, body := get(t, ts.URL+"/api/sessions/"+welcome.SessionID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var state models.ViewState
	require.NoError(t, json.Unmarshal([]byte(body), &state))
	assert.True(t, state.InRange)
	assert.True(t, state.ButtonEnabled)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.SessionCount() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestServer_StartStop(t *testing.T) {
	config := utils.DefaultConfig()
	config.Server.Addr = "127.0.0.1:0"
	srv := server.NewServer(config, testDeps(), zerolog.Nop())

	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start())

	resp, body := get(t, "http://"+srv.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"ok"`)

	require.NoError(t, srv.Stop())
	assert.Error(t, srv.Stop())
}

func TestServer_StopWaitsForPageTeardown(t *testing.T) {
	config := utils.DefaultConfig()
	config.Server.Addr = "127.0.0.1:0"
	deps := testDeps()
	shared := location.NewPushSource(&mocks.RecordingSink{})
	shared.SetAvailable(true)
	deps.Shared = shared
	srv := server.NewServer(config, deps, zerolog.Nop())
	require.NoError(t, srv.Start())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": server.MsgHello,
		"data": map[string]any{"protocol": ws.ProtocolVersion, "geolocation": false},
	}))
	readUntil(t, conn, mapengine.CmdCreate)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": server.MsgMapLoaded}))
	require.Eventually(t, func() bool { return shared.Pending() == 2 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Stop())

	// Only the unanswered one-shot request is left; the watch was cleared before Stop returned.
	assert.Equal(t, 1, shared.Pending())
	assert.Equal(t, 0, srv.SessionCount())
}
