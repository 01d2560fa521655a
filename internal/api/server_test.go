package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arctic.bridge/internal/bridge"
	"github.com/banshee-data/arctic.bridge/internal/color"
	"github.com/banshee-data/arctic.bridge/internal/network"
	"github.com/banshee-data/arctic.bridge/internal/seriallink"
	"github.com/banshee-data/arctic.bridge/internal/testutil"
)

func newTestServer() *Server {
	return NewServer(DeviceInfo{Name: "Desk Fans", UDPPort: 4048, LEDCount: 4})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := testutil.NewTestRecorder()
	h.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, path))
	return rec
}

func TestHandleJSON_Routes(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	mux := s.ServeMux()

	tests := []struct {
		path string
		want any
	}{
		{"/json/info", s.info},
		{"/json/info/", s.info},
		{"/json/state", s.state},
		{"/json/state/", s.state},
		{"/json", Full{State: s.state, Info: s.info}},
		{"/json/", Full{State: s.state, Info: s.info}},
		{"/", s.info},
		{"/presets.json", s.info},
		{"/win", s.info},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, mux, tt.path)
			testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			want, err := json.Marshal(tt.want)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), rec.Body.String())
		})
	}
}

func TestInfoDocument(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer().ServeMux(), "/json/info")

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, "Desk Fans", got["name"])
	assert.Equal(t, float64(4048), got["udpport"])
	assert.Equal(t, "WLED", got["brand"])
	assert.Equal(t, "0.15.3", got["ver"])
	assert.Equal(t, "esp32", got["arch"])
	assert.Equal(t, true, got["live"])
	leds := got["leds"].(map[string]any)
	assert.Equal(t, float64(4), leds["count"])
	assert.Equal(t, false, leds["rgbw"])
	assert.Equal(t, float64(1), leds["maxseg"])
	assert.Equal(t, []any{1.0, 1.0, 1.0, 1.0, 1.0}, leds["seglc"])
}

func TestStateDocument(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer().ServeMux(), "/json/state")
	assert.JSONEq(t, `{"on":true,"bri":255,"udpn":{"send":false,"recv":true}}`, rec.Body.String())
}

func TestNewInfo_Defaults(t *testing.T) {
	t.Parallel()

	got := NewInfo(DeviceInfo{})
	want := NewInfo(DeviceInfo{Name: "Arctic Bridge", UDPPort: 21324, LEDCount: 4})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewInfo defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleJSON_Methods(t *testing.T) {
	t.Parallel()

	mux := newTestServer().ServeMux()

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodOptions, "/json/state"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNoContent)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodPost, "/json/state"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()

	h := LoggingMiddleware(newTestServer().ServeMux())
	rec := get(t, h, "/json/info")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
}

func TestStatusCodeColor(t *testing.T) {
	t.Parallel()

	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(404), colorBoldRed)
	assert.Contains(t, statusCodeColor(301), colorYellow)
	assert.Equal(t, "100", statusCodeColor(100))
}

type fixedStats network.StatsSnapshot

func (f fixedStats) Snapshot() network.StatsSnapshot { return network.StatsSnapshot(f) }

type fixedBridge bridge.Status

func (f fixedBridge) Status() bridge.Status { return bridge.Status(f) }

// localHostRequest creates a request from loopback, which tsweb requires for
// /debug/ routes.
func localHostRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func TestAttachAdminRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	mux := s.ServeMux()
	s.AttachAdminRoutes(mux, DebugSources{
		Link:   seriallink.NewDisabledLink(4),
		Stats:  fixedStats{Packets: 12, Invalid: 2, Frames: 10},
		Bridge: fixedBridge{Mapping: "RGB->GRB", Positions: 4, Format: "DDP", Wire: color.Triple{G: 254}},
	})

	t.Run("stats", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/stats"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		assert.JSONEq(t, `{"packets":12,"bytes":0,"invalid":2,"frames":10,"dropped":0}`, rec.Body.String())
	})

	t.Run("bridge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/bridge"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		assert.Contains(t, rec.Body.String(), `"mapping":"RGB->GRB"`)
		assert.Contains(t, rec.Body.String(), `"last_format":"DDP"`)
	})

	t.Run("serial", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/serial.json"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		assert.Contains(t, rec.Body.String(), `"state":"disabled"`)
	})

	t.Run("info", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/info"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		assert.Contains(t, rec.Body.String(), `"name":"Desk Fans"`)
	})

	t.Run("rejects post", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, localHostRequest(http.MethodPost, "/debug/stats"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	})

	t.Run("remote clients are refused", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/stats", nil))
		assert.NotEqual(t, http.StatusOK, rec.Code)
	})

	t.Run("wled paths still answer", func(t *testing.T) {
		rec := get(t, mux, "/json/info")
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	})
}
