package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"emg-monitor.klederson.com/internal/emg"
	"emg-monitor.klederson.com/internal/telemetry"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	sched *emg.Scheduler
	http  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	sched := emg.NewScheduler(emg.WithObserver(telemetry.NewMetrics(reg)))
	t.Cleanup(sched.Close)

	srv := New(sched, zerolog.Nop(), WithGatherer(reg), WithInterval(20*time.Millisecond))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{sched: sched, http: ts}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads messages until one of the given type arrives.
func next(t *testing.T, conn *websocket.Conn, typ string, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &head))
		if head.Type == typ {
			require.NoError(t, json.Unmarshal(data, v))
			return
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, cmd string) Reply {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(cmd)))
	var r Reply
	next(t, conn, "reply", &r)
	return r
}

func TestWebSocketStatusPush(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	var st Status
	next(t, conn, "status", &st)
	assert.Equal(t, "idle", st.State)
	assert.Empty(t, st.Session)
	assert.Nil(t, st.Calibration.BaselineRMS)
	assert.Equal(t, 1.0, st.Calibration.ObservedMinMF)
	assert.Equal(t, 1.0, st.Params.FatigueIndex)
}

func TestWebSocketCommands(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	r := send(t, conn, `{"type":"start"}`)
	assert.True(t, r.OK)
	assert.True(t, r.Changed)
	assert.Equal(t, emg.Streaming, f.sched.State())

	r = send(t, conn, `{"type":"start"}`)
	assert.True(t, r.OK)
	assert.False(t, r.Changed, "second start is a no-op")

	r = send(t, conn, `{"type":"calibrate","anchor":"max_rms"}`)
	assert.True(t, r.OK)
	assert.False(t, r.Changed, "empty buffer records nothing")
	require.NotNil(t, r.Value)
	assert.Equal(t, 0.0, *r.Value)

	for i := 0; i < 128; i++ {
		if i%2 == 0 {
			f.sched.Ingest(0.4)
		} else {
			f.sched.Ingest(-0.4)
		}
	}
	r = send(t, conn, `{"type":"calibrate","anchor":"max_rms"}`)
	assert.True(t, r.Changed)
	assert.InDelta(t, 0.4, *r.Value, 1e-12)
	assert.True(t, f.sched.Calibration().MaxRMS.Valid)

	var st Status
	deadline := time.Now().Add(3 * time.Second)
	for st.Calibration.MaxRMS == nil || st.Seq == 0 {
		require.True(t, time.Now().Before(deadline), "no status with calibration")
		next(t, conn, "status", &st)
	}
	assert.Equal(t, "streaming", st.State)
	assert.NotEmpty(t, st.Session)
	assert.NotEmpty(t, st.Chart)

	r = send(t, conn, `{"type":"params","params":{"fatigueIndex":1.5,"flSensitivity":9}}`)
	assert.True(t, r.OK)
	require.NotNil(t, r.Params)
	assert.Equal(t, 1.5, r.Params.FatigueIndex)
	assert.Equal(t, 2.0, r.Params.FLSensitivity, "clamped")
	assert.Equal(t, 1.0, r.Params.StrengthIndex, "untouched")

	r = send(t, conn, `{"type":"reset"}`)
	assert.True(t, r.OK)
	assert.Equal(t, 0, f.sched.Len())
	assert.False(t, f.sched.Calibration().MaxRMS.Valid)

	r = send(t, conn, `{"type":"stop"}`)
	assert.True(t, r.Changed)
	assert.Equal(t, emg.Idle, f.sched.State())
}

func TestWebSocketRejectsBadCommands(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	tests := []struct {
		cmd  string
		want string
	}{
		{`{"type":"fly"}`, "unknown command fly"},
		{`{"type":"calibrate","anchor":"peak"}`, "unknown anchor peak"},
		{`{"type":"params"}`, "missing params"},
	}
	for _, tt := range tests {
		r := send(t, conn, tt.cmd)
		assert.False(t, r.OK, tt.cmd)
		assert.Equal(t, tt.want, r.Error)
	}
	assert.Equal(t, emg.Idle, f.sched.State())
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	f.sched.Start()

	resp, err := http.Get(f.http.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "streaming", st.State)

	post, err := http.Post(f.http.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.sched.Start()
	f.sched.Ingest(0.3)

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "emg_samples_ingested_total 1")
	assert.Contains(t, string(body), "emg_streaming 1")
}

func TestDecimate(t *testing.T) {
	xs := make([]float64, 1000)
	for i := range xs {
		xs[i] = float64(i)
	}
	out := decimate(xs, 10)
	require.Len(t, out, 10)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 900.0, out[9])

	short := []float64{1, 2}
	assert.Equal(t, short, decimate(short, 10))
}
