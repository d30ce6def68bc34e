package server

import (
	"encoding/json"
	"net/http"
	"time"

	"emg-monitor.klederson.com/internal/config"
	"emg-monitor.klederson.com/internal/emg"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// DefaultInterval is the period between status pushes on a websocket.
const DefaultInterval = 200 * time.Millisecond

// chartPoints bounds the number of samples sent per status message.
const chartPoints = 256

// Controller is the part of the scheduler the server drives.
type Controller interface {
	Start() bool
	Stop() bool
	Reset()
	State() emg.State
	SessionID() string
	Frame() emg.Frame
	Latest() emg.Reading
	Calibration() emg.Calibration
	Calibrate(kind emg.AnchorKind) (float64, bool)
	Params() config.Params
	UpdateParams(fn func(*config.Params)) config.Params
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Server exposes the live feed and command channel over HTTP.
type Server struct {
	ctrl     Controller
	logger   zerolog.Logger
	gatherer prometheus.Gatherer
	interval time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithInterval sets the status push period.
func WithInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New creates a server for ctrl.
func New(ctrl Controller, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		ctrl:     ctrl,
		logger:   logger.With().Str("component", "server").Logger(),
		gatherer: prometheus.DefaultGatherer,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes:
//
//	/ws          live status feed and command channel
//	/api/status  one status snapshot as JSON
//	/metrics     prometheus exposition
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Warn().Err(err).Msg("encode status")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.logger.With().Str("conn", uuid.NewString()).Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("client connected")

	// gorilla connections allow one writer, so replies go through the push loop
	replies := make(chan Reply, 8)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		if err := conn.WriteJSON(s.status()); err != nil {
			return
		}
		for {
			var msg any
			select {
			case <-done:
				return
			case reply := <-replies:
				msg = reply
			case <-ticker.C:
				msg = s.status()
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		reply := s.execute(cmd)
		if !reply.OK {
			log.Debug().Str("command", cmd.Type).Str("error", reply.Error).Msg("command rejected")
		}
		select {
		case replies <- reply:
		case <-writerDone:
		}
	}

	close(done)
	<-writerDone
	log.Info().Msg("client disconnected")
}

// execute applies a command to the controller.
func (s *Server) execute(cmd Command) Reply {
	reply := Reply{Type: "reply", Command: cmd.Type, OK: true}

	switch cmd.Type {
	case "start":
		reply.Changed = s.ctrl.Start()
	case "stop":
		reply.Changed = s.ctrl.Stop()
	case "reset":
		s.ctrl.Reset()
		reply.Changed = true
	case "calibrate":
		kind := emg.AnchorKind(cmd.Anchor)
		if !kind.Valid() {
			return reply.fail("unknown anchor " + cmd.Anchor)
		}
		v, applied := s.ctrl.Calibrate(kind)
		reply.Value = &v
		reply.Changed = applied
	case "params":
		if cmd.Params == nil {
			return reply.fail("missing params")
		}
		p := s.ctrl.UpdateParams(cmd.Params.apply)
		reply.Params = &p
		reply.Changed = true
	default:
		return reply.fail("unknown command " + cmd.Type)
	}
	return reply
}

func (s *Server) status() Status {
	f := s.ctrl.Frame()
	return Status{
		Type:        "status",
		State:       s.ctrl.State().String(),
		Session:     s.ctrl.SessionID(),
		Seq:         f.Seq,
		Reading:     s.ctrl.Latest(),
		Calibration: newCalibrationView(s.ctrl.Calibration()),
		Params:      s.ctrl.Params(),
		Chart:       decimate(f.Samples, chartPoints),
	}
}

// decimate keeps at most n evenly spaced samples, newest first.
func decimate(samples []float64, n int) []float64 {
	if len(samples) <= n {
		return samples
	}
	out := make([]float64, n)
	step := float64(len(samples)) / float64(n)
	for i := range out {
		out[i] = samples[int(float64(i)*step)]
	}
	return out
}
