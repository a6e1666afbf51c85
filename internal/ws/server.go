package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/pixelclock/internal/color"
	diag "github.com/coreman2200/pixelclock/internal/diagnostics"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/scheduler"
	"github.com/coreman2200/pixelclock/internal/wiring"
)

// Controller is the part of the scheduler the command plane drives.
type Controller interface {
	SetAnimation(k render.Kind)
	SetBrightness(b uint8, limit time.Duration)
	SetColor(c color.Color)
	ResetThermal()
	Resize(rows, cols int) bool
	HandleEvent(e scheduler.Event)
	Status() scheduler.Status
	Diagnostics() []diag.Diagnostic
}

// Server is the websocket command plane. It also implements led.Driver so
// it can sit in the output fan-out and stream frames to viewers.
//
// Save persists the current settings and Tests runs wiring tests; either
// may be nil to disable the matching command. FrameInterval is the
// minimum spacing of streamed frames.
type Server struct {
	ctl    Controller
	mapper *layout.Mapper

	Save          func(st scheduler.Status) (bool, error)
	Tests         *wiring.Overlay
	FrameInterval time.Duration

	up        websocket.Upgrader
	startTime time.Time

	mu          sync.Mutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	frameID     uint64
	lastFrame   time.Time
	shown       int // pixel count of the last frame, to resend topology
	lastDiag    map[string]bool
}

func New(ctl Controller, m *layout.Mapper) *Server {
	return &Server{
		ctl:           ctl,
		mapper:        m,
		FrameInterval: 50 * time.Millisecond,
		up:            websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		startTime:     time.Now(),
		clients:       map[*websocket.Conn]bool{},
		diagClients:   map[*websocket.Conn]bool{},
		lastDiag:      map[string]bool{},
		shown:         m.Count(),
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/control", s.HandleControlWS)
	mux.HandleFunc("/ws/frames", s.HandleFramesWS)
	mux.HandleFunc("/ws/diag", s.HandleDiagWS)
	mux.HandleFunc("/healthz", s.HandleHealth)
	return mux
}

// Command is one request on /ws/control.
type Command struct {
	Cmd     string `json:"cmd"`
	Kind    string `json:"kind,omitempty"`
	Value   *int   `json:"value,omitempty"`
	LimitMS int    `json:"limit_ms,omitempty"`
	Color   string `json:"color,omitempty"`
	Event   string `json:"event,omitempty"`
	Test    string `json:"test,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Cols    int    `json:"cols,omitempty"`
}

type Reply struct {
	OK     bool              `json:"ok"`
	Error  string            `json:"error,omitempty"`
	Saved  *bool             `json:"saved,omitempty"`
	Status *scheduler.Status `json:"status,omitempty"`
}

// Apply validates c and stages it on the controller. Out of range values
// are rejected rather than clamped.
func (s *Server) Apply(c Command) Reply {
	var saved *bool
	switch c.Cmd {
	case "setAnimation":
		k, err := render.ParseKind(c.Kind)
		if err != nil {
			return fail(err)
		}
		s.ctl.SetAnimation(k)
	case "setBrightness":
		if c.Value == nil || *c.Value < 0 || *c.Value > 255 {
			return fail(errors.New("value must be within 0..255"))
		}
		if c.LimitMS < 0 {
			return fail(errors.New("limit_ms must not be negative"))
		}
		s.ctl.SetBrightness(uint8(*c.Value), time.Duration(c.LimitMS)*time.Millisecond)
	case "setColor":
		s.ctl.SetColor(color.Parse(c.Color))
	case "resetThermal":
		s.ctl.ResetThermal()
	case "resize":
		if !s.ctl.Resize(c.Rows, c.Cols) {
			return fail(errors.Errorf("layout %dx%d does not fit the chain", c.Rows, c.Cols))
		}
	case "next":
		s.ctl.HandleEvent(scheduler.NextAnimation)
	case "toggle":
		s.ctl.HandleEvent(scheduler.Toggle)
	case "event":
		e, err := scheduler.ParseEvent(c.Event)
		if err != nil {
			return fail(err)
		}
		s.ctl.HandleEvent(e)
	case "save":
		if s.Save == nil {
			return fail(errors.New("saving is disabled"))
		}
		ok, err := s.Save(s.ctl.Status())
		if err != nil {
			log.Warn().Err(err).Msg("save settings")
			return fail(err)
		}
		saved = &ok
	case "runTest":
		if s.Tests == nil {
			return fail(errors.New("wiring tests are disabled"))
		}
		k, err := wiring.ParseKind(c.Test)
		if err != nil {
			s.pushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: "TEST.UNKNOWN", Summary: "Unknown test name",
				Evidence: map[string]any{"name": c.Test},
			})
			return fail(err)
		}
		_ = s.Tests.Start(k)
		s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: "TEST.RUNNING", Summary: "Running test", Detail: string(k)})
	case "status":
	default:
		return fail(errors.Errorf("unknown command %q", c.Cmd))
	}
	st := s.ctl.Status()
	return Reply{OK: true, Saved: saved, Status: &st}
}

func fail(err error) Reply { return Reply{Error: err.Error()} }

// TestDone is meant as the wiring overlay's OnDone hook.
func (s *Server) TestDone(k wiring.Kind) {
	s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: "TEST.DONE", Summary: "Test complete", Detail: string(k)})
}

func (s *Server) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var c Command
		var rep Reply
		if err := json.Unmarshal(data, &c); err != nil {
			rep = fail(errors.Wrap(err, "decode command"))
		} else {
			rep = s.Apply(c)
		}
		log.Debug().Str("cmd", c.Cmd).Bool("ok", rep.OK).Str("error", rep.Error).Msg("control")
		if err := conn.WriteJSON(rep); err != nil {
			return
		}
	}
}

// drain discards client messages until the connection drops, then
// removes it from set.
func (s *Server) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		s.mu.Lock()
		delete(set, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// topology goes out before the connection is shared with Show
	if err := conn.WriteJSON(s.topology()); err != nil {
		conn.Close()
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	go s.drain(conn, s.clients)
}

func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	for _, d := range s.ctl.Diagnostics() {
		conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		_ = conn.WriteJSON(d)
	}
	s.diagClients[conn] = true
	s.mu.Unlock()
	go s.drain(conn, s.diagClients)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.ctl.Status()
	resp := map[string]any{
		"frames":     st.Frames,
		"uptime_s":   time.Since(s.startTime).Seconds(),
		"rows":       s.mapper.Rows(),
		"cols":       s.mapper.Cols(),
		"kind":       st.Kind,
		"brightness": st.Brightness,
		"locked":     st.Locked,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) topology() map[string]any {
	t := s.mapper.Transform()
	return map[string]any{
		"type":      "topology",
		"rows":      t.Rows,
		"cols":      t.Cols,
		"transform": t,
	}
}

type frame struct {
	T          int64  `json:"t"`
	FrameID    uint64 `json:"frame_id"`
	Brightness uint8  `json:"brightness"`
	RGB        []byte `json:"rgb"`
}

// Show streams the frame to viewers, at most once per FrameInterval.
// Pixels are sent unscaled; viewers apply brightness.
func (s *Server) Show(px []color.Color, brightness uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++
	now := time.Now()
	if len(s.clients) == 0 || now.Sub(s.lastFrame) < s.FrameInterval {
		return nil
	}
	s.lastFrame = now
	var top []byte
	if len(px) != s.shown {
		s.shown = len(px)
		top, _ = json.Marshal(s.topology())
	}
	rgb := make([]byte, 0, len(px)*3)
	for _, c := range px {
		rgb = append(rgb, c.R(), c.G(), c.B())
	}
	b, _ := json.Marshal(frame{T: now.UnixNano(), FrameID: s.frameID, Brightness: brightness, RGB: rgb})
	for c := range s.clients {
		c.SetWriteDeadline(now.Add(200 * time.Millisecond))
		if top != nil {
			if err := c.WriteMessage(websocket.TextMessage, top); err != nil {
				log.Debug().Err(err).Msg("write topology")
			}
		}
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
	return nil
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.Close()
	}
	for c := range s.diagClients {
		c.Close()
	}
	return nil
}

// PollDiagnostics pushes diagnostics that appeared since the last call
// and a cleared notice for those that went away.
func (s *Server) PollDiagnostics() {
	cur := map[string]bool{}
	for _, d := range s.ctl.Diagnostics() {
		cur[d.Code] = true
		s.mu.Lock()
		seen := s.lastDiag[d.Code]
		s.mu.Unlock()
		if !seen {
			s.pushDiag(d)
		}
	}
	s.mu.Lock()
	prev := s.lastDiag
	s.lastDiag = cur
	s.mu.Unlock()
	for code := range prev {
		if !cur[code] {
			s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: code + ".CLEARED", Summary: "Condition cleared"})
		}
	}
}

func (s *Server) pushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.diagClients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
