package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/pixelclock/internal/color"
	diag "github.com/coreman2200/pixelclock/internal/diagnostics"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/scheduler"
)

type fakeCtl struct {
	mu    sync.Mutex
	calls []string
	st    scheduler.Status
	diags []diag.Diagnostic
}

func (f *fakeCtl) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeCtl) SetAnimation(k render.Kind)    { f.record("anim:" + k.String()) }
func (f *fakeCtl) SetColor(c color.Color)        { f.record("color:" + c.String()) }
func (f *fakeCtl) ResetThermal()                 { f.record("reset") }
func (f *fakeCtl) HandleEvent(e scheduler.Event) { f.record("event:" + e.String()) }

// Resize accepts grids up to the fixture's four pixels.
func (f *fakeCtl) Resize(rows, cols int) bool {
	if rows <= 0 || cols <= 0 || rows*cols > 4 {
		return false
	}
	f.record(fmt.Sprintf("resize:%dx%d", rows, cols))
	return true
}

func (f *fakeCtl) SetBrightness(b uint8, limit time.Duration) {
	f.record(fmt.Sprintf("bright:%d/%s", b, limit))
}

func (f *fakeCtl) Status() scheduler.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeCtl) Diagnostics() []diag.Diagnostic {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]diag.Diagnostic(nil), f.diags...)
}

func (f *fakeCtl) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newServer(t *testing.T) (*Server, *fakeCtl) {
	m, err := layout.NewMapper(layout.Transform{Rows: 2, Cols: 2})
	require.NoError(t, err)
	ctl := &fakeCtl{st: scheduler.Status{Kind: render.FireSimulation, Brightness: 42}}
	return New(ctl, m), ctl
}

func intp(v int) *int { return &v }

func TestApplyCommands(t *testing.T) {
	s, ctl := newServer(t)
	for _, c := range []Command{
		{Cmd: "setAnimation", Kind: "plasma"},
		{Cmd: "setBrightness", Value: intp(200), LimitMS: 300},
		{Cmd: "setColor", Color: " #00ff80"},
		{Cmd: "resetThermal"},
		{Cmd: "resize", Rows: 1, Cols: 4},
		{Cmd: "next"},
		{Cmd: "toggle"},
		{Cmd: "event", Event: "brightness-up"},
		{Cmd: "status"},
	} {
		rep := s.Apply(c)
		require.True(t, rep.OK, "%s: %s", c.Cmd, rep.Error)
		require.NotNil(t, rep.Status)
		assert.Equal(t, render.FireSimulation, rep.Status.Kind)
	}
	assert.Equal(t, []string{
		"anim:plasma",
		"bright:200/300ms",
		"color:#00FF80",
		"reset",
		"resize:1x4",
		"event:next",
		"event:toggle",
		"event:brightness-up",
	}, ctl.Calls())
}

func TestApplyRejectsBadInput(t *testing.T) {
	s, ctl := newServer(t)
	for _, c := range []Command{
		{Cmd: "setAnimation", Kind: "disco"},
		{Cmd: "setBrightness"},
		{Cmd: "setBrightness", Value: intp(256)},
		{Cmd: "setBrightness", Value: intp(-1)},
		{Cmd: "setBrightness", Value: intp(3), LimitMS: -5},
		{Cmd: "event", Event: "explode"},
		{Cmd: "resize", Rows: 4, Cols: 4},
		{Cmd: "resize"},
		{Cmd: "save"},
		{Cmd: "runTest", Test: "index_sweep"},
		{Cmd: "launch"},
	} {
		rep := s.Apply(c)
		assert.False(t, rep.OK, c.Cmd)
		assert.NotEmpty(t, rep.Error, c.Cmd)
	}
	assert.Empty(t, ctl.Calls(), "nothing reaches the scheduler")
}

func TestApplySave(t *testing.T) {
	s, _ := newServer(t)
	var got scheduler.Status
	s.Save = func(st scheduler.Status) (bool, error) {
		got = st
		return true, nil
	}
	rep := s.Apply(Command{Cmd: "save"})
	require.True(t, rep.OK)
	require.NotNil(t, rep.Saved)
	assert.True(t, *rep.Saved)
	assert.Equal(t, uint8(42), got.Brightness)
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	return c
}

func waitClients(t *testing.T, s *Server, set map[*websocket.Conn]bool) {
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(set) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestControlOverWebsocket(t *testing.T) {
	s, ctl := newServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()
	c := dial(t, srv, "/ws/control")

	require.NoError(t, c.WriteJSON(Command{Cmd: "setAnimation", Kind: "rainbow"}))
	var rep Reply
	require.NoError(t, c.ReadJSON(&rep))
	assert.True(t, rep.OK)
	assert.Equal(t, []string{"anim:rainbow"}, ctl.Calls())

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{not json")))
	rep = Reply{}
	require.NoError(t, c.ReadJSON(&rep))
	assert.False(t, rep.OK)
}

func TestFramesStream(t *testing.T) {
	s, _ := newServer(t)
	s.FrameInterval = 0
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()
	c := dial(t, srv, "/ws/frames")

	var top map[string]any
	require.NoError(t, c.ReadJSON(&top))
	assert.Equal(t, "topology", top["type"])
	assert.Equal(t, 2.0, top["rows"])

	px := []color.Color{color.Red, color.Green, color.Blue, color.White}
	waitClients(t, s, s.clients)
	require.NoError(t, s.Show(px, 77))

	var f frame
	require.NoError(t, c.ReadJSON(&f))
	assert.Equal(t, uint8(77), f.Brightness)
	assert.Equal(t, []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255}, f.RGB)
}

func TestDiagnosticsPushed(t *testing.T) {
	s, ctl := newServer(t)
	ctl.diags = []diag.Diagnostic{diag.ThermalLock("over temperature", 80, 75)}
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()
	c := dial(t, srv, "/ws/diag")

	var d diag.Diagnostic
	require.NoError(t, c.ReadJSON(&d))
	assert.Equal(t, "THERMAL.LOCKED", d.Code, "current faults on connect")
	waitClients(t, s, s.diagClients)

	s.PollDiagnostics()
	ctl.mu.Lock()
	ctl.diags = nil
	ctl.mu.Unlock()
	s.PollDiagnostics()
	require.NoError(t, c.ReadJSON(&d))
	assert.Equal(t, "THERMAL.LOCKED", d.Code)
	require.NoError(t, c.ReadJSON(&d))
	assert.Equal(t, "THERMAL.LOCKED.CLEARED", d.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newServer(t)
	rec := httptest.NewRecorder()
	s.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fire", body["kind"])
	assert.Equal(t, 42.0, body["brightness"])
	assert.Equal(t, false, body["locked"])
}
