package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

type sink struct {
	mu        sync.Mutex
	delivered []ipc.Message
	exited    chan string
}

func newSink() *sink { return &sink{exited: make(chan string, 4)} }

func (s *sink) Deliver(_ types.ProcessID, msg ipc.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, msg)
}

func (s *sink) Exited(_ types.ProcessID, reason string) { s.exited <- reason }

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func newServer(t *testing.T, attacher Attacher) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ipc", NewHandler(attacher, 200*time.Millisecond, nil).HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *ipc.Conn {
	wsConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ipc", nil)
	require.NoError(t, err)
	conn, err := ipc.NewConn(wsConn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func launch(t *testing.T, s *sink) (*process.RemoteLauncher, *process.RemoteProcess) {
	launcher := process.NewRemoteLauncher(process.RemoteConfig{LaunchTimeout: time.Minute},
		func(context.Context, *process.RemoteProcess) error { return nil }, nil)
	p, err := launcher.Launch(context.Background(), process.Spec{Key: "https://b.com", Sink: s})
	require.NoError(t, err)
	return launcher, p.(*process.RemoteProcess)
}

func TestAttachDeliversBufferedMessages(t *testing.T) {
	s := newSink()
	launcher, p := launch(t, s)
	require.NoError(t, p.Send(ipc.DeleteFrame{RoutingID: 3}))

	conn := dial(t, newServer(t, launcher))
	require.NoError(t, conn.Send(ipc.Hello{ProcessID: p.ID(), Token: p.Token().String()}))

	msg, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, ipc.DeleteFrame{RoutingID: 3}, msg)

	require.NoError(t, conn.Send(ipc.SwapOutAck{RoutingID: 3}))
	assert.Eventually(t, func() bool { return s.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAttachRejectsBadToken(t *testing.T) {
	s := newSink()
	launcher, p := launch(t, s)

	conn := dial(t, newServer(t, launcher))
	require.NoError(t, conn.Send(ipc.Hello{ProcessID: p.ID(), Token: "lch_forged"}))

	_, err := conn.Receive()
	assert.Error(t, err)
	assert.True(t, p.Alive(), "a refused attach leaves the launched process waiting")
}

func TestFirstMessageMustBeHello(t *testing.T) {
	s := newSink()
	launcher, p := launch(t, s)

	conn := dial(t, newServer(t, launcher))
	require.NoError(t, conn.Send(ipc.SwapOutAck{RoutingID: 1}))

	_, err := conn.Receive()
	assert.Error(t, err)
	assert.Zero(t, s.count())
	assert.True(t, p.Alive())
}

func TestSilentRendererTimesOut(t *testing.T) {
	launcher, _ := launch(t, newSink())
	conn := dial(t, newServer(t, launcher))

	done := make(chan error, 1)
	go func() {
		_, err := conn.Receive()
		done <- err
	}()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handshake deadline not enforced")
	}
}

func TestLocalModeHasNoAttachEndpoint(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/ipc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
