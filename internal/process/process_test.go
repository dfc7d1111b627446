package process

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

type recordingSink struct {
	mu        sync.Mutex
	delivered []ipc.Message
	exits     map[types.ProcessID]string
	exitCh    chan types.ProcessID
}

func newRecordingSink() *recordingSink {
	return &recordingSink{exits: make(map[types.ProcessID]string), exitCh: make(chan types.ProcessID, 8)}
}

func (s *recordingSink) Deliver(_ types.ProcessID, msg ipc.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, msg)
}

func (s *recordingSink) Exited(pid types.ProcessID, reason string) {
	s.mu.Lock()
	s.exits[pid] = reason
	s.mu.Unlock()
	s.exitCh <- pid
}

func (s *recordingSink) messages() []ipc.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ipc.Message(nil), s.delivered...)
}

// echoEndpoint acknowledges every SwapOut
type echoEndpoint struct {
	reply    func(ipc.Message)
	received []ipc.Message
}

func (e *echoEndpoint) Receive(msg ipc.Message) {
	e.received = append(e.received, msg)
	if so, ok := msg.(ipc.SwapOut); ok {
		e.reply(ipc.SwapOutAck{RoutingID: so.RoutingID})
	}
}

func TestLocalProcessRoundTrip(t *testing.T) {
	sink := newRecordingSink()
	var endpoint *echoEndpoint
	launcher := NewLocalLauncher(func(_ types.ProcessID, _ string, reply func(ipc.Message)) Endpoint {
		endpoint = &echoEndpoint{reply: reply}
		return endpoint
	}, nil)

	proc, err := launcher.Launch(context.Background(), Spec{Key: "https://a.com", Sink: sink})
	require.NoError(t, err)
	assert.True(t, proc.Alive())
	assert.Equal(t, types.RoutingID(1), proc.NextRoutingID())
	assert.Equal(t, types.RoutingID(2), proc.NextRoutingID())

	require.NoError(t, proc.Send(ipc.SwapOut{RoutingID: 4, ProxyRoutingID: 9}))
	require.Len(t, endpoint.received, 1)
	assert.Equal(t, ipc.SwapOut{RoutingID: 4, ProxyRoutingID: 9}, endpoint.received[0])
	assert.Equal(t, []ipc.Message{ipc.SwapOutAck{RoutingID: 4}}, sink.messages())
}

func TestLocalProcessTerminateOnce(t *testing.T) {
	sink := newRecordingSink()
	launcher := NewLocalLauncher(func(types.ProcessID, string, func(ipc.Message)) Endpoint {
		return &echoEndpoint{}
	}, nil)

	proc, err := launcher.Launch(context.Background(), Spec{Key: "k", Sink: sink})
	require.NoError(t, err)

	local, ok := launcher.Get(proc.ID())
	require.True(t, ok)
	local.Crash()
	proc.Terminate(ReasonTerminated)

	assert.False(t, proc.Alive())
	assert.Equal(t, ReasonCrashed, sink.exits[proc.ID()])
	assert.Len(t, sink.exitCh, 1)
	assert.ErrorIs(t, proc.Send(ipc.DeleteFrame{RoutingID: 1}), ErrNotAlive)
}

func TestLocalLaunchFailure(t *testing.T) {
	launcher := NewLocalLauncher(func(types.ProcessID, string, func(ipc.Message)) Endpoint {
		return &echoEndpoint{}
	}, nil)
	boom := errors.New("out of memory")
	launcher.FailLaunches("bad", boom)

	_, err := launcher.Launch(context.Background(), Spec{Key: "bad", Sink: newRecordingSink()})
	assert.ErrorIs(t, err, boom)

	launcher.FailLaunches("bad", nil)
	_, err = launcher.Launch(context.Background(), Spec{Key: "bad", Sink: newRecordingSink()})
	assert.NoError(t, err)
}

// attachServer upgrades /ipc, reads Hello and attaches to launcher
func attachServer(t *testing.T, launcher *RemoteLauncher) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn, err := ipc.NewConn(ws)
		if err != nil {
			return
		}
		msg, err := conn.Receive()
		if err != nil {
			conn.Close()
			return
		}
		hello, ok := msg.(ipc.Hello)
		if !ok {
			conn.Close()
			return
		}
		if _, err := launcher.Attach(hello, conn); err != nil {
			conn.Close()
		}
	}))
}

func dialRenderer(t *testing.T, srv *httptest.Server) *ipc.Conn {
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn, err := ipc.NewConn(ws)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRemoteProcessBuffersUntilAttach(t *testing.T) {
	sink := newRecordingSink()
	launcher := NewRemoteLauncher(RemoteConfig{LaunchTimeout: time.Minute},
		func(context.Context, *RemoteProcess) error { return nil }, nil)
	srv := attachServer(t, launcher)
	defer srv.Close()

	proc, err := launcher.Launch(context.Background(), Spec{Key: "https://b.com", Sink: sink})
	require.NoError(t, err)
	require.NoError(t, proc.Send(ipc.Navigate{RoutingID: 1, NavigationID: 1, URL: "https://b.com/"}))

	remote := proc.(*RemoteProcess)
	conn := dialRenderer(t, srv)
	require.NoError(t, conn.Send(ipc.Hello{ProcessID: proc.ID(), Token: remote.Token().String()}))

	msg, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, ipc.Navigate{RoutingID: 1, NavigationID: 1, URL: "https://b.com/"}, msg)

	require.NoError(t, conn.Send(ipc.CommitNavigation{RoutingID: 1, NavigationID: 1, URL: "https://b.com/"}))
	assert.Eventually(t, func() bool { return len(sink.messages()) == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	select {
	case pid := <-sink.exitCh:
		assert.Equal(t, proc.ID(), pid)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not reported")
	}
	assert.False(t, proc.Alive())
}

func TestRemoteAttachRejectsBadToken(t *testing.T) {
	launcher := NewRemoteLauncher(RemoteConfig{},
		func(context.Context, *RemoteProcess) error { return nil }, nil)

	proc, err := launcher.Launch(context.Background(), Spec{Key: "k", Sink: newRecordingSink()})
	require.NoError(t, err)

	_, err = launcher.Attach(ipc.Hello{ProcessID: proc.ID(), Token: "lch_wrong"}, nil)
	assert.ErrorIs(t, err, ErrBadToken)

	_, err = launcher.Attach(ipc.Hello{ProcessID: 999, Token: "x"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProcess)
}

func TestRemoteLaunchTimeout(t *testing.T) {
	sink := newRecordingSink()
	launcher := NewRemoteLauncher(RemoteConfig{LaunchTimeout: 20 * time.Millisecond},
		func(context.Context, *RemoteProcess) error { return nil }, nil)

	proc, err := launcher.Launch(context.Background(), Spec{Key: "k", Sink: sink})
	require.NoError(t, err)

	select {
	case <-sink.exitCh:
	case <-time.After(2 * time.Second):
		t.Fatal("launch timeout not reported")
	}
	sink.mu.Lock()
	assert.Equal(t, ReasonLaunchTimeout, sink.exits[proc.ID()])
	sink.mu.Unlock()
}
