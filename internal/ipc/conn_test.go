package ipc

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// echoServer replies to every message with the same message
func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn, err := NewConn(ws)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msg, err := conn.Receive()
			if err != nil {
				return
			}
			if err := conn.Send(msg); err != nil {
				return
			}
		}
	}))
}

func dial(t *testing.T, srv *httptest.Server, opts ...ConnOption) *Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	conn, err := NewConn(ws, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnSmallAndCompressedFrames(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	conn := dial(t, srv, WithCompressThreshold(64))

	small := DetachFrame{RoutingID: 3}
	require.NoError(t, conn.Send(small))
	got, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, small, got)

	large := PostMessage{
		RoutingID:    5,
		SourceOrigin: types.Origin{Scheme: "https", Host: "a.com"},
		TargetOrigin: "*",
		Data:         bytes.Repeat([]byte("payload "), 512),
	}
	require.NoError(t, conn.Send(large))
	got, err = conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, large, got)
}

func TestConnSendAfterClose(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Send(FocusFrame{RoutingID: 1}), ErrClosed)
}

func TestConnReadLimit(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	conn := dial(t, srv, WithReadLimit(128), WithCompressThreshold(-1))
	require.NoError(t, conn.Send(PostMessage{RoutingID: 1, TargetOrigin: "*", Data: bytes.Repeat([]byte("x"), 1024)}))

	_, err := conn.Receive()
	assert.Error(t, err)
}

// rawServer writes frame to each client as one binary message
func rawServer(t *testing.T, frame []byte) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.BinaryMessage, frame)
		_, _, _ = ws.ReadMessage()
	}))
}

func TestConnRejectsOversizedDecompression(t *testing.T) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	require.NoError(t, err)
	bomb := enc.EncodeAll(make([]byte, 8<<20), []byte{frameZstd})
	enc.Close()
	require.Less(t, len(bomb), 64<<10)

	srv := rawServer(t, bomb)
	defer srv.Close()

	conn := dial(t, srv, WithReadLimit(64<<10))
	_, err = conn.Receive()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestConnAcceptsCompressedFrameWithinLimit(t *testing.T) {
	data, err := Encode(PostMessage{RoutingID: 2, TargetOrigin: "*", Data: make([]byte, 32<<10)})
	require.NoError(t, err)
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	frame := enc.EncodeAll(data, []byte{frameZstd})
	enc.Close()

	srv := rawServer(t, frame)
	defer srv.Close()

	conn := dial(t, srv, WithReadLimit(64<<10))
	got, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, types.RoutingID(2), got.(PostMessage).RoutingID)
}
