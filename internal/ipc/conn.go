package ipc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
)

// Frame flags, first byte of every binary WebSocket message
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// DefaultCompressThreshold is the encoded size above which frames are compressed
const DefaultCompressThreshold = 1024

// DefaultReadLimit caps one incoming WebSocket message. Content processes are
// untrusted; an oversized frame closes the connection.
const DefaultReadLimit = 4 << 20

// ErrClosed is returned by Send after Close
var ErrClosed = errors.New("ipc: connection closed")

// Conn carries messages over a WebSocket. Send is safe for concurrent use;
// Receive must be called from a single goroutine.
type Conn struct {
	ws        *websocket.Conn
	enc       *zstd.Encoder
	dec       *zstd.Decoder
	threshold int
	readLimit int64

	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
	closed       chan struct{}
}

// ConnOption configures a Conn
type ConnOption func(*Conn)

// WithCompressThreshold sets the size above which frames are zstd compressed.
// A negative threshold disables compression.
func WithCompressThreshold(n int) ConnOption {
	return func(c *Conn) { c.threshold = n }
}

// WithReadLimit sets the largest accepted incoming message, before and after
// decompression. Zero or less keeps DefaultReadLimit.
func WithReadLimit(n int64) ConnOption {
	return func(c *Conn) { c.readLimit = n }
}

// WithWriteTimeout bounds each write
func WithWriteTimeout(d time.Duration) ConnOption {
	return func(c *Conn) { c.writeTimeout = d }
}

// NewConn wraps an established WebSocket
func NewConn(ws *websocket.Conn, opts ...ConnOption) (*Conn, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}

	c := &Conn{
		ws:           ws,
		enc:          enc,
		threshold:    DefaultCompressThreshold,
		readLimit:    DefaultReadLimit,
		writeTimeout: 10 * time.Second,
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.readLimit <= 0 {
		c.readLimit = DefaultReadLimit
	}
	ws.SetReadLimit(c.readLimit)

	// a decompressed frame obeys the same limit as a raw one
	c.dec, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(uint64(c.readLimit)),
		zstd.WithDecodeAllCapLimit(true))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return c, nil
}

// Send encodes and writes one message
func (c *Conn) Send(msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	frame := make([]byte, 0, len(data)+1)
	if c.threshold >= 0 && len(data) > c.threshold {
		frame = append(frame, frameZstd)
		frame = c.enc.EncodeAll(data, frame)
	} else {
		frame = append(frame, frameRaw)
		frame = append(frame, data...)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

// Receive blocks until the next message arrives
func (c *Conn) Receive() (Message, error) {
	for {
		typ, frame, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		if len(frame) == 0 {
			return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
		}

		payload := frame[1:]
		switch frame[0] {
		case frameRaw:
		case frameZstd:
			payload, err = c.dec.DecodeAll(payload, make([]byte, 0, c.readLimit))
			if err != nil {
				return nil, fmt.Errorf("%w: zstd: %v", ErrMalformed, err)
			}
		default:
			return nil, fmt.Errorf("%w: frame flag %d", ErrMalformed, frame[0])
		}
		return Decode(payload)
	}
}

// Close sends a close frame and releases the connection
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.ws.Close()
		c.enc.Close()
		c.dec.Close()
	})
	return err
}
