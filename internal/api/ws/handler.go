// Package ws accepts WebSocket connections from content processes and binds
// them to the processes the coordinator launched.
package ws

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
)

// DefaultHelloTimeout bounds the wait for the first message
const DefaultHelloTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 << 10,
	WriteBufferSize: 16 << 10,
	// Renderers are not browsers; they present a launch token instead of an Origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Attacher binds a connection to a launched process
type Attacher interface {
	Attach(hello ipc.Hello, conn *ipc.Conn) (*process.RemoteProcess, error)
}

// Handler manages renderer connections
type Handler struct {
	attacher     Attacher
	logger       *zap.Logger
	helloTimeout time.Duration
}

// NewHandler creates a handler. A zero helloTimeout uses DefaultHelloTimeout.
func NewHandler(attacher Attacher, helloTimeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if helloTimeout <= 0 {
		helloTimeout = DefaultHelloTimeout
	}
	return &Handler{
		attacher:     attacher,
		logger:       logger.Named("ipc"),
		helloTimeout: helloTimeout,
	}
}

// HandleConnection upgrades the request, reads the renderer's Hello and
// hands the connection to its process. The process owns the connection
// from then on.
func (h *Handler) HandleConnection(c *gin.Context) {
	if h.attacher == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "renderers run in-process",
		})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn, err := ipc.NewConn(wsConn)
	if err != nil {
		h.logger.Error("ipc connection setup failed", zap.Error(err))
		_ = wsConn.Close()
		return
	}

	hello, err := h.readHello(wsConn, conn)
	if err != nil {
		h.logger.Warn("renderer handshake failed",
			zap.String("remote", c.Request.RemoteAddr),
			zap.Error(err))
		_ = conn.Close()
		return
	}

	p, err := h.attacher.Attach(hello, conn)
	if err != nil {
		h.logger.Warn("renderer attach refused",
			zap.Uint64("pid", uint64(hello.ProcessID)),
			zap.String("remote", c.Request.RemoteAddr),
			zap.Error(err))
		_ = conn.Close()
		return
	}
	h.logger.Info("renderer attached", zap.Uint64("pid", uint64(p.ID())))
}

var errNoHello = errors.New("first message is not hello")

func (h *Handler) readHello(wsConn *websocket.Conn, conn *ipc.Conn) (ipc.Hello, error) {
	_ = wsConn.SetReadDeadline(time.Now().Add(h.helloTimeout))
	msg, err := conn.Receive()
	if err != nil {
		return ipc.Hello{}, err
	}
	_ = wsConn.SetReadDeadline(time.Time{})

	hello, ok := msg.(ipc.Hello)
	if !ok {
		return ipc.Hello{}, fmt.Errorf("%w: got %s", errNoHello, msg.Kind())
	}
	return hello, nil
}
