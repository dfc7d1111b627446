package renderer

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// ClientConfig tells a content process where its coordinator is
type ClientConfig struct {
	// URL of the coordinator's attach endpoint, e.g. ws://127.0.0.1:8000/ipc
	URL       string
	ProcessID types.ProcessID
	Token     string
	Key       string
	Dialer    *websocket.Dialer
	Logger    *zap.Logger
}

// Serve dials the coordinator, presents the launch token and answers
// coordinator messages until ctx ends or the connection drops. A normal
// close from the coordinator returns nil.
func Serve(ctx context.Context, cfg ClientConfig, opts ...Option) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	wsConn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial coordinator: %w", err)
	}
	conn, err := ipc.NewConn(wsConn)
	if err != nil {
		_ = wsConn.Close()
		return err
	}
	defer conn.Close()

	if err := conn.Send(ipc.Hello{ProcessID: cfg.ProcessID, Token: cfg.Token}); err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	logger.Info("attached to coordinator", zap.Uint64("pid", uint64(cfg.ProcessID)), zap.String("key", cfg.Key))

	reply := func(msg ipc.Message) {
		if err := conn.Send(msg); err != nil {
			logger.Warn("reply failed", zap.Stringer("kind", msg.Kind()), zap.Error(err))
		}
	}
	opts = append([]Option{WithLogger(logger), WithoutHistory()}, opts...)
	r := New(cfg.ProcessID, cfg.Key, reply, opts...)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		msg, err := conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Info("coordinator closed the connection")
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		r.Receive(msg)
	}
}
