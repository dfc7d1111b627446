package process

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// RemoteConfig configures the exec launcher
type RemoteConfig struct {
	// Path of the renderer binary
	Path string
	// CoordinatorURL is the WebSocket URL renderers dial, e.g. ws://127.0.0.1:8000/ipc
	CoordinatorURL string
	// LaunchTimeout bounds the time between exec and attach
	LaunchTimeout time.Duration
}

// Starter starts the OS side of a remote process. The default execs
// RemoteConfig.Path; tests replace it.
type Starter func(ctx context.Context, p *RemoteProcess) error

// RemoteLauncher execs renderer binaries that attach over WebSocket
type RemoteLauncher struct {
	cfg    RemoteConfig
	logger *zap.Logger
	start  Starter
	pids   pidAllocator

	mu        sync.Mutex
	processes map[types.ProcessID]*RemoteProcess
}

// NewRemoteLauncher creates a launcher. A nil starter execs cfg.Path.
func NewRemoteLauncher(cfg RemoteConfig, start Starter, logger *zap.Logger) *RemoteLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &RemoteLauncher{
		cfg:       cfg,
		logger:    logger,
		processes: make(map[types.ProcessID]*RemoteProcess),
	}
	if start == nil {
		start = l.execStarter
	}
	l.start = start
	return l
}

// Launch starts a renderer and returns immediately. Sends are buffered until
// the renderer attaches; if it does not attach within LaunchTimeout it is
// terminated.
func (l *RemoteLauncher) Launch(ctx context.Context, spec Spec) (Process, error) {
	p := &RemoteProcess{
		id:     l.pids.allocate(),
		key:    spec.Key,
		token:  id.NewLaunchToken(),
		sink:   spec.Sink,
		logger: l.logger,
		alive:  true,
		forget: l.forget,
	}

	l.mu.Lock()
	l.processes[p.id] = p
	l.mu.Unlock()

	if err := l.start(ctx, p); err != nil {
		l.forget(p.id)
		return nil, fmt.Errorf("start renderer for %s: %w", spec.Key, err)
	}

	if l.cfg.LaunchTimeout > 0 {
		p.mu.Lock()
		p.attachTimer = time.AfterFunc(l.cfg.LaunchTimeout, func() {
			if !p.attached() {
				l.logger.Warn("renderer did not attach in time",
					zap.Uint64("pid", uint64(p.id)),
					zap.String("key", p.key),
					zap.Duration("timeout", l.cfg.LaunchTimeout))
				p.Terminate(ReasonLaunchTimeout)
			}
		})
		p.mu.Unlock()
	}

	l.logger.Info("renderer launched", zap.Uint64("pid", uint64(p.id)), zap.String("key", spec.Key))
	return p, nil
}

// Attach binds an incoming connection to a launched process. The first
// message on conn must already have been read as hello.
func (l *RemoteLauncher) Attach(hello ipc.Hello, conn *ipc.Conn) (*RemoteProcess, error) {
	l.mu.Lock()
	p, ok := l.processes[hello.ProcessID]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProcess, hello.ProcessID)
	}
	if subtle.ConstantTimeCompare([]byte(hello.Token), []byte(p.token)) != 1 {
		return nil, ErrBadToken
	}
	if err := p.attach(conn); err != nil {
		return nil, err
	}

	go p.readLoop()
	return p, nil
}

func (l *RemoteLauncher) forget(pid types.ProcessID) {
	l.mu.Lock()
	delete(l.processes, pid)
	l.mu.Unlock()
}

func (l *RemoteLauncher) execStarter(ctx context.Context, p *RemoteProcess) error {
	cmd := exec.Command(l.cfg.Path,
		"--coordinator", l.cfg.CoordinatorURL,
		"--process-id", strconv.FormatUint(uint64(p.id), 10),
		"--token", p.token.String(),
		"--site", p.key,
	)
	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd = cmd

	go func() {
		err := cmd.Wait()
		reason := ReasonExited
		if err != nil {
			reason = ReasonCrashed
		}
		p.exited(reason)
	}()
	return nil
}

// RemoteProcess is a renderer running as a separate OS process
type RemoteProcess struct {
	routingAllocator

	id     types.ProcessID
	key    string
	token  id.LaunchToken
	sink   Sink
	logger *zap.Logger
	cmd    *exec.Cmd
	forget func(types.ProcessID)

	attachTimer *time.Timer

	mu     sync.Mutex
	alive  bool
	conn   *ipc.Conn
	outbox []ipc.Message
}

func (p *RemoteProcess) ID() types.ProcessID { return p.id }

// Key returns the site key the process was launched for
func (p *RemoteProcess) Key() string { return p.key }

// Token returns the launch token the renderer must present
func (p *RemoteProcess) Token() id.LaunchToken { return p.token }

func (p *RemoteProcess) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

func (p *RemoteProcess) attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// Send writes msg or buffers it until the renderer attaches
func (p *RemoteProcess) Send(msg ipc.Message) error {
	p.mu.Lock()
	if !p.alive {
		p.mu.Unlock()
		return ErrNotAlive
	}
	conn := p.conn
	if conn == nil {
		p.outbox = append(p.outbox, msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := conn.Send(msg); err != nil {
		p.logger.Warn("send to renderer failed", zap.Uint64("pid", uint64(p.id)), zap.Error(err))
		go p.Terminate(ReasonDisconnected)
		return err
	}
	return nil
}

func (p *RemoteProcess) attach(conn *ipc.Conn) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.alive {
		return ErrNotAlive
	}
	if p.conn != nil {
		return ErrAlreadyAttached
	}
	if p.attachTimer != nil {
		p.attachTimer.Stop()
	}

	// Flush under the lock so later Sends cannot overtake buffered ones.
	for _, msg := range p.outbox {
		if err := conn.Send(msg); err != nil {
			return err
		}
	}
	p.outbox = nil
	p.conn = conn
	return nil
}

func (p *RemoteProcess) readLoop() {
	for {
		msg, err := p.conn.Receive()
		if errors.Is(err, ipc.ErrMalformed) {
			p.logger.Warn("malformed frame from renderer", zap.Uint64("pid", uint64(p.id)), zap.Error(err))
			p.Terminate(ReasonProtocolViolation)
			return
		}
		if err != nil {
			if p.Alive() {
				p.logger.Info("renderer connection closed", zap.Uint64("pid", uint64(p.id)), zap.Error(err))
			}
			p.Terminate(ReasonDisconnected)
			return
		}
		if !p.Alive() {
			return
		}
		p.sink.Deliver(p.id, msg)
	}
}

// Terminate kills the renderer and closes its connection
func (p *RemoteProcess) Terminate(reason string) {
	p.mu.Lock()
	cmd, conn := p.cmd, p.conn
	p.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	p.exited(reason)
}

// exited marks the process dead and notifies the sink once
func (p *RemoteProcess) exited(reason string) {
	p.mu.Lock()
	if !p.alive {
		p.mu.Unlock()
		return
	}
	p.alive = false
	p.outbox = nil
	if p.attachTimer != nil {
		p.attachTimer.Stop()
	}
	p.mu.Unlock()

	if p.forget != nil {
		p.forget(p.id)
	}
	p.sink.Exited(p.id, reason)
}
