package process

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Endpoint is the content side of an in-memory process
type Endpoint interface {
	Receive(msg ipc.Message)
}

// EndpointFactory builds the content side for a new process. reply sends a
// message back to the coordinator.
type EndpointFactory func(pid types.ProcessID, key string, reply func(ipc.Message)) Endpoint

// LocalLauncher runs content processes in memory
type LocalLauncher struct {
	factory EndpointFactory
	logger  *zap.Logger
	pids    pidAllocator

	mu        sync.Mutex
	processes map[types.ProcessID]*LocalProcess
	failKeys  map[string]error
}

// NewLocalLauncher creates a launcher backed by factory
func NewLocalLauncher(factory EndpointFactory, logger *zap.Logger) *LocalLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalLauncher{
		factory:   factory,
		logger:    logger,
		processes: make(map[types.ProcessID]*LocalProcess),
		failKeys:  make(map[string]error),
	}
}

// FailLaunches makes subsequent launches for key fail with err. A nil err
// clears the failure.
func (l *LocalLauncher) FailLaunches(key string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failKeys, key)
		return
	}
	l.failKeys[key] = err
}

// Launch starts an in-memory process
func (l *LocalLauncher) Launch(ctx context.Context, spec Spec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if err := l.failKeys[spec.Key]; err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("launch %s: %w", spec.Key, err)
	}
	l.mu.Unlock()

	p := &LocalProcess{
		id:     l.pids.allocate(),
		key:    spec.Key,
		sink:   spec.Sink,
		logger: l.logger,
		alive:  true,
	}
	p.endpoint = l.factory(p.id, spec.Key, p.reply)

	l.mu.Lock()
	l.processes[p.id] = p
	l.mu.Unlock()

	l.logger.Debug("local process launched", zap.Uint64("pid", uint64(p.id)), zap.String("key", spec.Key))
	return p, nil
}

// Get returns a launched process by id
func (l *LocalLauncher) Get(pid types.ProcessID) (*LocalProcess, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.processes[pid]
	return p, ok
}

// Processes returns every process launched so far, dead or alive
func (l *LocalLauncher) Processes() []*LocalProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*LocalProcess, 0, len(l.processes))
	for _, p := range l.processes {
		out = append(out, p)
	}
	return out
}

// LocalProcess is an in-memory content process
type LocalProcess struct {
	routingAllocator

	id       types.ProcessID
	key      string
	sink     Sink
	endpoint Endpoint
	logger   *zap.Logger

	mu    sync.Mutex
	alive bool
}

func (p *LocalProcess) ID() types.ProcessID { return p.id }

// Key returns the site key the process was launched for
func (p *LocalProcess) Key() string { return p.key }

// Endpoint returns the content side
func (p *LocalProcess) Endpoint() Endpoint { return p.endpoint }

func (p *LocalProcess) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

// Send round-trips msg through the codec and hands it to the content side
func (p *LocalProcess) Send(msg ipc.Message) error {
	if !p.Alive() {
		return ErrNotAlive
	}
	decoded, err := ipc.RoundTrip(msg)
	if err != nil {
		return err
	}
	p.endpoint.Receive(decoded)
	return nil
}

func (p *LocalProcess) reply(msg ipc.Message) {
	if !p.Alive() {
		return
	}
	decoded, err := ipc.RoundTrip(msg)
	if err != nil {
		p.logger.Warn("content reply failed to encode", zap.Error(err))
		return
	}
	p.sink.Deliver(p.id, decoded)
}

// Terminate stops the process and notifies the sink once
func (p *LocalProcess) Terminate(reason string) {
	p.mu.Lock()
	if !p.alive {
		p.mu.Unlock()
		return
	}
	p.alive = false
	p.mu.Unlock()

	p.logger.Debug("local process terminated", zap.Uint64("pid", uint64(p.id)), zap.String("reason", reason))
	p.sink.Exited(p.id, reason)
}

// Crash simulates an unexpected exit
func (p *LocalProcess) Crash() {
	p.Terminate(ReasonCrashed)
}
