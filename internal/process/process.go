package process

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

var (
	// ErrNotAlive is returned when sending to a terminated process
	ErrNotAlive = errors.New("process not alive")
	// ErrUnknownProcess is returned when attaching to a process id nobody launched
	ErrUnknownProcess = errors.New("unknown process")
	// ErrBadToken is returned when an attaching process presents the wrong token
	ErrBadToken = errors.New("launch token mismatch")
	// ErrAlreadyAttached is returned on a second attach for the same process
	ErrAlreadyAttached = errors.New("process already attached")
)

// Exit reasons
const (
	ReasonTerminated        = "terminated"
	ReasonCrashed           = "crashed"
	ReasonProtocolViolation = "protocol_violation"
	ReasonLaunchTimeout     = "launch_timeout"
	ReasonDisconnected      = "disconnected"
	ReasonExited            = "exited"
	ReasonUnused            = "unused"
)

// Process is the coordinator's handle on one content process
type Process interface {
	ID() types.ProcessID
	// Send queues msg for the content process. It never blocks on the
	// content side acting on it.
	Send(msg ipc.Message) error
	// Terminate kills the process. The sink receives Exited once.
	Terminate(reason string)
	Alive() bool
	// NextRoutingID allocates a routing id scoped to this process
	NextRoutingID() types.RoutingID
}

// Sink receives content -> coordinator traffic
type Sink interface {
	Deliver(pid types.ProcessID, msg ipc.Message)
	Exited(pid types.ProcessID, reason string)
}

// Spec describes a process to launch
type Spec struct {
	// Key is the site key the process will serve, for logs and the command line
	Key  string
	Sink Sink
}

// Launcher starts content processes. Launch must not wait for the process
// to become ready.
type Launcher interface {
	Launch(ctx context.Context, spec Spec) (Process, error)
}

// routingAllocator hands out per-process routing ids starting at 1
type routingAllocator struct {
	next atomic.Int32
}

func (a *routingAllocator) NextRoutingID() types.RoutingID {
	return types.RoutingID(a.next.Add(1))
}

// pidAllocator hands out process ids starting at 1
type pidAllocator struct {
	next atomic.Uint64
}

func (a *pidAllocator) allocate() types.ProcessID {
	return types.ProcessID(a.next.Add(1))
}
