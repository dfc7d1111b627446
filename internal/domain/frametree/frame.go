package frametree

import (
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/input"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// TreeID identifies a page
type TreeID uint64

// Tree is one page: a root frame and its descendants
type Tree struct {
	c       *Coordinator
	id      TreeID
	root    *Frame
	focused *Frame
	router  *input.Router
	view    types.Size
	closed  bool
}

func (t *Tree) ID() TreeID { return t.id }

// Root returns the main frame
func (t *Tree) Root() *Frame { return t.root }

// Frame is a node of a tree. Frame values are owned by the coordinator;
// read them from the coordinator's goroutine or between operations.
type Frame struct {
	id       types.FrameID
	tree     *Tree
	parent   *Frame
	children []*Frame

	current *Host
	manager *Manager

	replicated types.ReplicatedState
	url        string

	// opener is a non-owning edge; openees is its reverse
	opener  *Frame
	openees map[types.FrameID]*Frame

	containsFocus bool
	connector     *Connector
	surface       types.SurfaceID

	// placement inside the parent
	rect        types.Rect
	scale       float64
	visible     bool
	hitTestable bool

	removed bool
}

func (f *Frame) ID() types.FrameID { return f.id }
func (f *Frame) Tree() *Tree       { return f.tree }
func (f *Frame) Parent() *Frame    { return f.parent }
func (f *Frame) IsRoot() bool      { return f.parent == nil }
func (f *Frame) URL() string       { return f.url }

// Children returns the children in document order
func (f *Frame) Children() []*Frame {
	return append([]*Frame(nil), f.children...)
}

// Current returns the host that renders the frame
func (f *Frame) Current() *Host { return f.current }

// Manager returns the frame's navigation and proxy manager
func (f *Frame) Manager() *Manager { return f.manager }

// Replicated returns the state mirrored into every proxy
func (f *Frame) Replicated() types.ReplicatedState { return f.replicated }

// Opener returns the frame that opened this one, if any
func (f *Frame) Opener() *Frame { return f.opener }

// Connector returns the cross-process connector, present only when the frame
// is rendered in a different site group than its parent
func (f *Frame) Connector() *Connector { return f.connector }

// Removed reports whether the frame has been destroyed
func (f *Frame) Removed() bool { return f.removed }

// Group returns the site group of the current host
func (f *Frame) Group() *site.Group { return f.current.group }

func (f *Frame) depth() int {
	d := 0
	for p := f.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// ancestry returns f and its ancestors, f first
func (f *Frame) ancestry() []*Frame {
	var out []*Frame
	for p := f; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// HostState is the lifecycle position of a host
type HostState int

const (
	HostSpeculative HostState = iota
	HostActive
	HostPendingDeletion
)

func (s HostState) String() string {
	switch s {
	case HostSpeculative:
		return "speculative"
	case HostActive:
		return "active"
	case HostPendingDeletion:
		return "pending_deletion"
	}
	return "unknown"
}

// Host is a frame's rendering owner inside one process
type Host struct {
	frame   *Frame
	group   *site.Group
	process process.Process
	routing types.RoutingID
	state   HostState
	live    bool

	openerRouting types.RoutingID
	unloadTimer   stopper
}

func (h *Host) Frame() *Frame              { return h.frame }
func (h *Host) Group() *site.Group         { return h.group }
func (h *Host) Process() process.Process   { return h.process }
func (h *Host) RoutingID() types.RoutingID { return h.routing }
func (h *Host) State() HostState           { return h.state }

// Live reports whether the host's process is running and holds the frame
func (h *Host) Live() bool { return h.live }

// Proxy is a frame's stand-in inside a process that does not render it
type Proxy struct {
	frame   *Frame
	group   *site.Group
	process process.Process
	routing types.RoutingID
	live    bool

	openerRouting types.RoutingID
}

func (p *Proxy) Frame() *Frame              { return p.frame }
func (p *Proxy) Group() *site.Group         { return p.group }
func (p *Proxy) Process() process.Process   { return p.process }
func (p *Proxy) RoutingID() types.RoutingID { return p.routing }

// Live mirrors whether the frame's current host is live
func (p *Proxy) Live() bool { return p.live }

// stopper is satisfied by *time.Timer
type stopper interface {
	Stop() bool
}
