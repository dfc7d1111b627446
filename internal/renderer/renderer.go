package renderer

import (
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// LocalFrame is a frame this process renders
type LocalFrame struct {
	RoutingID       types.RoutingID
	FrameID         types.FrameID
	ParentRoutingID types.RoutingID
	OpenerRoutingID types.RoutingID
	Provisional     bool
	PreviousProxy   types.RoutingID
	Replicated      types.ReplicatedState
	URL             string
	Focused         bool
	HasFocus        bool
	Rect            types.Rect
	Scale           float64
	Visible         bool
	Surface         types.SurfaceID

	pendingNav     types.NavigationID
	pendingURL     string
	pendingSandbox types.SandboxFlags
	surfaceSeq     uint32
}

// RemoteFrame is this process's proxy for a frame rendered elsewhere
type RemoteFrame struct {
	RoutingID       types.RoutingID
	FrameID         types.FrameID
	SiteGroupID     types.SiteGroupID
	ParentRoutingID types.RoutingID
	OpenerRoutingID types.RoutingID
	Replicated      types.ReplicatedState
	Live            bool
	HasFocus        bool
	Surface         types.SurfaceID
}

// Renderer is one content process
type Renderer struct {
	pid    types.ProcessID
	key    string
	reply  func(ipc.Message)
	logger *zap.Logger

	mu       sync.Mutex
	frames   map[types.RoutingID]*LocalFrame
	proxies  map[types.RoutingID]*RemoteFrame
	received []ipc.Message
	ignored  []ipc.Message

	autoCommit  bool
	autoAck     bool
	autoSurface bool
	history     bool
}

// Option configures a Renderer
type Option func(*Renderer)

// WithManualCommit leaves navigations pending until Commit is called
func WithManualCommit() Option {
	return func(r *Renderer) { r.autoCommit = false }
}

// WithManualSwapOutAck leaves SwapOut unacknowledged until AckSwapOut is called
func WithManualSwapOutAck() Option {
	return func(r *Renderer) { r.autoAck = false }
}

// WithoutSurfaces suppresses SurfaceReady after commits
func WithoutSurfaces() Option {
	return func(r *Renderer) { r.autoSurface = false }
}

// WithoutHistory stops recording received and ignored messages, for
// long-running processes
func WithoutHistory() Option {
	return func(r *Renderer) { r.history = false }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// New creates a renderer for process pid. reply delivers messages to the coordinator.
func New(pid types.ProcessID, key string, reply func(ipc.Message), opts ...Option) *Renderer {
	r := &Renderer{
		pid:         pid,
		key:         key,
		reply:       reply,
		logger:      zap.NewNop(),
		frames:      make(map[types.RoutingID]*LocalFrame),
		proxies:     make(map[types.RoutingID]*RemoteFrame),
		autoCommit:  true,
		autoAck:     true,
		autoSurface: true,
		history:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PID returns the process id this renderer serves
func (r *Renderer) PID() types.ProcessID { return r.pid }

// Key returns the site key the process was launched for
func (r *Renderer) Key() string { return r.key }

// Receive handles one coordinator -> content message
func (r *Renderer) Receive(msg ipc.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.history {
		r.received = append(r.received, msg)
	}

	switch m := msg.(type) {
	case ipc.CreateFrame:
		r.createFrame(m)
	case ipc.CreateFrameProxy:
		r.createProxy(m)
	case ipc.DeleteFrame:
		delete(r.frames, m.RoutingID)
	case ipc.DeleteFrameProxy:
		delete(r.proxies, m.RoutingID)
	case ipc.Navigate:
		r.navigate(m)
	case ipc.SwapOut:
		r.swapOut(m)
	case ipc.UpdateReplicatedState:
		if p, ok := r.proxies[m.RoutingID]; ok {
			p.Replicated = m.State
		} else if f, ok := r.frames[m.RoutingID]; ok {
			f.Replicated = m.State
		} else {
			r.ignore(msg)
		}
	case ipc.SetFocus:
		if f, ok := r.frames[m.RoutingID]; ok {
			f.Focused = m.Focused
		} else {
			r.ignore(msg)
		}
	case ipc.SetHasFocus:
		if p, ok := r.proxies[m.RoutingID]; ok {
			p.HasFocus = m.HasFocus
		} else if f, ok := r.frames[m.RoutingID]; ok {
			f.HasFocus = m.HasFocus
		} else {
			r.ignore(msg)
		}
	case ipc.UpdateOpener:
		if p, ok := r.proxies[m.RoutingID]; ok {
			p.OpenerRoutingID = m.OpenerRoutingID
		} else if f, ok := r.frames[m.RoutingID]; ok {
			f.OpenerRoutingID = m.OpenerRoutingID
		} else {
			r.ignore(msg)
		}
	case ipc.SetProxyLive:
		if p, ok := r.proxies[m.RoutingID]; ok {
			p.Live = m.Live
		} else {
			r.ignore(msg)
		}
	case ipc.UpdateGeometry:
		if f, ok := r.frames[m.RoutingID]; ok {
			f.Rect, f.Scale, f.Visible = m.Rect, m.Scale, m.Visible
		} else {
			r.ignore(msg)
		}
	case ipc.SetChildSurface:
		if p, ok := r.proxies[m.RoutingID]; ok {
			p.Surface = m.Surface
		} else {
			r.ignore(msg)
		}
	case ipc.PostMessage, ipc.RouteInputEvent:
		if _, ok := r.frames[routingOf(m)]; !ok {
			r.ignore(msg)
		}
	default:
		r.logger.Warn("unexpected message", zap.Stringer("kind", msg.Kind()))
	}
}

func routingOf(msg ipc.Message) types.RoutingID {
	switch m := msg.(type) {
	case ipc.PostMessage:
		return m.RoutingID
	case ipc.RouteInputEvent:
		return m.RoutingID
	}
	return types.RoutingNone
}

func (r *Renderer) ignore(msg ipc.Message) {
	if r.history {
		r.ignored = append(r.ignored, msg)
	}
	r.logger.Debug("ignoring message for unknown routing id", zap.Stringer("kind", msg.Kind()))
}

// knows reports whether id names a local frame or proxy in this process
func (r *Renderer) knows(id types.RoutingID) bool {
	if _, ok := r.frames[id]; ok {
		return true
	}
	_, ok := r.proxies[id]
	return ok
}

func (r *Renderer) createFrame(m ipc.CreateFrame) {
	if m.ParentRoutingID != types.RoutingNone && !r.knows(m.ParentRoutingID) {
		r.ignore(m)
		return
	}
	if r.knows(m.RoutingID) {
		r.ignore(m)
		return
	}
	r.frames[m.RoutingID] = &LocalFrame{
		RoutingID:       m.RoutingID,
		FrameID:         m.FrameID,
		ParentRoutingID: m.ParentRoutingID,
		OpenerRoutingID: m.OpenerRoutingID,
		Provisional:     m.Provisional,
		PreviousProxy:   m.PreviousProxyRoutingID,
		Replicated:      m.Replicated,
		URL:             "about:blank",
		Visible:         true,
	}
}

func (r *Renderer) createProxy(m ipc.CreateFrameProxy) {
	if m.ParentRoutingID != types.RoutingNone && !r.knows(m.ParentRoutingID) {
		r.ignore(m)
		return
	}
	if r.knows(m.RoutingID) {
		r.ignore(m)
		return
	}
	r.proxies[m.RoutingID] = &RemoteFrame{
		RoutingID:       m.RoutingID,
		FrameID:         m.FrameID,
		SiteGroupID:     m.SiteGroupID,
		ParentRoutingID: m.ParentRoutingID,
		OpenerRoutingID: m.OpenerRoutingID,
		Replicated:      m.Replicated,
		Live:            m.Live,
	}
}

func (r *Renderer) navigate(m ipc.Navigate) {
	f, ok := r.frames[m.RoutingID]
	if !ok {
		r.ignore(m)
		return
	}
	f.pendingNav = m.NavigationID
	f.pendingURL = m.URL
	f.pendingSandbox = m.Sandbox
	if r.autoCommit {
		r.commit(f)
	}
}

// commit finishes the pending navigation of f. Caller holds r.mu.
func (r *Renderer) commit(f *LocalFrame) {
	if f.pendingNav == 0 {
		return
	}
	if f.Provisional {
		// The provisional frame takes the place of the proxy it was created for.
		if f.PreviousProxy != types.RoutingNone {
			if p, ok := r.proxies[f.PreviousProxy]; ok {
				f.ParentRoutingID = p.ParentRoutingID
				delete(r.proxies, f.PreviousProxy)
			}
		}
		f.Provisional = false
		f.PreviousProxy = types.RoutingNone
	}

	f.URL = f.pendingURL
	f.Replicated.EffectiveSandbox = f.pendingSandbox
	origin := types.OpaqueOrigin()
	if u, err := url.Parse(f.URL); err == nil && !f.pendingSandbox.Has(types.SandboxOrigin) {
		origin = types.OriginFromURL(u)
	}
	f.Replicated.Origin = origin

	nav := f.pendingNav
	f.pendingNav = 0

	r.reply(ipc.CommitNavigation{
		RoutingID:    f.RoutingID,
		NavigationID: nav,
		URL:          f.URL,
		Origin:       origin,
	})
	if r.autoSurface {
		f.surfaceSeq++
		f.Surface = types.NewSurfaceID(uint64(r.pid)<<32|uint64(uint32(f.RoutingID)), f.surfaceSeq)
		r.reply(ipc.SurfaceReady{RoutingID: f.RoutingID, Surface: f.Surface})
	}
}

func (r *Renderer) swapOut(m ipc.SwapOut) {
	f, ok := r.frames[m.RoutingID]
	if !ok {
		r.ignore(m)
		return
	}
	delete(r.frames, m.RoutingID)
	if m.ProxyRoutingID != types.RoutingNone && !r.knows(m.ProxyRoutingID) {
		r.proxies[m.ProxyRoutingID] = &RemoteFrame{
			RoutingID:       m.ProxyRoutingID,
			FrameID:         f.FrameID,
			ParentRoutingID: f.ParentRoutingID,
			OpenerRoutingID: f.OpenerRoutingID,
			Replicated:      m.Replicated,
			Live:            true,
		}
	}
	if r.autoAck {
		r.reply(ipc.SwapOutAck{RoutingID: m.RoutingID})
	}
}
