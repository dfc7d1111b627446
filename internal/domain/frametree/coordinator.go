package frametree

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/input"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/policy"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// ErrProcessLaunch is returned when a navigation needs a process that cannot be started
var ErrProcessLaunch = site.ErrProcessLaunch

// DefaultUnloadTimeout bounds how long a swapped-out host waits for its ack
const DefaultUnloadTimeout = time.Second

// Options configures a Coordinator
type Options struct {
	Launcher process.Launcher
	Resolver *site.Resolver
	Policy   *policy.Policy

	UnloadTimeout time.Duration
	MaxProcesses  int
	Breakers      *resilience.Set

	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
}

type routeKey struct {
	pid     types.ProcessID
	routing types.RoutingID
}

// event is one queued input to the coordinator
type event struct {
	pid    types.ProcessID
	msg    ipc.Message
	exited bool
	reason string
	unload *Host
}

// Coordinator owns all trees and is the single writer of frame state
type Coordinator struct {
	mu sync.Mutex

	sites    *site.Registry
	resolver *site.Resolver
	policy   *policy.Policy
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	unloadTimeout time.Duration
	afterFunc     func(time.Duration, func()) stopper

	nextTree  TreeID
	nextFrame types.FrameID
	nextNav   types.NavigationID

	trees   map[TreeID]*Tree
	frames  map[types.FrameID]*Frame
	hosts   map[routeKey]*Host
	proxies map[routeKey]*Proxy
	pending map[*Host]struct{}

	observers []Observer

	inboxMu sync.Mutex
	inbox   []event
	wake    chan struct{}
}

// New creates a coordinator
func New(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver, _ = site.NewResolver(true, nil)
	}
	pol := opts.Policy
	if pol == nil {
		pol = policy.Default()
	}
	unload := opts.UnloadTimeout
	if unload <= 0 {
		unload = DefaultUnloadTimeout
	}

	c := &Coordinator{
		resolver:      resolver,
		policy:        pol,
		logger:        logger.Named("frametree"),
		metrics:       opts.Metrics,
		tracer:        opts.Tracer,
		unloadTimeout: unload,
		afterFunc: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
		trees:   make(map[TreeID]*Tree),
		frames:  make(map[types.FrameID]*Frame),
		hosts:   make(map[routeKey]*Host),
		proxies: make(map[routeKey]*Proxy),
		pending: make(map[*Host]struct{}),
		wake:    make(chan struct{}, 1),
	}
	c.sites = site.NewRegistry(opts.Launcher, c, site.Options{
		MaxProcesses: opts.MaxProcesses,
		Breakers:     opts.Breakers,
		Metrics:      opts.Metrics,
		Logger:       logger,
	})
	return c
}

// Sites exposes the site group registry
func (c *Coordinator) Sites() *site.Registry { return c.sites }

// AddObserver subscribes o to tree events. Observers run on the
// coordinator's goroutine with its lock held and must not call back into it.
func (c *Coordinator) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Deliver queues a message from a content process. Safe from any goroutine.
func (c *Coordinator) Deliver(pid types.ProcessID, msg ipc.Message) {
	c.post(event{pid: pid, msg: msg})
}

// Exited queues a process exit. Safe from any goroutine.
func (c *Coordinator) Exited(pid types.ProcessID, reason string) {
	c.post(event{pid: pid, exited: true, reason: reason})
}

func (c *Coordinator) post(ev event) {
	c.inboxMu.Lock()
	c.inbox = append(c.inbox, ev)
	c.inboxMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Flush applies queued events until the queue is empty, including events
// produced while applying earlier ones. Returns the number applied.
func (c *Coordinator) Flush() int {
	n := 0
	for {
		c.inboxMu.Lock()
		batch := c.inbox
		c.inbox = nil
		c.inboxMu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, ev := range batch {
			c.mu.Lock()
			c.apply(ev)
			c.mu.Unlock()
			n++
		}
	}
}

// Run applies events as they arrive until ctx is done
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Flush()
			return ctx.Err()
		case <-c.wake:
			c.Flush()
		case <-ticker.C:
			c.metrics.UpdateUptime()
		}
	}
}

func (c *Coordinator) apply(ev event) {
	switch {
	case ev.unload != nil:
		c.unloadTimedOut(ev.unload)
	case ev.exited:
		c.processGone(ev.pid, ev.reason)
	default:
		c.handleMessage(ev.pid, ev.msg)
	}
}

// Shutdown closes every tree, which releases every site group and
// terminates their processes.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	for _, t := range c.sortedTrees() {
		c.closeTree(t)
	}
	for h := range c.pending {
		c.deleteHost(h)
	}
	c.mu.Unlock()
	c.Flush()
}

// Tree returns a tree by id
func (c *Coordinator) Tree(id TreeID) (*Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trees[id]
	return t, ok
}

// Trees returns every open tree ordered by id
func (c *Coordinator) Trees() []*Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedTrees()
}

func (c *Coordinator) sortedTrees() []*Tree {
	out := make([]*Tree, 0, len(c.trees))
	for _, t := range c.trees {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Find returns a live frame in any tree
func (c *Coordinator) Find(id types.FrameID) *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[id]
}

// send delivers msg to proc, ignoring dead processes
func (c *Coordinator) send(proc process.Process, msg ipc.Message) {
	if proc == nil || !proc.Alive() {
		return
	}
	if err := proc.Send(msg); err != nil {
		c.logger.Debug("send failed",
			zap.Uint64("pid", uint64(proc.ID())),
			zap.Stringer("kind", msg.Kind()),
			zap.Error(err))
		return
	}
	c.metrics.RecordSent(msg.Kind().String())
}

func (c *Coordinator) publishCounts() {
	if c.metrics == nil {
		return
	}
	c.metrics.SetTreeCounts(len(c.trees), len(c.frames), len(c.proxies), len(c.pending))
}

func (c *Coordinator) newTreeRecord() *Tree {
	c.nextTree++
	t := &Tree{c: c, id: c.nextTree, router: input.NewRouter(), view: types.Size{Width: 800, Height: 600}}
	c.trees[t.id] = t
	return t
}
