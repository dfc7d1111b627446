package site

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

var (
	// ErrProcessLaunch is returned when a group's process cannot be started
	ErrProcessLaunch = errors.New("process launch failed")
	// ErrProcessLimit is returned when MaxProcesses live processes already exist
	ErrProcessLimit = errors.New("process limit reached")
)

// Group is a site group: a key bound to at most one process
type Group struct {
	id         types.SiteGroupID
	key        Key
	process    process.Process
	refs       int
	generation uint64
}

func (g *Group) ID() types.SiteGroupID { return g.id }
func (g *Group) Key() Key              { return g.key }

// Process returns the current process, or nil if none is running
func (g *Group) Process() process.Process { return g.process }

// Refs returns the number of hosts and proxies holding the group
func (g *Group) Refs() int { return g.refs }

// Generation counts process launches for this group. It increases each time
// a dead process is replaced.
func (g *Group) Generation() uint64 { return g.generation }

// Live reports whether the group has a live process
func (g *Group) Live() bool {
	return g.process != nil && g.process.Alive()
}

// Options configures a Registry
type Options struct {
	// MaxProcesses caps live processes; zero means unlimited
	MaxProcesses int
	// Breakers guards launches per key; nil disables breaking
	Breakers *resilience.Set
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// Registry owns the site groups
type Registry struct {
	mu       sync.RWMutex
	launcher process.Launcher
	sink     process.Sink
	opts     Options
	logger   *zap.Logger

	nextID types.SiteGroupID
	byKey  map[Key]*Group
	byID   map[types.SiteGroupID]*Group
	byPID  map[types.ProcessID]*Group
}

// NewRegistry creates a registry that launches processes with launcher and
// routes their traffic to sink.
func NewRegistry(launcher process.Launcher, sink process.Sink, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		launcher: launcher,
		sink:     sink,
		opts:     opts,
		logger:   logger.Named("site"),
		byKey:    make(map[Key]*Group),
		byID:     make(map[types.SiteGroupID]*Group),
		byPID:    make(map[types.ProcessID]*Group),
	}
}

// Acquire returns the group for key, creating it if needed, and takes a reference
func (r *Registry) Acquire(key Key) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byKey[key]
	if !ok {
		r.nextID++
		g = &Group{id: r.nextID, key: key}
		r.byKey[key] = g
		r.byID[g.id] = g
		r.logger.Debug("site group created", zap.Uint64("group", uint64(g.id)), zap.Stringer("key", key))
		r.opts.Metrics.SetSiteGroups(len(r.byID))
	}
	g.refs++
	return g
}

// Retain takes another reference on an existing group
func (r *Registry) Retain(g *Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.refs++
}

// Release drops a reference. The last release terminates the process and
// forgets the group.
func (r *Registry) Release(g *Group) {
	r.mu.Lock()
	if g.refs <= 0 {
		r.mu.Unlock()
		r.logger.Error("site group over-released", zap.Uint64("group", uint64(g.id)))
		return
	}
	g.refs--
	if g.refs > 0 {
		r.mu.Unlock()
		return
	}

	delete(r.byKey, g.key)
	delete(r.byID, g.id)
	proc := g.process
	g.process = nil
	if proc != nil {
		delete(r.byPID, proc.ID())
	}
	r.opts.Metrics.SetSiteGroups(len(r.byID))
	r.mu.Unlock()

	r.logger.Debug("site group destroyed", zap.Uint64("group", uint64(g.id)), zap.Stringer("key", g.key))
	if proc != nil {
		proc.Terminate(process.ReasonUnused)
	}
}

// EnsureProcess returns the group's live process, launching one if needed.
// A failure leaves the group without a process.
func (r *Registry) EnsureProcess(ctx context.Context, g *Group) (process.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.process != nil && g.process.Alive() {
		return g.process, nil
	}
	if g.process != nil {
		delete(r.byPID, g.process.ID())
		g.process = nil
	}

	if max := r.opts.MaxProcesses; max > 0 && r.liveLocked() >= max {
		r.opts.Metrics.RecordLaunch("limit")
		return nil, fmt.Errorf("%w: %s: %w", ErrProcessLaunch, g.key, ErrProcessLimit)
	}

	var breaker *resilience.Breaker
	if r.opts.Breakers != nil {
		breaker = r.opts.Breakers.Get(g.key.String())
		if err := breaker.Allow(); err != nil {
			r.opts.Metrics.RecordLaunch("breaker_open")
			return nil, fmt.Errorf("%w: %s: %w", ErrProcessLaunch, g.key, err)
		}
	}

	proc, err := r.launcher.Launch(ctx, process.Spec{Key: g.key.String(), Sink: r.sink})
	if err != nil {
		if breaker != nil {
			breaker.Failure()
		}
		r.opts.Metrics.RecordLaunch("error")
		r.logger.Warn("process launch failed", zap.Stringer("key", g.key), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrProcessLaunch, g.key, err)
	}
	if breaker != nil {
		breaker.Success()
	}

	g.process = proc
	g.generation++
	r.byPID[proc.ID()] = g
	r.opts.Metrics.RecordLaunch("ok")
	r.logger.Info("process launched",
		zap.Uint64("pid", uint64(proc.ID())),
		zap.Uint64("group", uint64(g.id)),
		zap.Stringer("key", g.key),
		zap.Uint64("generation", g.generation))
	return proc, nil
}

// GroupForProcess returns the group whose current process is pid
func (r *Registry) GroupForProcess(pid types.ProcessID) (*Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byPID[pid]
	return g, ok
}

// ProcessGone detaches a dead process from its group. Returns false for
// processes that no longer back any group (stale exit events).
func (r *Registry) ProcessGone(pid types.ProcessID, crashed bool) (*Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byPID[pid]
	if !ok {
		return nil, false
	}
	delete(r.byPID, pid)
	if g.process != nil && g.process.ID() == pid {
		g.process = nil
	}
	if crashed && r.opts.Breakers != nil {
		r.opts.Breakers.Get(g.key.String()).Failure()
	}
	return g, true
}

// Get returns a group by id
func (r *Registry) Get(id types.SiteGroupID) (*Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	return g, ok
}

// Groups returns all groups ordered by id
func (r *Registry) Groups() []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Group, 0, len(r.byID))
	for _, g := range r.byID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// LiveProcesses returns the number of groups with a live process
func (r *Registry) LiveProcesses() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.liveLocked()
}

func (r *Registry) liveLocked() int {
	n := 0
	for _, g := range r.byID {
		if g.Live() {
			n++
		}
	}
	return n
}
