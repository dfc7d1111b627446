package frametree

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// ChildOptions describes an iframe being inserted
type ChildOptions struct {
	Name string
	// Sandbox holds the flags from the iframe's sandbox attribute
	Sandbox types.SandboxFlags
	// Rect places the child in the parent's coordinates; zero means 300x150 at the origin
	Rect  types.Rect
	Scale float64
	// Hidden and NotHitTestable mirror visibility:hidden and pointer-events:none
	Hidden         bool
	NotHitTestable bool
}

var defaultChildRect = types.NewRect(0, 0, 300, 150)

// NewTree creates a page and starts loading rawURL in its main frame
func (c *Coordinator) NewTree(ctx context.Context, rawURL string) (*Tree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	verdict, err := c.policy.Check(types.OpaqueOrigin(), u, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIllegalNavigation, err)
	}

	key := c.keyFor(verdict.URL, nil)
	group := c.sites.Acquire(key)
	proc, err := c.sites.EnsureProcess(ctx, group)
	if err != nil {
		c.sites.Release(group)
		return nil, err
	}

	t := c.newTreeRecord()
	root := c.newFrame(t, nil, types.ReplicatedState{Origin: types.OpaqueOrigin()})
	t.root = root
	root.current = c.newHost(root, group, proc, HostActive)

	c.send(proc, ipc.CreateFrame{
		RoutingID:  root.current.routing,
		FrameID:    root.id,
		Replicated: root.replicated,
	})
	c.notifyCreated(root)
	c.reconcile()

	if _, err := c.navigate(ctx, root, verdict.URL, false); err != nil {
		c.logger.Warn("initial navigation failed", zap.Uint64("frame", uint64(root.id)), zap.Error(err))
	}
	c.logger.Info("tree created", zap.Uint64("tree", uint64(t.id)), zap.String("url", verdict.URL.String()))
	return t, nil
}

// CloseTree destroys a page and every frame in it
func (c *Coordinator) CloseTree(t *Tree) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t == nil || t.closed {
		return ErrUnknownTree
	}
	c.closeTree(t)
	return nil
}

func (c *Coordinator) closeTree(t *Tree) {
	c.destroySubtree(t.root)
	t.closed = true
	delete(c.trees, t.id)
	c.reconcile()
	c.logger.Info("tree closed", zap.Uint64("tree", uint64(t.id)))
}

// CreateChild inserts a child frame at index (negative appends). The child
// starts on about:blank in its parent's site group, sandboxed by its own
// attribute plus everything its parent is or will be sandboxed with.
func (t *Tree) CreateChild(parent *Frame, index int, opts ChildOptions) (*Frame, error) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if parent == nil || parent.removed || parent.tree != t {
		return nil, ErrUnknownFrame
	}
	return t.c.createChild(parent, index, opts)
}

func (c *Coordinator) createChild(parent *Frame, index int, opts ChildOptions) (*Frame, error) {
	ph := parent.current
	if !ph.live {
		return nil, ErrFrameNotLive
	}

	pending := opts.Sandbox | parent.replicated.EffectiveSandbox | parent.replicated.PendingSandbox
	origin := parent.replicated.Origin
	if pending.Has(types.SandboxOrigin) {
		origin = types.OpaqueOrigin()
	}
	child := c.newFrame(parent.tree, parent, types.ReplicatedState{
		Name:               opts.Name,
		Origin:             origin,
		PendingSandbox:     pending,
		EffectiveSandbox:   pending,
		StrictMixedContent: parent.replicated.StrictMixedContent,
	})
	if !opts.Rect.Size.IsEmpty() {
		child.rect = opts.Rect
	}
	if opts.Scale > 0 {
		child.scale = opts.Scale
	}
	child.visible = !opts.Hidden
	child.hitTestable = !opts.NotHitTestable

	if index < 0 || index > len(parent.children) {
		index = len(parent.children)
	}
	var previous *Frame
	if index > 0 {
		previous = parent.children[index-1]
	}
	parent.children = append(parent.children, nil)
	copy(parent.children[index+1:], parent.children[index:])
	parent.children[index] = child
	child.replicated.UniqueName = uniqueName(parent, child)

	c.sites.Retain(ph.group)
	child.current = c.newHost(child, ph.group, ph.process, HostActive)

	msg := ipc.CreateFrame{
		RoutingID:       child.current.routing,
		FrameID:         child.id,
		ParentRoutingID: ph.routing,
		Replicated:      child.replicated,
	}
	if previous != nil {
		msg.PreviousSiblingRoutingID, _ = c.routingIn(previous, ph.group)
	}
	c.send(ph.process, msg)

	c.notifyCreated(child)
	c.reconcile()
	return child, nil
}

// Remove detaches frame and its subtree. Removing a frame twice is a no-op.
func (t *Tree) Remove(f *Frame) error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if f == nil || f.removed {
		return nil
	}
	if f.tree != t {
		return ErrUnknownFrame
	}
	return t.c.removeFrame(f)
}

func (c *Coordinator) removeFrame(f *Frame) error {
	if f.removed {
		return nil
	}
	if f.parent == nil {
		return ErrCannotRemoveRoot
	}
	c.destroySubtree(f)
	c.reconcile()
	return nil
}

// Find returns a frame of this tree by id
func (t *Tree) Find(id types.FrameID) *Frame {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	f := t.c.frames[id]
	if f == nil || f.tree != t {
		return nil
	}
	return f
}

// Frames returns the tree's frames in pre-order
func (t *Tree) Frames() []*Frame {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.preorder()
}

func (t *Tree) preorder() []*Frame {
	var out []*Frame
	var walk func(*Frame)
	walk = func(f *Frame) {
		out = append(out, f)
		for _, ch := range f.children {
			walk(ch)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	return out
}

// SetViewSize resizes the page's viewport
func (t *Tree) SetViewSize(size types.Size) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.view = size
}

// destroySubtree removes f's descendants and then f, children first
func (c *Coordinator) destroySubtree(f *Frame) {
	for _, ch := range append([]*Frame(nil), f.children...) {
		c.destroySubtree(ch)
	}
	c.destroyFrame(f)
}

func (c *Coordinator) destroyFrame(f *Frame) {
	t := f.tree
	if t.focused == f {
		c.clearFocus(t)
	}

	for _, o := range sortedFrames(f.openees) {
		o.opener = nil
	}
	f.openees = nil
	if f.opener != nil {
		delete(f.opener.openees, f.id)
		f.opener = nil
	}

	c.cancelNavigation(f, "frame_removed")
	if f.connector != nil {
		f.connector.destroy()
	}
	t.router.Release(f.id)

	for h := range c.pending {
		if h.frame == f {
			c.deleteHost(h)
		}
	}
	for _, p := range f.manager.sortedProxies() {
		c.dismissProxy(p, true)
	}

	h := f.current
	if h.live {
		c.send(h.process, ipc.DeleteFrame{RoutingID: h.routing})
	}
	c.deleteHost(h)

	if p := f.parent; p != nil {
		for i, ch := range p.children {
			if ch == f {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	f.removed = true
	delete(c.frames, f.id)
	c.metrics.FrameDestroyed()
	c.notifyRemoved(f)
}

func (c *Coordinator) newFrame(t *Tree, parent *Frame, state types.ReplicatedState) *Frame {
	c.nextFrame++
	f := &Frame{
		id:          c.nextFrame,
		tree:        t,
		parent:      parent,
		replicated:  state,
		url:         "about:blank",
		openees:     make(map[types.FrameID]*Frame),
		rect:        defaultChildRect,
		scale:       1,
		visible:     true,
		hitTestable: true,
	}
	if parent == nil {
		f.rect = types.Rect{Size: t.view}
		f.replicated.UniqueName = uniqueName(nil, f)
	}
	f.manager = &Manager{c: c, frame: f, proxies: make(map[types.SiteGroupID]*Proxy)}
	c.frames[f.id] = f
	c.metrics.FrameCreated()
	return f
}

func (c *Coordinator) newHost(f *Frame, g *site.Group, proc process.Process, state HostState) *Host {
	h := &Host{
		frame:   f,
		group:   g,
		process: proc,
		routing: proc.NextRoutingID(),
		state:   state,
		live:    true,
	}
	c.hosts[routeKey{proc.ID(), h.routing}] = h
	return h
}

// deleteHost forgets h and releases its site group reference
func (c *Coordinator) deleteHost(h *Host) {
	key := routeKey{h.process.ID(), h.routing}
	if c.hosts[key] == h {
		delete(c.hosts, key)
	}
	delete(c.pending, h)
	if h.unloadTimer != nil {
		h.unloadTimer.Stop()
		h.unloadTimer = nil
	}
	h.live = false
	c.sites.Release(h.group)
}

// keyFor resolves the site key for u. Inheriting URLs take creator's group.
func (c *Coordinator) keyFor(u *url.URL, creator *Frame) site.Key {
	key, inherit := c.resolver.ForURL(u)
	if !inherit {
		return key
	}
	if creator != nil {
		return creator.current.group.Key()
	}
	return site.BlankKey
}

// uniqueName returns a name no sibling of f uses
func uniqueName(parent *Frame, f *Frame) string {
	base := f.replicated.Name
	if base == "" {
		return fmt.Sprintf("<!--frame%d-->", f.id)
	}
	if parent == nil {
		return base
	}
	taken := func(name string) bool {
		for _, s := range parent.children {
			if s != f && s.replicated.UniqueName == name {
				return true
			}
		}
		return false
	}
	name := base
	for i := 1; taken(name); i++ {
		name = fmt.Sprintf("%s/<!--%d-->", base, i)
	}
	return name
}

func sortedFrames(m map[types.FrameID]*Frame) []*Frame {
	out := make([]*Frame, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
