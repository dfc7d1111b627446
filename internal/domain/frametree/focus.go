package frametree

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
)

// SetFocused moves focus to f. The old focused frame is blurred, and every
// frame whose ancestor chain gained or lost focus is told so in its host
// and in all of its proxies.
func (t *Tree) SetFocused(f *Frame) error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if f == nil || f.removed || f.tree != t {
		return ErrUnknownFrame
	}
	t.c.setFocused(t, f)
	return nil
}

// Focused returns the focused frame, or nil
func (t *Tree) Focused() *Frame {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.focused
}

// HasFocus reports whether f or one of its descendants is focused
func (f *Frame) HasFocus() bool {
	f.tree.c.mu.Lock()
	defer f.tree.c.mu.Unlock()
	return f.containsFocus
}

func (c *Coordinator) setFocused(t *Tree, f *Frame) {
	prev := t.focused
	if prev == f {
		return
	}
	if prev != nil && prev.current.live {
		c.send(prev.current.process, ipc.SetFocus{RoutingID: prev.current.routing, Focused: false})
	}

	var oldPath, newPath []*Frame
	if prev != nil {
		oldPath = prev.ancestry()
	}
	if f != nil {
		newPath = f.ancestry()
	}
	inNew := make(map[*Frame]bool, len(newPath))
	for _, a := range newPath {
		inNew[a] = true
	}
	inOld := make(map[*Frame]bool, len(oldPath))
	for _, a := range oldPath {
		inOld[a] = true
		if !inNew[a] {
			c.setContainsFocus(a, false)
		}
	}
	for _, a := range newPath {
		if !inOld[a] {
			c.setContainsFocus(a, true)
		}
	}

	t.focused = f
	if f != nil && f.current.live {
		c.send(f.current.process, ipc.SetFocus{RoutingID: f.current.routing, Focused: true})
	}

	c.logger.Debug("focus changed", zap.Uint64("tree", uint64(t.id)), zap.Uint64("frame", uint64(frameID(f))))
	c.notifyFocus(t, prev, f)
}

// clearFocus blurs the focused frame of t
func (c *Coordinator) clearFocus(t *Tree) {
	c.setFocused(t, nil)
}

func (c *Coordinator) setContainsFocus(f *Frame, v bool) {
	f.containsFocus = v
	if h := f.current; h.live {
		c.send(h.process, ipc.SetHasFocus{RoutingID: h.routing, HasFocus: v})
	}
	for _, p := range f.manager.sortedProxies() {
		c.send(p.process, ipc.SetHasFocus{RoutingID: p.routing, HasFocus: v})
	}
}

func frameID(f *Frame) uint64 {
	if f == nil {
		return 0
	}
	return uint64(f.id)
}

// Focus focuses f in its tree
func (c *Coordinator) Focus(f *Frame) error {
	if f == nil {
		return ErrUnknownFrame
	}
	return f.tree.SetFocused(f)
}
