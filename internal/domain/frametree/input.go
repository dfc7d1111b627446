package frametree

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/input"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Geometry places a frame inside its parent
type Geometry struct {
	Rect        types.Rect
	Scale       float64
	Visible     bool
	HitTestable bool
}

// Geometry returns f's placement
func (f *Frame) Geometry() Geometry {
	f.tree.c.mu.Lock()
	defer f.tree.c.mu.Unlock()
	return Geometry{Rect: f.rect, Scale: f.scale, Visible: f.visible, HitTestable: f.hitTestable}
}

// SetFrameGeometry moves or resizes f inside its parent. A child in another
// process learns about it through its connector. For a main frame only the
// size is used; it becomes the view size.
func (c *Coordinator) SetFrameGeometry(f *Frame, g Geometry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil || f.removed {
		return ErrUnknownFrame
	}
	if f.parent == nil {
		f.tree.view = g.Rect.Size
		return nil
	}
	if g.Scale <= 0 {
		g.Scale = 1
	}
	f.rect, f.scale, f.visible, f.hitTestable = g.Rect, g.Scale, g.Visible, g.HitTestable
	if f.connector != nil {
		f.connector.geometryChanged()
	}
	return nil
}

// RouteMouseEvent delivers ev, given in t's view coordinates, to the host
// under the pointer (or holding capture). The host is the nearest frame at
// or above the hit frame whose parent lives in another process; the event
// reaches it in that frame's coordinates. Returns the receiving frame and
// the event as delivered.
func (c *Coordinator) RouteMouseEvent(t *Tree, ev types.InputEvent) (*Frame, types.InputEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t == nil || t.closed {
		return nil, ev, ErrUnknownTree
	}

	root := c.surfaces(t)
	target, _, ok := t.router.Route(root, ev)
	if !ok {
		return nil, ev, ErrUnknownFrame
	}
	f := c.frames[target.Frame]
	if f == nil {
		return nil, ev, ErrUnknownFrame
	}
	for f.parent != nil && f.parent.current.group == f.current.group {
		f = f.parent
	}
	p, ok := input.Transform(root, f.id, ev.Position)
	if !ok {
		return nil, ev, ErrUnknownFrame
	}
	ev.Position = p

	h := f.current
	if !h.live {
		return f, ev, ErrFrameNotLive
	}
	c.send(h.process, ipc.RouteInputEvent{RoutingID: h.routing, Event: ev})

	kind := "child"
	if f.parent == nil {
		kind = "root"
	}
	c.metrics.RecordInput(kind)
	c.logger.Debug("input routed",
		zap.Uint64("frame", uint64(f.id)),
		zap.String("type", string(ev.Type)),
		zap.Stringer("position", ev.Position))
	return f, ev, nil
}

// surfaces builds the hit-test tree of t. The root fills the view.
func (c *Coordinator) surfaces(t *Tree) *input.Surface {
	var build func(f *Frame) *input.Surface
	build = func(f *Frame) *input.Surface {
		s := &input.Surface{
			Frame:       f.id,
			Bounds:      f.rect,
			Scale:       f.scale,
			Visible:     f.visible,
			HitTestable: f.hitTestable,
		}
		if f.parent == nil {
			s.Bounds = types.Rect{Size: t.view}
			s.Scale, s.Visible, s.HitTestable = 1, true, true
		}
		for _, ch := range f.children {
			s.Children = append(s.Children, build(ch))
		}
		return s
	}
	return build(t.root)
}
