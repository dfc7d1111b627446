package frametree

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Connector links a child frame to a parent rendered by another process.
// Geometry flows down to the child's host; the child's surface flows up to
// the parent's proxy of the child.
type Connector struct {
	c     *Coordinator
	frame *Frame

	surface   types.SurfaceID
	destroyed bool
}

// ConnectorView is a test and debug snapshot of a connector
type ConnectorView struct {
	Frame       types.FrameID     `json:"frame"`
	ParentGroup types.SiteGroupID `json:"parent_group"`
	ChildGroup  types.SiteGroupID `json:"child_group"`
	Rect        types.Rect        `json:"rect"`
	Scale       float64           `json:"scale"`
	Visible     bool              `json:"visible"`
	HitTestable bool              `json:"hit_testable"`
	Surface     types.SurfaceID   `json:"surface"`
}

// Frame returns the child frame
func (k *Connector) Frame() *Frame { return k.frame }

// OnChildSurfaceReady records a new surface for the child and hands it to the
// parent's process. Surfaces older than the current one are ignored.
func (k *Connector) OnChildSurfaceReady(id types.SurfaceID) bool {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.surfaceReady(id)
}

// OnSizeChanged resizes the child
func (k *Connector) OnSizeChanged(size types.Size) {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	if k.destroyed {
		return
	}
	k.frame.rect.Size = size
	k.geometryChanged()
}

// OnVisibilityChanged shows or hides the child
func (k *Connector) OnVisibilityChanged(visible bool) {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	if k.destroyed {
		return
	}
	k.frame.visible = visible
	k.geometryChanged()
}

// View returns the connector's current state
func (k *Connector) View() ConnectorView {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.view()
}

// Destroyed reports whether the connector was torn down
func (k *Connector) Destroyed() bool {
	k.c.mu.Lock()
	defer k.c.mu.Unlock()
	return k.destroyed
}

func (k *Connector) view() ConnectorView {
	f := k.frame
	v := ConnectorView{
		Frame:       f.id,
		ChildGroup:  f.current.group.ID(),
		Rect:        f.rect,
		Scale:       f.scale,
		Visible:     f.visible,
		HitTestable: f.hitTestable,
		Surface:     k.surface,
	}
	if f.parent != nil {
		v.ParentGroup = f.parent.current.group.ID()
	}
	return v
}

func (k *Connector) surfaceReady(id types.SurfaceID) bool {
	if k.destroyed || !id.IsValid() {
		return false
	}
	if k.surface.IsValid() && id.SinkID == k.surface.SinkID && !id.NewerThan(k.surface) {
		k.c.logger.Debug("stale child surface ignored",
			zap.Uint64("frame", uint64(k.frame.id)),
			zap.Stringer("surface", id),
			zap.Stringer("current", k.surface))
		return false
	}
	k.surface = id
	k.forwardSurface()
	return true
}

// forwardSurface hands the current surface to the parent's proxy of the child
func (k *Connector) forwardSurface() {
	f := k.frame
	if !k.surface.IsValid() || f.parent == nil {
		return
	}
	p := f.manager.proxies[f.parent.current.group.ID()]
	if p == nil {
		return
	}
	k.c.send(p.process, ipc.SetChildSurface{RoutingID: p.routing, Surface: k.surface})
}

func (k *Connector) geometryChanged() {
	h := k.frame.current
	if !h.live {
		return
	}
	k.c.send(h.process, ipc.UpdateGeometry{
		RoutingID: h.routing,
		Rect:      k.frame.rect,
		Scale:     k.frame.scale,
		Visible:   k.frame.visible,
	})
}

func (k *Connector) destroy() {
	if k.destroyed {
		return
	}
	k.destroyed = true
	if k.frame.connector == k {
		k.frame.connector = nil
	}
}

// syncConnector creates or destroys f's connector. One exists while f's
// parent is rendered by another group that holds a proxy of f.
func (c *Coordinator) syncConnector(f *Frame) {
	need := f.parent != nil && !f.removed &&
		f.parent.current.group != f.current.group &&
		f.manager.proxies[f.parent.current.group.ID()] != nil

	switch {
	case need && f.connector == nil:
		k := &Connector{c: c, frame: f}
		f.connector = k
		k.geometryChanged()
		if f.surface.IsValid() {
			k.surfaceReady(f.surface)
		}
	case !need && f.connector != nil:
		f.connector.destroy()
	}
}
