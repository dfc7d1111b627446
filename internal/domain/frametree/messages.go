package frametree

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// handleMessage applies one content -> coordinator message. Messages naming
// routing ids that no longer exist are dropped; messages that contradict
// what the coordinator knows about the sender terminate the sender.
func (c *Coordinator) handleMessage(pid types.ProcessID, msg ipc.Message) {
	g, ok := c.sites.GroupForProcess(pid)
	if !ok || g.Process() == nil || !g.Process().Alive() {
		c.drop(msg, "stale_process")
		return
	}
	proc := g.Process()

	switch m := msg.(type) {
	case ipc.BeginNavigation:
		h, ok := c.hostFrom(proc, m, m.RoutingID)
		if !ok {
			return
		}
		u, err := parseURL(m.URL)
		if err != nil {
			c.drop(m, "invalid_url")
			return
		}
		if _, err := c.navigate(context.Background(), h.frame, u, true); err != nil {
			c.logger.Info("renderer navigation refused", zap.Uint64("frame", uint64(h.frame.id)), zap.Error(err))
		}

	case ipc.CommitNavigation:
		c.handleCommit(proc, m)

	case ipc.SwapOutAck:
		h := c.hosts[routeKey{pid, m.RoutingID}]
		if h == nil || h.state != HostPendingDeletion {
			c.drop(m, "unexpected_ack")
			return
		}
		c.deleteHost(h)
		c.publishCounts()

	case ipc.DetachFrame:
		f, ok := c.frameFrom(proc, m, m.RoutingID, true)
		if !ok {
			return
		}
		if f.parent == nil {
			c.logger.Warn("refusing to detach main frame", zap.Uint64("frame", uint64(f.id)), zap.Uint64("pid", uint64(pid)))
			c.drop(m, "main_frame")
			return
		}
		if err := c.removeFrame(f); err != nil {
			c.logger.Debug("detach failed", zap.Uint64("frame", uint64(f.id)), zap.Uint64("pid", uint64(pid)), zap.Error(err))
		}

	case ipc.CreateChildFrame:
		h, ok := c.hostFrom(proc, m, m.ParentRoutingID)
		if !ok {
			return
		}
		if _, err := c.createChild(h.frame, -1, ChildOptions{Name: m.Name, Sandbox: m.Sandbox}); err != nil {
			c.drop(m, "parent_not_live")
		}

	case ipc.UpdateFramePolicy:
		f, ok := c.frameFrom(proc, m, m.RoutingID, false)
		if !ok {
			return
		}
		c.setPendingSandbox(f, m.Sandbox)

	case ipc.UpdateReplicatedState:
		h, ok := c.hostFrom(proc, m, m.RoutingID)
		if !ok {
			return
		}
		switch m.Field {
		case types.FieldName:
			c.setName(h.frame, m.State.Name)
		case types.FieldStrictMixedContent:
			c.setStrictMixedContent(h.frame, m.State.StrictMixedContent)
		default:
			c.violation(proc, m, "field "+string(m.Field)+" is owned by the coordinator")
		}

	case ipc.CreateNewWindow:
		h, ok := c.hostFrom(proc, m, m.OpenerRoutingID)
		if !ok {
			return
		}
		if _, err := c.openPopup(context.Background(), h.frame, m.URL, m.Name, true); err != nil {
			if !isPopupRefusal(err) {
				c.logger.Error("popup failed", zap.Error(err))
			}
			c.logger.Info("popup refused", zap.Uint64("opener", uint64(h.frame.id)), zap.Error(err))
		}

	case ipc.FocusFrame:
		h, ok := c.hostFrom(proc, m, m.RoutingID)
		if !ok {
			return
		}
		c.setFocused(h.frame.tree, h.frame)

	case ipc.DisownOpener:
		h, ok := c.hostFrom(proc, m, m.RoutingID)
		if !ok {
			return
		}
		c.disownOpener(h.frame)

	case ipc.SurfaceReady:
		h, ok := c.hostFrom(proc, m, m.RoutingID)
		if !ok {
			return
		}
		f := h.frame
		if f.connector != nil {
			if f.connector.surfaceReady(m.Surface) {
				f.surface = m.Surface
			}
			return
		}
		f.surface = m.Surface

	case ipc.PostMessage:
		c.relayPostMessage(proc, m)

	default:
		// Hello belongs to the attach handshake; anything else flows the other way
		c.violation(proc, msg, "unexpected message kind")
	}
}

func (c *Coordinator) handleCommit(proc process.Process, m ipc.CommitNavigation) {
	h := c.hosts[routeKey{proc.ID(), m.RoutingID}]
	if h == nil || h.frame.removed || h.state == HostPendingDeletion {
		c.drop(m, "unknown_routing")
		return
	}
	f := h.frame
	nav := f.manager.pending
	if nav == nil || nav.id != m.NavigationID {
		c.drop(m, "stale_navigation")
		return
	}
	if nav.host != h {
		c.violation(proc, m, "commit from a host the navigation was not sent to")
		return
	}
	if err := c.commit(f, h, nav, m); err != nil {
		c.violation(proc, m, err.Error())
	}
}

// hostFrom resolves routing to a current host in proc. Unknown ids and
// outgoing hosts are stale; using a proxy id or a speculative host as a
// local frame is a violation.
func (c *Coordinator) hostFrom(proc process.Process, msg ipc.Message, routing types.RoutingID) (*Host, bool) {
	key := routeKey{proc.ID(), routing}
	h := c.hosts[key]
	switch {
	case h == nil && c.proxies[key] != nil:
		c.violation(proc, msg, "routing id names a proxy")
		return nil, false
	case h == nil || h.frame.removed || h.state == HostPendingDeletion:
		c.drop(msg, "unknown_routing")
		return nil, false
	case h.state == HostSpeculative:
		c.violation(proc, msg, "provisional frame acted before commit")
		return nil, false
	}
	return h, true
}

// frameFrom resolves a routing id that proc may use for a frame it renders
// or, through a proxy, for a child of a frame it renders. The parent's
// process may always act; the frame's own process only when self is set.
func (c *Coordinator) frameFrom(proc process.Process, msg ipc.Message, routing types.RoutingID, self bool) (*Frame, bool) {
	key := routeKey{proc.ID(), routing}
	var f *Frame
	if h := c.hosts[key]; h != nil {
		if h.state != HostActive || h.frame.removed {
			c.drop(msg, "unknown_routing")
			return nil, false
		}
		f = h.frame
	} else if p := c.proxies[key]; p != nil {
		f = p.frame
	} else {
		c.drop(msg, "unknown_routing")
		return nil, false
	}

	if self && f.current.process == proc {
		return f, true
	}
	if f.parent != nil && f.parent.current.process == proc && f.parent.current.live {
		return f, true
	}
	c.violation(proc, msg, "frame is not owned by sender")
	return nil, false
}

// violation terminates proc for sending msg
func (c *Coordinator) violation(proc process.Process, msg ipc.Message, reason string) {
	c.logger.Warn("protocol violation",
		zap.Uint64("pid", uint64(proc.ID())),
		zap.Stringer("kind", msg.Kind()),
		zap.String("reason", reason))
	c.metrics.RecordViolation(msg.Kind().String())
	proc.Terminate(process.ReasonProtocolViolation)
}

func (c *Coordinator) drop(msg ipc.Message, reason string) {
	c.logger.Debug("message dropped", zap.Stringer("kind", msg.Kind()), zap.String("reason", reason))
	c.metrics.RecordDropped(msg.Kind().String(), reason)
}
