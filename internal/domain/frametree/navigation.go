package frametree

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Navigate starts a browser-initiated navigation of f
func (c *Coordinator) Navigate(ctx context.Context, f *Frame, rawURL string) (Decision, error) {
	return f.manager.StartNavigation(ctx, rawURL, false)
}

func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, raw)
	}
	return u, nil
}

func (c *Coordinator) navigate(ctx context.Context, f *Frame, target *url.URL, rendererInitiated bool) (Decision, error) {
	verdict, err := c.policy.Check(f.replicated.Origin, target, rendererInitiated)
	if err != nil {
		c.metrics.RecordNavigation("none", "rejected", 0)
		return SameSiteGroup, fmt.Errorf("%w: %w", ErrIllegalNavigation, err)
	}
	u := verdict.URL
	if verdict.Rewritten {
		c.logger.Info("navigation rewritten to placeholder",
			zap.Uint64("frame", uint64(f.id)),
			zap.String("target", target.String()),
			zap.String("reason", verdict.Reason))
	}

	key := c.keyFor(u, f)
	cur := f.current
	decision := CrossSiteGroup
	if key == cur.group.Key() {
		decision = SameSiteGroup
	}

	if decision == SameSiteGroup && cur.live {
		if c.cancelNavigation(f, "superseded") {
			c.reconcile()
		}
		nav := c.newNavigation(ctx, f, u, cur, decision, rendererInitiated)
		c.send(cur.process, ipc.Navigate{
			RoutingID:    cur.routing,
			NavigationID: nav.id,
			URL:          nav.url,
			Sandbox:      nav.sandbox,
		})
		return decision, nil
	}

	// A new host is needed: the frame changes group, or its process died.
	group := c.sites.Acquire(key)
	proc, err := c.sites.EnsureProcess(ctx, group)
	if err != nil {
		c.sites.Release(group)
		c.metrics.RecordNavigation(decision.String(), "failed", 0)
		return decision, err
	}
	c.cancelNavigation(f, "superseded")

	spec := c.newHost(f, group, proc, HostSpeculative)
	f.manager.speculative = spec
	nav := c.newNavigation(ctx, f, u, spec, decision, rendererInitiated)

	// parent and opener need stand-ins in the new process first
	c.reconcile()

	msg := ipc.CreateFrame{
		RoutingID:   spec.routing,
		FrameID:     f.id,
		Provisional: true,
		Replicated:  f.replicated,
	}
	if f.parent != nil {
		msg.ParentRoutingID, _ = c.routingIn(f.parent, group)
	}
	if p := f.manager.proxies[group.ID()]; p != nil {
		msg.PreviousProxyRoutingID = p.routing
	}
	spec.openerRouting = c.openerRoutingIn(f, group)
	msg.OpenerRoutingID = spec.openerRouting

	c.send(proc, msg)
	c.send(proc, ipc.Navigate{
		RoutingID:    spec.routing,
		NavigationID: nav.id,
		URL:          nav.url,
		Sandbox:      nav.sandbox,
	})

	c.logger.Debug("cross-group navigation started",
		zap.Uint64("frame", uint64(f.id)),
		zap.Uint64("navigation", uint64(nav.id)),
		zap.Stringer("key", key),
		zap.Uint64("pid", uint64(proc.ID())))
	return decision, nil
}

func (c *Coordinator) newNavigation(ctx context.Context, f *Frame, u *url.URL, h *Host, d Decision, rendererInitiated bool) *navigation {
	c.nextNav++
	nav := &navigation{
		id:                c.nextNav,
		url:               u.String(),
		host:              h,
		decision:          d,
		rendererInitiated: rendererInitiated,
		sandbox:           f.replicated.PendingSandbox,
		started:           time.Now(),
	}
	if c.tracer != nil {
		nav.span, _ = c.tracer.StartSpan(ctx, "frametree.navigate")
		nav.span.SetTag("frame", f.id.String())
		nav.span.SetTag("url", nav.url)
		nav.span.SetTag("decision", d.String())
	}
	f.manager.pending = nav
	return nav
}

// cancelNavigation drops f's pending navigation and its speculative host.
// It reports whether a speculative host was discarded; callers then reconcile.
func (c *Coordinator) cancelNavigation(f *Frame, outcome string) bool {
	m := f.manager
	if nav := m.pending; nav != nil {
		m.pending = nil
		c.finishNavigation(nav, outcome, nil)
	}
	s := m.speculative
	if s == nil {
		return false
	}
	m.speculative = nil
	if s.live {
		c.send(s.process, ipc.DeleteFrame{RoutingID: s.routing})
	}
	c.deleteHost(s)
	return true
}

func (c *Coordinator) finishNavigation(nav *navigation, outcome string, err error) {
	c.metrics.RecordNavigation(nav.decision.String(), outcome, time.Since(nav.started))
	if nav.span == nil {
		return
	}
	nav.span.SetTag("outcome", outcome)
	if err != nil {
		nav.span.SetError(err)
	}
	nav.span.Finish()
	c.tracer.Submit(nav.span)
}

// commit applies a CommitNavigation from h, the host nav was sent to
func (c *Coordinator) commit(f *Frame, h *Host, nav *navigation, m ipc.CommitNavigation) error {
	if m.URL != nav.url {
		return fmt.Errorf("%w: committed %q, navigation was to %q", ErrProtocolViolation, m.URL, nav.url)
	}
	origin := m.Origin
	if origin.Opaque {
		if creator := creatorOf(f); creator != nil && strings.HasPrefix(nav.url, "about:") &&
			creator.current.group == h.group {
			origin = creator.replicated.Origin
		}
	} else if key := c.resolver.ForOrigin(origin); key != h.group.Key() {
		return fmt.Errorf("%w: origin %s does not belong to %s", ErrProtocolViolation, origin, h.group.Key())
	}
	// without allow-same-origin the document is in a unique opaque origin
	// whatever the renderer reported
	if f.replicated.PendingSandbox.Has(types.SandboxOrigin) && !origin.Opaque {
		c.logger.Debug("sandboxed commit forced opaque",
			zap.Uint64("frame", uint64(f.id)),
			zap.Stringer("reported", origin))
		origin = types.OpaqueOrigin()
	}

	f.manager.pending = nil
	for _, ch := range f.Children() {
		c.destroySubtree(ch)
	}

	prev := f.replicated
	f.url = nav.url
	f.replicated.Origin = origin
	f.replicated.EffectiveSandbox = f.replicated.PendingSandbox

	var old *Host
	if h != f.current {
		// the provisional frame has already replaced this proxy
		if p := f.manager.proxies[h.group.ID()]; p != nil {
			c.dismissProxy(p, false)
		}
		old = f.current
		h.state = HostActive
		f.current = h
		f.manager.speculative = nil
	}

	c.broadcastChanges(f, prev)
	if f.replicated.EffectiveSandbox != nav.sandbox {
		c.send(h.process, ipc.UpdateReplicatedState{
			RoutingID: h.routing,
			Field:     types.FieldEffectiveSandbox,
			State:     f.replicated,
		})
	}
	if old != nil {
		f.surface = types.SurfaceID{}
		c.retireHost(old)
	}

	c.reconcile()

	if old != nil {
		if f.connector != nil {
			f.connector.geometryChanged()
		}
		if f.containsFocus {
			c.send(h.process, ipc.SetHasFocus{RoutingID: h.routing, HasFocus: true})
		}
		if f.tree.focused == f {
			c.send(h.process, ipc.SetFocus{RoutingID: h.routing, Focused: true})
		}
	}

	c.finishNavigation(nav, "committed", nil)
	c.logger.Info("navigation committed",
		zap.Uint64("frame", uint64(f.id)),
		zap.Uint64("navigation", uint64(nav.id)),
		zap.String("url", f.url),
		zap.Stringer("decision", nav.decision),
		zap.Stringer("origin", origin))
	c.notifyCommitted(f)
	return nil
}

// retireHost swaps out a replaced host. It stays registered, pending
// deletion, until its process acknowledges or the unload timeout fires.
func (c *Coordinator) retireHost(old *Host) {
	f := old.frame
	if !old.live {
		c.deleteHost(old)
		return
	}

	old.state = HostPendingDeletion
	c.pending[old] = struct{}{}

	msg := ipc.SwapOut{RoutingID: old.routing, Replicated: f.replicated}
	if _, ok := c.requiredGroups(c.component(f))[old.group.ID()]; ok {
		p := c.newProxy(f, old.group, old.process)
		p.openerRouting = old.openerRouting
		msg.ProxyRoutingID = p.routing
	}
	c.send(old.process, msg)
	if msg.ProxyRoutingID != types.RoutingNone && f.containsFocus {
		c.send(old.process, ipc.SetHasFocus{RoutingID: msg.ProxyRoutingID, HasFocus: true})
	}

	old.unloadTimer = c.afterFunc(c.unloadTimeout, func() {
		c.post(event{unload: old})
	})
}

func (c *Coordinator) unloadTimedOut(h *Host) {
	if _, ok := c.pending[h]; !ok {
		return
	}
	c.logger.Warn("unload handshake timed out",
		zap.Uint64("frame", uint64(h.frame.id)),
		zap.Uint64("pid", uint64(h.process.ID())),
		zap.Int32("routing", int32(h.routing)))
	h.unloadTimer = nil
	c.deleteHost(h)
	c.publishCounts()
}

// creatorOf returns the frame an about: document inherits its origin from
func creatorOf(f *Frame) *Frame {
	if f.parent != nil {
		return f.parent
	}
	return f.opener
}
