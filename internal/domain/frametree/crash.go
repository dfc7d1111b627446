package frametree

import (
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// processGone sweeps everything bound to a dead process. Hosts in it become
// non-live and keep their frames; proxies of those frames elsewhere stay as
// non-live placeholders. Children of crashed frames are destroyed, pending
// navigations into the process fail, and proxies inside it are forgotten.
func (c *Coordinator) processGone(pid types.ProcessID, reason string) {
	crashed := reason == process.ReasonCrashed || reason == process.ReasonLaunchTimeout
	g, ok := c.sites.ProcessGone(pid, crashed)
	if !ok {
		c.logger.Debug("exit of unbound process ignored", zap.Uint64("pid", uint64(pid)), zap.String("reason", reason))
		return
	}
	c.metrics.RecordProcessGone()
	c.logger.Info("process gone",
		zap.Uint64("pid", uint64(pid)),
		zap.Uint64("group", uint64(g.ID())),
		zap.Stringer("key", g.Key()),
		zap.String("reason", reason))

	var hosts []*Host
	for key, h := range c.hosts {
		if key.pid == pid {
			hosts = append(hosts, h)
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].routing < hosts[j].routing })

	var dead []*Frame
	for _, h := range hosts {
		h.live = false
		switch h.state {
		case HostSpeculative:
			h.frame.manager.speculative = nil
			if nav := h.frame.manager.pending; nav != nil && nav.host == h {
				h.frame.manager.pending = nil
				c.finishNavigation(nav, "process_gone", nil)
			}
			c.deleteHost(h)
		case HostPendingDeletion:
			c.deleteHost(h)
		default:
			if nav := h.frame.manager.pending; nav != nil && nav.host == h {
				h.frame.manager.pending = nil
				c.finishNavigation(nav, "process_gone", nil)
			}
			h.frame.surface = types.SurfaceID{}
			if k := h.frame.connector; k != nil {
				k.surface = types.SurfaceID{}
			}
			dead = append(dead, h.frame)
		}
	}

	var proxies []*Proxy
	for key, p := range c.proxies {
		if key.pid == pid {
			proxies = append(proxies, p)
		}
	}
	sort.Slice(proxies, func(i, j int) bool { return proxies[i].routing < proxies[j].routing })
	for _, p := range proxies {
		c.dismissProxy(p, false)
	}

	sort.Slice(dead, func(i, j int) bool { return dead[i].depth() < dead[j].depth() })
	for _, f := range dead {
		if f.removed {
			continue
		}
		for _, ch := range f.Children() {
			c.destroySubtree(ch)
		}
	}

	c.reconcile()
	c.notifyProcessGone(pid, reason)
}
