package frametree

import (
	"sort"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// reconcile brings every frame's proxy set in line with reachability.
//
// Frames joined by parent, child or opener edges form a component. Every site
// group with a live host (current or speculative) in a component needs a
// proxy of each component frame it does not render. Proxies outside that set
// are deleted children first; missing ones are created parents first, so a
// proxy's parent always exists in the receiving process. reconcile never
// launches processes.
func (c *Coordinator) reconcile() {
	seen := make(map[*Frame]bool)
	for _, t := range c.sortedTrees() {
		for _, f := range t.preorder() {
			if seen[f] {
				continue
			}
			comp := c.component(f)
			for _, g := range comp {
				seen[g] = true
			}
			c.syncComponent(comp)
		}
	}
	c.publishCounts()
}

// component returns the frames reachable from f, ordered tree by tree in pre-order
func (c *Coordinator) component(f *Frame) []*Frame {
	member := map[*Frame]bool{f: true}
	queue := []*Frame{f}
	visit := func(n *Frame) {
		if n != nil && !n.removed && !member[n] {
			member[n] = true
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visit(n.parent)
		for _, ch := range n.children {
			visit(ch)
		}
		visit(n.opener)
		for _, o := range n.openees {
			visit(o)
		}
	}

	trees := make(map[*Tree]bool)
	for n := range member {
		trees[n.tree] = true
	}
	ordered := make([]*Tree, 0, len(trees))
	for t := range trees {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	out := make([]*Frame, 0, len(member))
	for _, t := range ordered {
		for _, n := range t.preorder() {
			if member[n] {
				out = append(out, n)
			}
		}
	}
	return out
}

// requiredGroups returns the groups with a live host in comp
func (c *Coordinator) requiredGroups(comp []*Frame) map[types.SiteGroupID]*site.Group {
	out := make(map[types.SiteGroupID]*site.Group)
	for _, f := range comp {
		if h := f.current; h.live {
			out[h.group.ID()] = h.group
		}
		if s := f.manager.speculative; s != nil && s.live {
			out[s.group.ID()] = s.group
		}
	}
	return out
}

// wantsProxy reports whether g needs a proxy of f. A proxy already in f's
// speculative group is kept until the navigation commits or is cancelled.
func (c *Coordinator) wantsProxy(f *Frame, g *site.Group, required map[types.SiteGroupID]*site.Group) bool {
	if _, ok := required[g.ID()]; !ok {
		return false
	}
	if g == f.current.group {
		return false
	}
	if s := f.manager.speculative; s != nil && s.group == g {
		return f.manager.proxies[g.ID()] != nil
	}
	return true
}

func (c *Coordinator) syncComponent(comp []*Frame) {
	required := c.requiredGroups(comp)
	groups := make([]*site.Group, 0, len(required))
	for _, g := range required {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID() < groups[j].ID() })

	for i := len(comp) - 1; i >= 0; i-- {
		f := comp[i]
		for _, p := range f.manager.sortedProxies() {
			if !c.wantsProxy(f, p.group, required) {
				c.dismissProxy(p, true)
			}
		}
	}

	for _, f := range comp {
		for _, g := range groups {
			if f.manager.proxies[g.ID()] == nil && c.wantsProxy(f, g, required) {
				c.createProxy(f, g)
			}
		}
	}

	for _, f := range comp {
		c.syncProxyState(f)
		c.syncConnector(f)
	}
}

// syncProxyState fixes liveness and opener routing of f's proxies and host
func (c *Coordinator) syncProxyState(f *Frame) {
	for _, p := range f.manager.sortedProxies() {
		if p.live != f.current.live {
			p.live = f.current.live
			c.send(p.process, ipc.SetProxyLive{RoutingID: p.routing, Live: p.live})
		}
		if want := c.openerRoutingIn(f, p.group); want != p.openerRouting {
			p.openerRouting = want
			c.send(p.process, ipc.UpdateOpener{RoutingID: p.routing, OpenerRoutingID: want})
		}
	}
	if h := f.current; h.live {
		if want := c.openerRoutingIn(f, h.group); want != h.openerRouting {
			h.openerRouting = want
			c.send(h.process, ipc.UpdateOpener{RoutingID: h.routing, OpenerRoutingID: want})
		}
	}
}

// createProxy creates f's proxy in g. Frames whose parent g cannot see are
// skipped; they are created once the parent is.
func (c *Coordinator) createProxy(f *Frame, g *site.Group) {
	proc := g.Process()
	if proc == nil || !proc.Alive() {
		return
	}
	var parentRouting types.RoutingID
	if f.parent != nil {
		r, ok := c.routingIn(f.parent, g)
		if !ok {
			return
		}
		parentRouting = r
	}

	p := c.newProxy(f, g, proc)
	p.openerRouting = c.openerRoutingIn(f, g)
	c.send(proc, ipc.CreateFrameProxy{
		RoutingID:       p.routing,
		FrameID:         f.id,
		SiteGroupID:     f.current.group.ID(),
		ParentRoutingID: parentRouting,
		OpenerRoutingID: p.openerRouting,
		Live:            p.live,
		Replicated:      f.replicated,
	})
	if f.containsFocus {
		c.send(proc, ipc.SetHasFocus{RoutingID: p.routing, HasFocus: true})
	}
}

// newProxy registers a proxy without telling its process
func (c *Coordinator) newProxy(f *Frame, g *site.Group, proc process.Process) *Proxy {
	c.sites.Retain(g)
	p := &Proxy{
		frame:   f,
		group:   g,
		process: proc,
		routing: proc.NextRoutingID(),
		live:    f.current.live,
	}
	f.manager.proxies[g.ID()] = p
	c.proxies[routeKey{proc.ID(), p.routing}] = p
	return p
}

// dismissProxy forgets p. With notify set, a live process is told to drop it;
// a dead one is never relaunched for that.
func (c *Coordinator) dismissProxy(p *Proxy, notify bool) {
	f := p.frame
	if f.manager.proxies[p.group.ID()] == p {
		delete(f.manager.proxies, p.group.ID())
	}
	key := routeKey{p.process.ID(), p.routing}
	if c.proxies[key] == p {
		delete(c.proxies, key)
	}
	if f.connector != nil && f.parent != nil && p.group == f.parent.current.group {
		f.connector.destroy()
	}
	if notify {
		c.send(p.process, ipc.DeleteFrameProxy{RoutingID: p.routing})
	}
	c.sites.Release(p.group)
}

// routingIn returns how g's process refers to f: its live host or its proxy
func (c *Coordinator) routingIn(f *Frame, g *site.Group) (types.RoutingID, bool) {
	if h := f.current; h.group == g && h.live {
		return h.routing, true
	}
	if p := f.manager.proxies[g.ID()]; p != nil {
		return p.routing, true
	}
	return types.RoutingNone, false
}

func (c *Coordinator) openerRoutingIn(f *Frame, g *site.Group) types.RoutingID {
	if f.opener == nil {
		return types.RoutingNone
	}
	r, _ := c.routingIn(f.opener, g)
	return r
}
