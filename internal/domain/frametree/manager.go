package frametree

import (
	"context"
	"sort"
	"time"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Decision says whether a navigation keeps the frame in its site group
type Decision int

const (
	SameSiteGroup Decision = iota
	CrossSiteGroup
)

func (d Decision) String() string {
	if d == SameSiteGroup {
		return "same_site_group"
	}
	return "cross_site_group"
}

// navigation is an in-flight load in one frame
type navigation struct {
	id                types.NavigationID
	url               string
	host              *Host
	decision          Decision
	rendererInitiated bool
	sandbox           types.SandboxFlags
	started           time.Time
	span              *tracing.Span
}

// NavigationInfo describes a pending navigation
type NavigationInfo struct {
	ID                types.NavigationID
	URL               string
	Decision          Decision
	RendererInitiated bool
	// Speculative is set when the navigation commits into a new host
	Speculative bool
}

// Manager owns a frame's proxies and drives its navigations
type Manager struct {
	c     *Coordinator
	frame *Frame

	proxies     map[types.SiteGroupID]*Proxy
	speculative *Host
	pending     *navigation
}

// Frame returns the managed frame
func (m *Manager) Frame() *Frame { return m.frame }

// StartNavigation begins loading rawURL. Cross-group navigations launch the
// target group's process if needed and wait for the content process to
// commit; a failed launch leaves the frame untouched.
func (m *Manager) StartNavigation(ctx context.Context, rawURL string, rendererInitiated bool) (Decision, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	if m.frame.removed {
		return SameSiteGroup, ErrUnknownFrame
	}
	u, err := parseURL(rawURL)
	if err != nil {
		return SameSiteGroup, err
	}
	return m.c.navigate(ctx, m.frame, u, rendererInitiated)
}

// Cancel discards the pending navigation, if any
func (m *Manager) Cancel() bool {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if m.pending == nil {
		return false
	}
	if m.c.cancelNavigation(m.frame, "cancelled") {
		m.c.reconcile()
	}
	return true
}

// Pending returns the in-flight navigation
func (m *Manager) Pending() (NavigationInfo, bool) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	nav := m.pending
	if nav == nil {
		return NavigationInfo{}, false
	}
	return NavigationInfo{
		ID:                nav.id,
		URL:               nav.url,
		Decision:          nav.decision,
		RendererInitiated: nav.rendererInitiated,
		Speculative:       nav.host.state == HostSpeculative,
	}, true
}

// Speculative returns the host a cross-group navigation will commit into
func (m *Manager) Speculative() *Host {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.speculative
}

// Proxy returns the frame's proxy in g
func (m *Manager) Proxy(g *site.Group) *Proxy {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.proxies[g.ID()]
}

// Proxies returns every proxy of the frame ordered by site group
func (m *Manager) Proxies() []*Proxy {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.sortedProxies()
}

// DismissProxy removes the frame's proxy in g if nothing in g can reach the
// frame any more. It reports whether a proxy was removed.
func (m *Manager) DismissProxy(g *site.Group) bool {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()

	p := m.proxies[g.ID()]
	if p == nil {
		return false
	}
	required := m.c.requiredGroups(m.c.component(m.frame))
	if m.c.wantsProxy(m.frame, p.group, required) {
		return false
	}
	m.c.dismissProxy(p, true)
	m.c.reconcile()
	return true
}

func (m *Manager) sortedProxies() []*Proxy {
	out := make([]*Proxy, 0, len(m.proxies))
	for _, p := range m.proxies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].group.ID() < out[j].group.ID() })
	return out
}
