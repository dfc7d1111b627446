package frametree

import (
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Depiction draws t as text, one line per frame, naming the site group of
// each frame's host and the groups holding its proxies:
//
//	 Site A ------------ proxies for B
//	   +--Site B ------- proxies for A
//	Where A = https://a.com
//	      B = https://b.com
func (c *Coordinator) Depiction(t *Tree) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t == nil || t.closed {
		return ""
	}
	return c.depict(t)
}

type depictLine struct {
	text    string
	proxies []string
}

func (c *Coordinator) depict(t *Tree) string {
	letters := make(map[types.SiteGroupID]string)
	var legend []*site.Group
	name := func(g *site.Group) string {
		if l, ok := letters[g.ID()]; ok {
			return l
		}
		l := letter(len(letters))
		letters[g.ID()] = l
		legend = append(legend, g)
		return l
	}
	for _, f := range t.preorder() {
		name(f.current.group)
		if s := f.manager.speculative; s != nil {
			name(s.group)
		}
		for _, p := range f.manager.sortedProxies() {
			name(p.group)
		}
	}

	var lines []depictLine
	var walk func(f *Frame, prefix, cont string)
	walk = func(f *Frame, prefix, cont string) {
		text := prefix + "Site " + letters[f.current.group.ID()]
		if s := f.manager.speculative; s != nil {
			text += " (" + letters[s.group.ID()] + " speculative)"
		}
		var proxies []string
		for _, p := range f.manager.sortedProxies() {
			proxies = append(proxies, letters[p.group.ID()])
		}
		sort.Strings(proxies)
		lines = append(lines, depictLine{text: text, proxies: proxies})

		for i, ch := range f.children {
			last := i == len(f.children)-1
			if last {
				walk(ch, cont+"+--", cont+"     ")
			} else {
				walk(ch, cont+"|--", cont+"|    ")
			}
		}
	}
	walk(t.root, " ", "   ")

	width := 0
	for _, l := range lines {
		width = max(width, len(l.text))
	}
	width += 7

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.text)
		if len(l.proxies) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Repeat("-", width-len(l.text)))
			b.WriteString(" proxies for ")
			b.WriteString(strings.Join(l.proxies, " "))
		}
		b.WriteString("\n")
	}
	for i, g := range legend {
		if i == 0 {
			b.WriteString("Where ")
		} else {
			b.WriteString("      ")
		}
		b.WriteString(letters[g.ID()] + " = " + g.Key().String())
		if !g.Live() {
			b.WriteString(" (no process)")
		}
		if i < len(legend)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// letter names the nth group: A..Z, then AA, AB...
func letter(n int) string {
	s := ""
	for {
		s = string(rune('A'+n%26)) + s
		n = n/26 - 1
		if n < 0 {
			return s
		}
	}
}

// RenderView is one site group's presence in a tree
type RenderView struct {
	Group   types.SiteGroupID `json:"group"`
	Key     string            `json:"key"`
	Process types.ProcessID   `json:"process,omitempty"`
	Live    bool              `json:"live"`
	Hosts   int               `json:"hosts"`
	Proxies int               `json:"proxies"`
}

// RenderViews returns one view per site group that renders or proxies a
// frame of t, ordered by group id.
func (c *Coordinator) RenderViews(t *Tree) []RenderView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t == nil || t.closed {
		return nil
	}

	views := make(map[types.SiteGroupID]*RenderView)
	view := func(g *site.Group) *RenderView {
		v, ok := views[g.ID()]
		if !ok {
			v = &RenderView{Group: g.ID(), Key: g.Key().String(), Live: g.Live()}
			if p := g.Process(); p != nil {
				v.Process = p.ID()
			}
			views[g.ID()] = v
		}
		return v
	}
	for _, f := range t.preorder() {
		view(f.current.group).Hosts++
		for _, p := range f.manager.sortedProxies() {
			view(p.group).Proxies++
		}
	}

	out := make([]RenderView, 0, len(views))
	for _, v := range views {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// FrameSnapshot is a serializable copy of one frame
type FrameSnapshot struct {
	ID          types.FrameID         `json:"id"`
	URL         string                `json:"url"`
	Group       types.SiteGroupID     `json:"group"`
	Key         string                `json:"key"`
	Live        bool                  `json:"live"`
	Routing     types.RoutingID       `json:"routing"`
	Speculative types.SiteGroupID     `json:"speculative,omitempty"`
	Proxies     []types.SiteGroupID   `json:"proxies,omitempty"`
	Opener      types.FrameID         `json:"opener,omitempty"`
	HasFocus    bool                  `json:"has_focus,omitempty"`
	Replicated  types.ReplicatedState `json:"replicated"`
	Connector   *ConnectorView        `json:"connector,omitempty"`
	Children    []FrameSnapshot       `json:"children,omitempty"`
}

// TreeSnapshot is a serializable copy of a tree
type TreeSnapshot struct {
	ID      TreeID        `json:"id"`
	Focused types.FrameID `json:"focused,omitempty"`
	View    types.Size    `json:"view"`
	Root    FrameSnapshot `json:"root"`
}

// Snapshot copies t's current state
func (c *Coordinator) Snapshot(t *Tree) (TreeSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t == nil || t.closed {
		return TreeSnapshot{}, ErrUnknownTree
	}
	s := TreeSnapshot{ID: t.id, View: t.view, Root: snapshotFrame(t.root)}
	if t.focused != nil {
		s.Focused = t.focused.id
	}
	return s, nil
}

// SnapshotFrame copies f and its subtree
func (c *Coordinator) SnapshotFrame(f *Frame) (FrameSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil || f.removed {
		return FrameSnapshot{}, ErrUnknownFrame
	}
	return snapshotFrame(f), nil
}

// SnapshotJSON is Snapshot encoded as JSON
func (c *Coordinator) SnapshotJSON(t *Tree) ([]byte, error) {
	s, err := c.Snapshot(t)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(s)
}

func snapshotFrame(f *Frame) FrameSnapshot {
	s := FrameSnapshot{
		ID:         f.id,
		URL:        f.url,
		Group:      f.current.group.ID(),
		Key:        f.current.group.Key().String(),
		Live:       f.current.live,
		Routing:    f.current.routing,
		HasFocus:   f.containsFocus,
		Replicated: f.replicated,
	}
	if sp := f.manager.speculative; sp != nil {
		s.Speculative = sp.group.ID()
	}
	for _, p := range f.manager.sortedProxies() {
		s.Proxies = append(s.Proxies, p.group.ID())
	}
	if f.opener != nil {
		s.Opener = f.opener.id
	}
	if f.connector != nil {
		v := f.connector.view()
		s.Connector = &v
	}
	for _, ch := range f.children {
		s.Children = append(s.Children, snapshotFrame(ch))
	}
	return s
}
