package frametree

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/renderer"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// fakeTimer records unload timers so tests can fire them by hand
type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type harness struct {
	t        *testing.T
	c        *Coordinator
	launcher *process.LocalLauncher
	timers   []*fakeTimer
}

func newHarness(t *testing.T, opts ...renderer.Option) *harness {
	return newHarnessWith(t, nil, opts...)
}

// newHarnessWith lets configure adjust the coordinator options
func newHarnessWith(t *testing.T, configure func(*Options), opts ...renderer.Option) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	launcher := process.NewLocalLauncher(func(pid types.ProcessID, key string, reply func(ipc.Message)) process.Endpoint {
		return renderer.New(pid, key, reply, opts...)
	}, logger)

	h := &harness{t: t, launcher: launcher}
	o := Options{Launcher: launcher, Logger: logger}
	if configure != nil {
		configure(&o)
	}
	h.c = New(o)
	h.c.afterFunc = func(_ time.Duration, fn func()) stopper {
		ft := &fakeTimer{fn: fn}
		h.timers = append(h.timers, ft)
		return ft
	}
	return h
}

func (h *harness) flush() {
	h.c.Flush()
}

func (h *harness) tree(rawURL string) *Tree {
	h.t.Helper()
	tr, err := h.c.NewTree(context.Background(), rawURL)
	require.NoError(h.t, err)
	h.flush()
	return tr
}

func (h *harness) child(parent *Frame) *Frame {
	h.t.Helper()
	f, err := parent.Tree().CreateChild(parent, -1, ChildOptions{})
	require.NoError(h.t, err)
	h.flush()
	return f
}

func (h *harness) navigate(f *Frame, rawURL string) Decision {
	h.t.Helper()
	d, err := h.c.Navigate(context.Background(), f, rawURL)
	require.NoError(h.t, err)
	h.flush()
	return d
}

// childAt creates a child of parent and loads rawURL in it
func (h *harness) childAt(parent *Frame, rawURL string) *Frame {
	h.t.Helper()
	f := h.child(parent)
	h.navigate(f, rawURL)
	return f
}

func (h *harness) rendererOf(proc process.Process) *renderer.Renderer {
	h.t.Helper()
	require.NotNil(h.t, proc)
	lp, ok := h.launcher.Get(proc.ID())
	require.True(h.t, ok)
	return lp.Endpoint().(*renderer.Renderer)
}

// rendererFor returns the content process rendering f
func (h *harness) rendererFor(f *Frame) *renderer.Renderer {
	return h.rendererOf(f.Current().Process())
}

func (h *harness) local(f *Frame) *process.LocalProcess {
	h.t.Helper()
	lp, ok := h.launcher.Get(f.Current().Process().ID())
	require.True(h.t, ok)
	return lp
}

func (h *harness) proxyCount() int {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return len(h.c.proxies)
}

func (h *harness) pendingCount() int {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return len(h.c.pending)
}

func (h *harness) groupFor(key site.Key) *site.Group {
	for _, g := range h.c.Sites().Groups() {
		if g.Key() == key {
			return g
		}
	}
	return nil
}

// commit finishes f's pending navigation in a manual-commit harness
func (h *harness) commit(f *Frame) {
	h.t.Helper()
	proc := f.Current().Process()
	if s := f.Manager().Speculative(); s != nil {
		proc = s.Process()
	}
	require.True(h.t, h.rendererOf(proc).Commit(f.ID()), "no pending navigation in frame %d", f.ID())
	h.flush()
}

func (h *harness) fireTimers() {
	for _, ft := range h.timers {
		if !ft.stopped {
			ft.stopped = true
			ft.fn()
		}
	}
	h.timers = nil
	h.flush()
}

// checkInvariants verifies every live tree against its content processes:
// one active current host per frame, a proxy wherever an edge crosses site
// groups, and content processes agreeing with the coordinator's records.
func (h *harness) checkInvariants() {
	h.t.Helper()
	h.c.mu.Lock()
	defer h.c.mu.Unlock()

	for _, tr := range h.c.sortedTrees() {
		for _, f := range tr.preorder() {
			require.Equal(h.t, HostActive, f.current.state, "frame %d", f.id)
			require.Same(h.t, f, f.current.frame)

			var neighbours []*Frame
			if f.parent != nil {
				neighbours = append(neighbours, f.parent)
			}
			neighbours = append(neighbours, f.children...)
			if f.opener != nil {
				neighbours = append(neighbours, f.opener)
			}
			for _, n := range neighbours {
				if !f.current.live || !n.current.live || n.current.group == f.current.group {
					continue
				}
				require.NotNil(h.t, f.manager.proxies[n.current.group.ID()],
					"frame %d needs a proxy in the group of frame %d", f.id, n.id)
			}

			for _, p := range f.manager.proxies {
				require.NotEqual(h.t, f.current.group, p.group)
				require.Equal(h.t, f.current.live, p.live)
				if !p.process.Alive() {
					continue
				}
				lp, ok := h.launcher.Get(p.process.ID())
				require.True(h.t, ok)
				remote, ok := lp.Endpoint().(*renderer.Renderer).Proxy(f.id)
				require.True(h.t, ok, "process %d lacks proxy of frame %d", p.process.ID(), f.id)
				require.Equal(h.t, p.routing, remote.RoutingID)
				require.Equal(h.t, p.live, remote.Live)
			}

			if f.current.live {
				lp, ok := h.launcher.Get(f.current.process.ID())
				require.True(h.t, ok)
				local, ok := lp.Endpoint().(*renderer.Renderer).Frame(f.id)
				require.True(h.t, ok, "process %d lacks frame %d", f.current.process.ID(), f.id)
				require.Equal(h.t, f.current.routing, local.RoutingID)
			}
		}
	}
}

func keyOf(scheme, host string) site.Key {
	return site.Key{Scheme: scheme, Site: host}
}
