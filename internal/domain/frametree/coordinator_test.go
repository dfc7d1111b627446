package frametree

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAppliesRepliesAsTheyArrive(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()

	tr, err := h.c.NewTree(ctx, "https://a.com/")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, err := h.c.Snapshot(tr)
		return err == nil && s.Root.URL == "https://a.com/"
	}, time.Second, 5*time.Millisecond)

	child, err := tr.CreateChild(tr.Root(), -1, ChildOptions{})
	require.NoError(t, err)
	_, err = h.c.Navigate(ctx, child, "https://b.com/")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, err := h.c.Snapshot(tr)
		return err == nil && len(s.Root.Children) == 1 && s.Root.Children[0].Key == "https://b.com"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestShutdownTerminatesEverything(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	h.childAt(tr.Root(), "https://b.com/")
	h.popup(tr.Root(), "https://c.com/", "")

	h.c.Shutdown()

	for _, p := range h.launcher.Processes() {
		assert.False(t, p.Alive(), "process %d", p.ID())
	}
	assert.Empty(t, h.c.Trees())
	assert.Empty(t, h.c.Sites().Groups())
	assert.Zero(t, h.proxyCount())
	assert.Zero(t, h.pendingCount())
}

func TestNewTreeLaunchFailure(t *testing.T) {
	h := newHarness(t)
	h.launcher.FailLaunches("https://a.com", errors.New("boom"))

	_, err := h.c.NewTree(context.Background(), "https://a.com/")
	assert.ErrorIs(t, err, ErrProcessLaunch)
	assert.Empty(t, h.c.Trees())
	assert.Empty(t, h.c.Sites().Groups())

	_, err = h.c.NewTree(context.Background(), "javascript:1")
	assert.ErrorIs(t, err, ErrIllegalNavigation)
}

func TestProcessLimit(t *testing.T) {
	h := newHarnessWith(t, func(o *Options) { o.MaxProcesses = 2 })
	tr := h.tree("https://a.com/")
	child := h.childAt(tr.Root(), "https://b.com/")

	_, err := h.c.Navigate(context.Background(), child, "https://c.com/")
	assert.ErrorIs(t, err, ErrProcessLaunch)
	h.flush()
	assert.Equal(t, keyOf("https", "b.com"), child.Group().Key())
	h.checkInvariants()
}

// TestRandomOperationsKeepInvariants drives the coordinator with a fixed
// random sequence of structural changes, navigations, crashes and opener
// changes, checking the proxy and ownership invariants after every step.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	sites := []string{"https://a.com/", "https://b.com/", "https://c.com/", "https://d.com/", "about:blank"}

	for seed := uint64(1); seed <= 4; seed++ {
		t.Run(fmt.Sprintf("seed%d", seed), func(t *testing.T) {
			h := newHarness(t)
			rng := rand.New(rand.NewPCG(seed, 0x5eed))
			pick := func(frames []*Frame) *Frame { return frames[rng.IntN(len(frames))] }
			all := func() []*Frame {
				var out []*Frame
				for _, tr := range h.c.Trees() {
					out = append(out, tr.Frames()...)
				}
				return out
			}

			h.tree(sites[0])
			for step := 0; step < 150; step++ {
				frames := all()
				if len(frames) == 0 {
					h.tree(sites[rng.IntN(4)])
					continue
				}
				f := pick(frames)
				switch op := rng.IntN(10); op {
				case 0, 1:
					_, _ = f.Tree().CreateChild(f, -1, ChildOptions{})
				case 2, 3, 4:
					_, _ = h.c.Navigate(context.Background(), f, sites[rng.IntN(len(sites))])
				case 5:
					if f.Parent() != nil {
						require.NoError(t, f.Tree().Remove(f))
					} else if len(h.c.Trees()) > 1 {
						require.NoError(t, h.c.CloseTree(f.Tree()))
					}
				case 6:
					if p := f.Current().Process(); p != nil && p.Alive() && rng.IntN(2) == 0 {
						if lp, ok := h.launcher.Get(p.ID()); ok {
							lp.Crash()
						}
					}
				case 7:
					if len(h.c.Trees()) < 4 {
						_, _ = h.c.OpenPopup(context.Background(), f, sites[rng.IntN(4)], "")
					}
				case 8:
					_ = h.c.DisownOpener(f)
				case 9:
					_ = h.c.Focus(f)
				}
				h.flush()
				if rng.IntN(4) == 0 {
					h.fireTimers()
				}
				h.checkInvariants()
				for _, tr := range h.c.Trees() {
					_, err := h.c.SnapshotJSON(tr)
					require.NoError(t, err)
					assert.NotEmpty(t, h.c.Depiction(tr))
				}
			}

			h.c.Shutdown()
			assert.Empty(t, h.c.Sites().Groups())
			for _, p := range h.launcher.Processes() {
				assert.False(t, p.Alive())
			}
		})
	}
}

func TestFocusSurvivesCrossProcessCommit(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	child := h.child(tr.Root())
	require.NoError(t, tr.SetFocused(child))

	h.navigate(child, "https://b.com/")
	local, ok := h.rendererFor(child).Frame(child.ID())
	require.True(t, ok)
	assert.True(t, local.Focused)
	assert.True(t, local.HasFocus)
	assert.True(t, h.rendererFor(tr.Root()).HasFocus(child.ID()))
	assert.Same(t, child, tr.Focused())

	require.NoError(t, tr.Remove(child))
	assert.Nil(t, tr.Focused())
	assert.False(t, tr.Root().HasFocus())
	assert.ErrorIs(t, tr.SetFocused(child), ErrUnknownFrame)
}
