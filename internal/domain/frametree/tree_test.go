package frametree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

type recorder struct {
	NopObserver
	created   []types.FrameID
	removed   []types.FrameID
	committed []string
	gone      []string
}

func (r *recorder) FrameCreated(f *Frame) { r.created = append(r.created, f.ID()) }
func (r *recorder) FrameRemoved(f *Frame) { r.removed = append(r.removed, f.ID()) }

func (r *recorder) NavigationCommitted(_ *Frame, url string) {
	r.committed = append(r.committed, url)
}

func (r *recorder) ProcessGone(_ types.ProcessID, reason string) {
	r.gone = append(r.gone, reason)
}

func TestRemoveNotifiesChildrenFirst(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	h.c.AddObserver(rec)

	tr := h.tree("https://a.com/")
	root := tr.Root()
	mid := h.childAt(root, "https://b.com/")
	leaf1 := h.childAt(mid, "https://c.com/")
	leaf2 := h.child(mid)

	assert.Equal(t, []types.FrameID{root.ID(), mid.ID(), leaf1.ID(), leaf2.ID()}, rec.created)
	assert.Contains(t, rec.committed, "https://c.com/")

	require.NoError(t, tr.Remove(mid))
	h.flush()
	assert.Equal(t, []types.FrameID{leaf1.ID(), leaf2.ID(), mid.ID()}, rec.removed)

	require.NoError(t, tr.Remove(mid))
	assert.Len(t, rec.removed, 3, "second remove is a no-op")

	for _, f := range []*Frame{mid, leaf1, leaf2} {
		assert.True(t, f.Removed())
		assert.Nil(t, tr.Find(f.ID()))
	}
	assert.Equal(t, []*Frame{root}, tr.Frames())
	assert.Zero(t, h.proxyCount())
	assert.Nil(t, h.groupFor(keyOf("https", "b.com")))
	assert.Nil(t, h.groupFor(keyOf("https", "c.com")))
	h.checkInvariants()
}

func TestRootCannotBeRemoved(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	assert.ErrorIs(t, tr.Remove(tr.Root()), ErrCannotRemoveRoot)
	assert.False(t, tr.Root().Removed())

	other := h.tree("https://b.com/")
	child := h.child(other.Root())
	assert.ErrorIs(t, tr.Remove(child), ErrUnknownFrame)
	assert.False(t, child.Removed())
}

func TestRemoveDropsUnreachableProxies(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	root := tr.Root()
	b := h.childAt(root, "https://b.com/")
	c := h.childAt(root, "https://c.com/")

	// every frame is proxied in each of the other two groups
	assert.Len(t, root.Manager().Proxies(), 2)
	assert.Len(t, b.Manager().Proxies(), 2)
	procB := h.local(b)
	_, ok := h.rendererOf(procB).Proxy(c.ID())
	require.True(t, ok)

	require.NoError(t, tr.Remove(c))
	h.flush()

	assert.Len(t, root.Manager().Proxies(), 1)
	assert.Len(t, b.Manager().Proxies(), 1)
	_, ok = h.rendererOf(procB).Proxy(c.ID())
	assert.False(t, ok)
	assert.Len(t, h.rendererOf(procB).Received(ipc.KindDeleteFrameProxy), 1)
	h.checkInvariants()
}

func TestCreateChildOrderAndNames(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	root := tr.Root()

	first, err := tr.CreateChild(root, -1, ChildOptions{Name: "ad"})
	require.NoError(t, err)
	last, err := tr.CreateChild(root, -1, ChildOptions{Name: "ad"})
	require.NoError(t, err)
	middle, err := tr.CreateChild(root, 1, ChildOptions{})
	require.NoError(t, err)
	h.flush()

	assert.Equal(t, []*Frame{first, middle, last}, root.Children())
	assert.Equal(t, "ad", first.Replicated().UniqueName)
	assert.Equal(t, "ad/<!--1-->", last.Replicated().UniqueName)
	assert.Contains(t, middle.Replicated().UniqueName, "<!--frame")

	local, ok := h.rendererFor(root).Frame(middle.ID())
	require.True(t, ok)
	assert.Equal(t, root.Current().RoutingID(), local.ParentRoutingID)
	creates := h.rendererFor(root).Received(ipc.KindCreateFrame)
	msg := creates[len(creates)-1].(ipc.CreateFrame)
	assert.Equal(t, first.Current().RoutingID(), msg.PreviousSiblingRoutingID)

	assert.Same(t, middle, tr.Find(middle.ID()))
	assert.Same(t, middle, h.c.Find(middle.ID()))
	assert.Equal(t, []*Frame{root, first, middle, last}, tr.Frames())
}

func TestCreateChildUnderRemovedParent(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	child := h.child(tr.Root())
	require.NoError(t, tr.Remove(child))

	_, err := tr.CreateChild(child, -1, ChildOptions{})
	assert.ErrorIs(t, err, ErrUnknownFrame)
	_, err = h.c.Navigate(context.Background(), child, "https://b.com/")
	assert.ErrorIs(t, err, ErrUnknownFrame)
}

func TestCloseTreeReleasesProcesses(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	h.c.AddObserver(rec)

	tr := h.tree("https://a.com/")
	root := tr.Root()
	procA := h.local(root)
	child := h.childAt(root, "https://b.com/")
	procB := h.local(child)

	require.NoError(t, h.c.CloseTree(tr))
	h.flush()

	assert.False(t, procA.Alive())
	assert.False(t, procB.Alive())
	assert.Empty(t, h.c.Sites().Groups())
	assert.Empty(t, h.c.Trees())
	_, ok := h.c.Tree(tr.ID())
	assert.False(t, ok)
	assert.Equal(t, []types.FrameID{child.ID(), root.ID()}, rec.removed)
	assert.Empty(t, rec.gone, "unused processes are not reported as gone")

	assert.ErrorIs(t, h.c.CloseTree(tr), ErrUnknownTree)
	assert.Empty(t, h.c.Depiction(tr))
}

func TestTreesShareSiteGroups(t *testing.T) {
	h := newHarness(t)
	one := h.tree("https://a.com/")
	two := h.tree("https://www.a.com/")

	assert.Same(t, one.Root().Group(), two.Root().Group())
	assert.Equal(t, 2, one.Root().Group().Refs())
	assert.Equal(t, []*Tree{one, two}, h.c.Trees())

	require.NoError(t, h.c.CloseTree(one))
	h.flush()
	assert.True(t, h.local(two.Root()).Alive())
	assert.Equal(t, 1, two.Root().Group().Refs())
}
