package frametree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

func TestConnectorOnlyAcrossSiteGroups(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	root := tr.Root()

	same := h.childAt(root, "https://www.a.com/")
	assert.Nil(t, same.Connector())
	assert.Nil(t, root.Connector())

	cross := h.childAt(root, "https://b.com/")
	k := cross.Connector()
	require.NotNil(t, k)
	assert.Same(t, cross, k.Frame())
	v := k.View()
	assert.Equal(t, root.Group().ID(), v.ParentGroup)
	assert.Equal(t, cross.Group().ID(), v.ChildGroup)

	// back to the parent's site: the connector goes away
	h.navigate(cross, "https://a.com/back")
	assert.True(t, k.Destroyed())
	assert.Nil(t, cross.Connector())
}

func TestConnectorForwardsGeometry(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	child := h.childAt(tr.Root(), "https://b.com/")
	rb := h.rendererFor(child)

	local, ok := rb.Frame(child.ID())
	require.True(t, ok)
	assert.Equal(t, defaultChildRect, local.Rect, "geometry is re-sent after the commit")

	require.NoError(t, h.c.SetFrameGeometry(child, Geometry{
		Rect:        types.NewRect(10, 20, 200, 100),
		Scale:       1.5,
		Visible:     true,
		HitTestable: true,
	}))
	local, _ = rb.Frame(child.ID())
	assert.Equal(t, types.NewRect(10, 20, 200, 100), local.Rect)
	assert.Equal(t, 1.5, local.Scale)

	k := child.Connector()
	k.OnSizeChanged(types.Size{Width: 50, Height: 40})
	k.OnVisibilityChanged(false)
	local, _ = rb.Frame(child.ID())
	assert.Equal(t, types.Size{Width: 50, Height: 40}, local.Rect.Size)
	assert.False(t, local.Visible)
	assert.Equal(t, Geometry{Rect: types.NewRect(10, 20, 50, 40), Scale: 1.5, HitTestable: true}, child.Geometry())
}

func TestConnectorForwardsSurfaces(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	root := tr.Root()
	child := h.childAt(root, "https://b.com/")
	ra := h.rendererFor(root)
	k := child.Connector()
	require.NotNil(t, k)

	local, ok := h.rendererFor(child).Frame(child.ID())
	require.True(t, ok)
	require.True(t, local.Surface.IsValid())
	assert.Equal(t, local.Surface, k.View().Surface)
	remote, ok := ra.Proxy(child.ID())
	require.True(t, ok)
	assert.Equal(t, local.Surface, remote.Surface)

	stale := types.NewSurfaceID(local.Surface.SinkID, local.Surface.LocalID)
	assert.False(t, k.OnChildSurfaceReady(stale))
	assert.Equal(t, local.Surface, k.View().Surface)

	next := types.NewSurfaceID(local.Surface.SinkID, local.Surface.LocalID+1)
	assert.True(t, k.OnChildSurfaceReady(next))
	remote, _ = ra.Proxy(child.ID())
	assert.Equal(t, next, remote.Surface)
	assert.False(t, k.OnChildSurfaceReady(types.SurfaceID{}))

	// a new process brings a new sink, which always wins
	h.navigate(child, "https://c.com/")
	k = child.Connector()
	require.NotNil(t, k)
	local, _ = h.rendererFor(child).Frame(child.ID())
	assert.Equal(t, local.Surface, k.View().Surface)
	remote, _ = ra.Proxy(child.ID())
	assert.Equal(t, local.Surface, remote.Surface)
	assert.NotEmpty(t, ra.Received(ipc.KindSetChildSurface))
}

func TestCrashClearsChildSurface(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	child := h.childAt(tr.Root(), "https://b.com/")
	k := child.Connector()
	require.True(t, k.View().Surface.IsValid())

	h.local(child).Crash()
	h.flush()

	require.Same(t, k, child.Connector(), "the parent still shows the dead child")
	assert.False(t, k.View().Surface.IsValid())
	remote, ok := h.rendererFor(tr.Root()).Proxy(child.ID())
	require.True(t, ok)
	assert.False(t, remote.Live)
}

func TestConnectorIgnoredAfterRemoval(t *testing.T) {
	h := newHarness(t)
	tr := h.tree("https://a.com/")
	child := h.childAt(tr.Root(), "https://b.com/")
	k := child.Connector()
	rb := h.rendererFor(child)

	require.NoError(t, tr.Remove(child))
	assert.True(t, k.Destroyed())
	rb.ResetReceived()
	k.OnSizeChanged(types.Size{Width: 1, Height: 1})
	assert.Empty(t, rb.Received(ipc.KindUpdateGeometry))
	assert.False(t, k.OnChildSurfaceReady(types.NewSurfaceID(99, 1)))
}
