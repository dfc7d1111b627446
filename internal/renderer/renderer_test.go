package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

type outbox struct {
	msgs []ipc.Message
}

func (o *outbox) reply(msg ipc.Message) { o.msgs = append(o.msgs, msg) }

func (o *outbox) kinds() []ipc.Kind {
	var out []ipc.Kind
	for _, m := range o.msgs {
		out = append(out, m.Kind())
	}
	return out
}

func TestProxyWithUnknownParentIsIgnored(t *testing.T) {
	out := &outbox{}
	r := New(1, "https://a.com", out.reply)

	r.Receive(ipc.CreateFrameProxy{RoutingID: 5, FrameID: 9, ParentRoutingID: 4})

	_, ok := r.Proxy(9)
	assert.False(t, ok)
	assert.Len(t, r.Ignored(), 1)
	assert.Empty(t, out.msgs)
}

func TestNavigateAutoCommits(t *testing.T) {
	out := &outbox{}
	r := New(1, "https://a.com", out.reply)

	r.Receive(ipc.CreateFrame{RoutingID: 1, FrameID: 1})
	r.Receive(ipc.Navigate{RoutingID: 1, NavigationID: 3, URL: "https://a.com/index.html", Sandbox: types.SandboxForms})

	require.Equal(t, []ipc.Kind{ipc.KindCommitNavigation, ipc.KindSurfaceReady}, out.kinds())
	commit := out.msgs[0].(ipc.CommitNavigation)
	assert.Equal(t, types.NavigationID(3), commit.NavigationID)
	assert.Equal(t, "https://a.com", commit.Origin.String())

	frame, ok := r.Frame(1)
	require.True(t, ok)
	assert.Equal(t, types.SandboxForms, frame.Replicated.EffectiveSandbox)
	assert.True(t, frame.Surface.IsValid())
}

func TestProvisionalFrameReplacesProxyOnCommit(t *testing.T) {
	out := &outbox{}
	r := New(2, "https://b.com", out.reply, WithManualCommit())

	r.Receive(ipc.CreateFrameProxy{RoutingID: 1, FrameID: 1, SiteGroupID: 1})
	r.Receive(ipc.CreateFrameProxy{RoutingID: 2, FrameID: 2, ParentRoutingID: 1})
	r.Receive(ipc.CreateFrame{RoutingID: 3, FrameID: 2, ParentRoutingID: 1, Provisional: true, PreviousProxyRoutingID: 2})
	r.Receive(ipc.Navigate{RoutingID: 3, NavigationID: 1, URL: "https://b.com/"})

	_, ok := r.Frame(2)
	assert.False(t, ok, "provisional frames stay hidden")
	_, ok = r.Provisional(2)
	assert.True(t, ok)

	require.True(t, r.Commit(2))

	frame, ok := r.Frame(2)
	require.True(t, ok)
	assert.Equal(t, types.RoutingID(3), frame.RoutingID)
	_, ok = r.Proxy(2)
	assert.False(t, ok)
	assert.Equal(t, 1, r.ProxyCount())
}

func TestSwapOutLeavesProxyAndAcks(t *testing.T) {
	out := &outbox{}
	r := New(1, "https://a.com", out.reply)

	r.Receive(ipc.CreateFrame{RoutingID: 1, FrameID: 1})
	r.Receive(ipc.CreateFrame{RoutingID: 2, FrameID: 2, ParentRoutingID: 1})
	r.Receive(ipc.SwapOut{RoutingID: 2, ProxyRoutingID: 7})

	_, ok := r.Frame(2)
	assert.False(t, ok)
	proxy, ok := r.Proxy(2)
	require.True(t, ok)
	assert.Equal(t, types.RoutingID(7), proxy.RoutingID)
	assert.Equal(t, types.RoutingID(1), proxy.ParentRoutingID)
	assert.Equal(t, []ipc.Message{ipc.SwapOutAck{RoutingID: 2}}, out.msgs)
}

func TestFocusStateAcrossFramesAndProxies(t *testing.T) {
	out := &outbox{}
	r := New(1, "https://a.com", out.reply)

	r.Receive(ipc.CreateFrame{RoutingID: 1, FrameID: 1})
	r.Receive(ipc.CreateFrameProxy{RoutingID: 2, FrameID: 2, ParentRoutingID: 1})
	r.Receive(ipc.SetHasFocus{RoutingID: 1, HasFocus: true})
	r.Receive(ipc.SetHasFocus{RoutingID: 2, HasFocus: true})
	r.Receive(ipc.SetHasFocus{RoutingID: 99, HasFocus: true})

	assert.True(t, r.HasFocus(1))
	assert.True(t, r.HasFocus(2))
	assert.Len(t, r.Ignored(), 1)
}

func TestActionsAddressByRouting(t *testing.T) {
	out := &outbox{}
	r := New(1, "https://a.com", out.reply)

	r.Receive(ipc.CreateFrame{RoutingID: 1, FrameID: 1})
	r.Receive(ipc.CreateFrameProxy{RoutingID: 2, FrameID: 2, ParentRoutingID: 1})

	assert.True(t, r.Detach(2), "parents may detach proxies of their children")
	assert.False(t, r.BeginNavigation(2, "https://x.com"), "cannot navigate a proxy locally")
	assert.True(t, r.PostMessage(1, 2, "*", []byte("hi")))
	assert.False(t, r.PostMessage(2, 1, "*", nil))

	require.Len(t, out.msgs, 2)
	assert.Equal(t, ipc.DetachFrame{RoutingID: 2}, out.msgs[0])
	post := out.msgs[1].(ipc.PostMessage)
	assert.Equal(t, types.RoutingID(2), post.RoutingID)
	assert.Equal(t, types.RoutingID(1), post.SourceRoutingID)
}
