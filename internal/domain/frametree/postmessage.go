package frametree

import (
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/process"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// relayPostMessage forwards window.postMessage from proc to the target
// frame's host. The sender addresses the target through its own proxy and
// must not lie about its origin; a target-origin mismatch drops the message.
func (c *Coordinator) relayPostMessage(proc process.Process, m ipc.PostMessage) {
	pid := proc.ID()
	target := c.proxies[routeKey{pid, m.RoutingID}]
	if target == nil {
		if h := c.hosts[routeKey{pid, m.RoutingID}]; h != nil && h.state == HostActive {
			// same-process targets are delivered by the content process itself
			c.violation(proc, m, "post message to a local frame")
			return
		}
		c.drop(m, "unknown_routing")
		return
	}
	source, ok := c.hostFrom(proc, m, m.SourceRoutingID)
	if !ok {
		return
	}

	claimed, actual := m.SourceOrigin, source.frame.replicated.Origin
	if claimed.Opaque != actual.Opaque || (!actual.Opaque && !claimed.SameOrigin(actual)) {
		c.violation(proc, m, "source origin mismatch")
		return
	}

	f := target.frame
	h := f.current
	if !h.live {
		c.drop(m, "target_gone")
		return
	}
	if m.TargetOrigin != "*" {
		want, err := types.ParseOrigin(m.TargetOrigin)
		if err != nil || !want.SameOrigin(f.replicated.Origin) {
			c.drop(m, "target_origin")
			return
		}
	}

	src, _ := c.routingIn(source.frame, h.group)
	c.send(h.process, ipc.PostMessage{
		RoutingID:       h.routing,
		SourceRoutingID: src,
		SourceOrigin:    actual,
		TargetOrigin:    m.TargetOrigin,
		Data:            m.Data,
	})
}
