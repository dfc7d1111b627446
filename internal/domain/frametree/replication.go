package frametree

import (
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// SetFrameName renames f (window.name) and replicates the change
func (c *Coordinator) SetFrameName(f *Frame, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil || f.removed {
		return ErrUnknownFrame
	}
	c.setName(f, name)
	return nil
}

// SetPendingSandbox updates the sandbox attribute of f's container. The
// flags take effect at f's next commit; frames f creates before then
// inherit them.
func (c *Coordinator) SetPendingSandbox(f *Frame, flags types.SandboxFlags) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil || f.removed {
		return ErrUnknownFrame
	}
	c.setPendingSandbox(f, flags)
	return nil
}

func (c *Coordinator) setName(f *Frame, name string) {
	if f.replicated.Name == name {
		return
	}
	f.replicated.Name = name
	c.broadcast(f, types.FieldName)
}

// setStrictMixedContent records the document's block-all-mixed-content
// state. Children created afterwards start with the same value.
func (c *Coordinator) setStrictMixedContent(f *Frame, strict bool) {
	if f.replicated.StrictMixedContent == strict {
		return
	}
	f.replicated.StrictMixedContent = strict
	c.broadcast(f, types.FieldStrictMixedContent)
}

func (c *Coordinator) setPendingSandbox(f *Frame, flags types.SandboxFlags) {
	if f.parent != nil {
		flags |= f.parent.replicated.EffectiveSandbox
	}
	if f.replicated.PendingSandbox == flags {
		return
	}
	f.replicated.PendingSandbox = flags
	c.broadcast(f, types.FieldPendingSandbox)
}

// broadcast sends field's new value to every proxy of f
func (c *Coordinator) broadcast(f *Frame, field types.ReplicatedField) {
	for _, p := range f.manager.sortedProxies() {
		c.send(p.process, ipc.UpdateReplicatedState{
			RoutingID: p.routing,
			Field:     field,
			State:     f.replicated,
		})
	}
}

// broadcastChanges sends one update per field that differs from prev
func (c *Coordinator) broadcastChanges(f *Frame, prev types.ReplicatedState) {
	cur := f.replicated
	if cur.Name != prev.Name {
		c.broadcast(f, types.FieldName)
	}
	if cur.Origin != prev.Origin {
		c.broadcast(f, types.FieldOrigin)
	}
	if cur.PendingSandbox != prev.PendingSandbox {
		c.broadcast(f, types.FieldPendingSandbox)
	}
	if cur.EffectiveSandbox != prev.EffectiveSandbox {
		c.broadcast(f, types.FieldEffectiveSandbox)
	}
	if cur.StrictMixedContent != prev.StrictMixedContent {
		c.broadcast(f, types.FieldStrictMixedContent)
	}
}
