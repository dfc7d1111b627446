package renderer

import (
	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Frame returns a copy of the local frame for frameID, ignoring provisional frames
func (r *Renderer) Frame(frameID types.FrameID) (LocalFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f := r.frameFor(frameID); f != nil {
		return *f, true
	}
	return LocalFrame{}, false
}

// Provisional returns a copy of the provisional frame for frameID
func (r *Renderer) Provisional(frameID types.FrameID) (LocalFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.frames {
		if f.FrameID == frameID && f.Provisional {
			return *f, true
		}
	}
	return LocalFrame{}, false
}

// Proxy returns a copy of the proxy for frameID
func (r *Renderer) Proxy(frameID types.FrameID) (RemoteFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.proxyFor(frameID); p != nil {
		return *p, true
	}
	return RemoteFrame{}, false
}

// FrameCount returns the number of committed local frames
func (r *Renderer) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.frames {
		if !f.Provisional {
			n++
		}
	}
	return n
}

// ProxyCount returns the number of proxies
func (r *Renderer) ProxyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// HasFocus reports whether this process believes frameID contains focus
func (r *Renderer) HasFocus(frameID types.FrameID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f := r.frameFor(frameID); f != nil {
		return f.HasFocus
	}
	if p := r.proxyFor(frameID); p != nil {
		return p.HasFocus
	}
	return false
}

// Received returns every message of kind received so far
func (r *Renderer) Received(kind ipc.Kind) []ipc.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ipc.Message
	for _, m := range r.received {
		if m.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}

// Ignored returns messages dropped because they named unknown routing ids
func (r *Renderer) Ignored() []ipc.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ipc.Message(nil), r.ignored...)
}

// ResetReceived clears the message log
func (r *Renderer) ResetReceived() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = nil
	r.ignored = nil
}

// RoutingFor returns the routing id this process uses for frameID (local or proxy)
func (r *Renderer) RoutingFor(frameID types.FrameID) types.RoutingID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routingFor(frameID)
}

func (r *Renderer) routingFor(frameID types.FrameID) types.RoutingID {
	if f := r.frameFor(frameID); f != nil {
		return f.RoutingID
	}
	if p := r.proxyFor(frameID); p != nil {
		return p.RoutingID
	}
	return types.RoutingNone
}

func (r *Renderer) frameFor(frameID types.FrameID) *LocalFrame {
	for _, f := range r.frames {
		if f.FrameID == frameID && !f.Provisional {
			return f
		}
	}
	return nil
}

func (r *Renderer) proxyFor(frameID types.FrameID) *RemoteFrame {
	for _, p := range r.proxies {
		if p.FrameID == frameID {
			return p
		}
	}
	return nil
}

// Commit finishes a pending navigation when auto commit is off
func (r *Renderer) Commit(frameID types.FrameID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.frames {
		if f.FrameID == frameID && f.pendingNav != 0 {
			r.commit(f)
			return true
		}
	}
	return false
}

// AckSwapOut acknowledges a SwapOut when auto ack is off
func (r *Renderer) AckSwapOut(routing types.RoutingID) {
	r.reply(ipc.SwapOutAck{RoutingID: routing})
}

// Send delivers an arbitrary message to the coordinator
func (r *Renderer) Send(msg ipc.Message) {
	r.reply(msg)
}

// BeginNavigation starts a renderer-initiated navigation in a local frame
func (r *Renderer) BeginNavigation(frameID types.FrameID, rawURL string) bool {
	return r.sendFor(frameID, true, func(id types.RoutingID) ipc.Message {
		return ipc.BeginNavigation{RoutingID: id, URL: rawURL}
	})
}

// Detach asks the coordinator to remove frameID. Works from the frame's own
// process and from its parent's process.
func (r *Renderer) Detach(frameID types.FrameID) bool {
	return r.sendFor(frameID, false, func(id types.RoutingID) ipc.Message {
		return ipc.DetachFrame{RoutingID: id}
	})
}

// AppendChild asks the coordinator to create a child under a local frame
func (r *Renderer) AppendChild(parent types.FrameID, name string, sandbox types.SandboxFlags) bool {
	return r.sendFor(parent, true, func(id types.RoutingID) ipc.Message {
		return ipc.CreateChildFrame{ParentRoutingID: id, Name: name, Sandbox: sandbox}
	})
}

// OpenWindow calls window.open from a local frame
func (r *Renderer) OpenWindow(opener types.FrameID, rawURL, name string) bool {
	return r.sendFor(opener, true, func(id types.RoutingID) ipc.Message {
		return ipc.CreateNewWindow{OpenerRoutingID: id, URL: rawURL, Name: name}
	})
}

// Focus reports that a local frame took focus
func (r *Renderer) Focus(frameID types.FrameID) bool {
	return r.sendFor(frameID, true, func(id types.RoutingID) ipc.Message {
		return ipc.FocusFrame{RoutingID: id}
	})
}

// DisownOpener clears a local frame's opener
func (r *Renderer) DisownOpener(frameID types.FrameID) bool {
	return r.sendFor(frameID, true, func(id types.RoutingID) ipc.Message {
		return ipc.DisownOpener{RoutingID: id}
	})
}

// SetName renames a local frame
func (r *Renderer) SetName(frameID types.FrameID, name string) bool {
	return r.updateReplicated(frameID, types.FieldName, func(s *types.ReplicatedState) { s.Name = name })
}

// SetStrictMixedContent reports a local document's block-all-mixed-content state
func (r *Renderer) SetStrictMixedContent(frameID types.FrameID, strict bool) bool {
	return r.updateReplicated(frameID, types.FieldStrictMixedContent, func(s *types.ReplicatedState) {
		s.StrictMixedContent = strict
	})
}

func (r *Renderer) updateReplicated(frameID types.FrameID, field types.ReplicatedField, apply func(*types.ReplicatedState)) bool {
	r.mu.Lock()
	f := r.frameFor(frameID)
	if f == nil {
		r.mu.Unlock()
		return false
	}
	apply(&f.Replicated)
	msg := ipc.UpdateReplicatedState{RoutingID: f.RoutingID, Field: field, State: f.Replicated}
	r.mu.Unlock()

	r.reply(msg)
	return true
}

// UpdateChildPolicy changes the sandbox attribute of a child (local or proxy)
func (r *Renderer) UpdateChildPolicy(child types.FrameID, sandbox types.SandboxFlags) bool {
	return r.sendFor(child, false, func(id types.RoutingID) ipc.Message {
		return ipc.UpdateFramePolicy{RoutingID: id, Sandbox: sandbox}
	})
}

// PostMessage sends data from a local frame to a frame this process holds a proxy for
func (r *Renderer) PostMessage(source, target types.FrameID, targetOrigin string, data []byte) bool {
	r.mu.Lock()
	src := r.frameFor(source)
	dst := r.proxyFor(target)
	if src == nil || dst == nil {
		r.mu.Unlock()
		return false
	}
	msg := ipc.PostMessage{
		RoutingID:       dst.RoutingID,
		SourceRoutingID: src.RoutingID,
		SourceOrigin:    src.Replicated.Origin,
		TargetOrigin:    targetOrigin,
		Data:            data,
	}
	r.mu.Unlock()

	r.reply(msg)
	return true
}

// sendFor builds a message addressed by frameID's routing id and sends it.
// localOnly restricts the lookup to local frames.
func (r *Renderer) sendFor(frameID types.FrameID, localOnly bool, build func(types.RoutingID) ipc.Message) bool {
	r.mu.Lock()
	var routing types.RoutingID
	if localOnly {
		if f := r.frameFor(frameID); f != nil {
			routing = f.RoutingID
		}
	} else {
		routing = r.routingFor(frameID)
	}
	r.mu.Unlock()

	if routing == types.RoutingNone {
		return false
	}
	r.reply(build(routing))
	return true
}
