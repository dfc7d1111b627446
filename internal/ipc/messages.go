package ipc

import (
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Message is implemented by every payload struct
type Message interface {
	Kind() Kind
}

// CreateFrame instantiates a local frame in the receiving process.
//
// ParentRoutingID names the parent as seen by the receiver (its local frame
// or its proxy); RoutingNone creates a main frame. A Provisional frame is a
// speculative navigation target: it stays invisible until its navigation
// commits, at which point it replaces the proxy PreviousProxyRoutingID.
type CreateFrame struct {
	RoutingID                types.RoutingID       `json:"routing_id"`
	FrameID                  types.FrameID         `json:"frame_id"`
	ParentRoutingID          types.RoutingID       `json:"parent_routing_id,omitempty"`
	PreviousSiblingRoutingID types.RoutingID       `json:"previous_sibling_routing_id,omitempty"`
	OpenerRoutingID          types.RoutingID       `json:"opener_routing_id,omitempty"`
	PreviousProxyRoutingID   types.RoutingID       `json:"previous_proxy_routing_id,omitempty"`
	Provisional              bool                  `json:"provisional,omitempty"`
	Replicated               types.ReplicatedState `json:"replicated"`
}

// CreateFrameProxy instantiates a proxy for a frame rendered elsewhere
type CreateFrameProxy struct {
	RoutingID       types.RoutingID       `json:"routing_id"`
	FrameID         types.FrameID         `json:"frame_id"`
	SiteGroupID     types.SiteGroupID     `json:"site_group_id"`
	ParentRoutingID types.RoutingID       `json:"parent_routing_id,omitempty"`
	OpenerRoutingID types.RoutingID       `json:"opener_routing_id,omitempty"`
	Live            bool                  `json:"live"`
	Replicated      types.ReplicatedState `json:"replicated"`
}

// DeleteFrame destroys a local frame (a removed frame or a discarded provisional one)
type DeleteFrame struct {
	RoutingID types.RoutingID `json:"routing_id"`
}

// DeleteFrameProxy destroys a proxy
type DeleteFrameProxy struct {
	RoutingID types.RoutingID `json:"routing_id"`
}

// Navigate asks a local frame to load URL. Sandbox is the flag set that becomes
// effective when the navigation commits.
type Navigate struct {
	RoutingID    types.RoutingID    `json:"routing_id"`
	NavigationID types.NavigationID `json:"navigation_id"`
	URL          string             `json:"url"`
	Sandbox      types.SandboxFlags `json:"sandbox"`
}

// SwapOut tells an old local frame its frame moved to another process.
// ProxyRoutingID is the proxy that replaces it, or RoutingNone when this
// process no longer needs a stand-in.
type SwapOut struct {
	RoutingID      types.RoutingID       `json:"routing_id"`
	ProxyRoutingID types.RoutingID       `json:"proxy_routing_id,omitempty"`
	Replicated     types.ReplicatedState `json:"replicated"`
}

// UpdateReplicatedState carries one changed field. Coordinator -> content it
// targets a proxy; content -> coordinator it comes from the frame's own host.
type UpdateReplicatedState struct {
	RoutingID types.RoutingID       `json:"routing_id"`
	Field     types.ReplicatedField `json:"field"`
	State     types.ReplicatedState `json:"state"`
}

// PostMessage delivers a cross-frame message.
//
// Content -> coordinator: RoutingID is the sender's proxy of the target and
// SourceRoutingID the sender's local frame. Coordinator -> content:
// RoutingID is the target's local frame and SourceRoutingID the receiver's
// proxy of the source (RoutingNone when it has none). TargetOrigin "*"
// disables the origin check.
type PostMessage struct {
	RoutingID       types.RoutingID `json:"routing_id"`
	SourceRoutingID types.RoutingID `json:"source_routing_id,omitempty"`
	SourceOrigin    types.Origin    `json:"source_origin"`
	TargetOrigin    string          `json:"target_origin"`
	Data            []byte          `json:"data"`
}

// RouteInputEvent delivers an input event in the target frame's coordinates
type RouteInputEvent struct {
	RoutingID types.RoutingID  `json:"routing_id"`
	Event     types.InputEvent `json:"event"`
}

// SetFocus focuses or blurs a local frame
type SetFocus struct {
	RoutingID types.RoutingID `json:"routing_id"`
	Focused   bool            `json:"focused"`
}

// SetHasFocus updates whether a frame (local or proxy) contains the focused frame
type SetHasFocus struct {
	RoutingID types.RoutingID `json:"routing_id"`
	HasFocus  bool            `json:"has_focus"`
}

// UpdateOpener points a frame or proxy at a new opener. RoutingNone clears it.
type UpdateOpener struct {
	RoutingID       types.RoutingID `json:"routing_id"`
	OpenerRoutingID types.RoutingID `json:"opener_routing_id,omitempty"`
}

// SetProxyLive marks a proxy as backed (or not) by a live host
type SetProxyLive struct {
	RoutingID types.RoutingID `json:"routing_id"`
	Live      bool            `json:"live"`
}

// UpdateGeometry tells a child's local frame where its parent placed it
type UpdateGeometry struct {
	RoutingID types.RoutingID `json:"routing_id"`
	Rect      types.Rect      `json:"rect"`
	Scale     float64         `json:"scale"`
	Visible   bool            `json:"visible"`
}

// SetChildSurface hands the parent's process the surface to embed for a child proxy
type SetChildSurface struct {
	RoutingID types.RoutingID `json:"routing_id"`
	Surface   types.SurfaceID `json:"surface"`
}

// Hello is the first message a remote content process sends after dialing
type Hello struct {
	ProcessID types.ProcessID `json:"process_id"`
	Token     string          `json:"token"`
}

// BeginNavigation is a renderer-initiated navigation request
type BeginNavigation struct {
	RoutingID types.RoutingID `json:"routing_id"`
	URL       string          `json:"url"`
}

// CommitNavigation reports that a local frame committed a navigation
type CommitNavigation struct {
	RoutingID    types.RoutingID    `json:"routing_id"`
	NavigationID types.NavigationID `json:"navigation_id"`
	URL          string             `json:"url"`
	Origin       types.Origin       `json:"origin"`
}

// SwapOutAck acknowledges SwapOut; the old host may now be deleted
type SwapOutAck struct {
	RoutingID types.RoutingID `json:"routing_id"`
}

// DetachFrame asks to remove a frame. Valid from the frame's own host or from
// its parent's host.
type DetachFrame struct {
	RoutingID types.RoutingID `json:"routing_id"`
}

// CreateChildFrame asks the coordinator to append a child to a local frame.
// The coordinator answers with CreateFrame.
type CreateChildFrame struct {
	ParentRoutingID types.RoutingID    `json:"parent_routing_id"`
	Name            string             `json:"name,omitempty"`
	Sandbox         types.SandboxFlags `json:"sandbox"`
}

// UpdateFramePolicy is sent by a parent when it changes a child's sandbox attribute
type UpdateFramePolicy struct {
	RoutingID types.RoutingID    `json:"routing_id"`
	Sandbox   types.SandboxFlags `json:"sandbox"`
}

// CreateNewWindow is window.open from a local frame
type CreateNewWindow struct {
	OpenerRoutingID types.RoutingID `json:"opener_routing_id"`
	URL             string          `json:"url"`
	Name            string          `json:"name,omitempty"`
}

// FocusFrame reports that a local frame took focus
type FocusFrame struct {
	RoutingID types.RoutingID `json:"routing_id"`
}

// DisownOpener clears a frame's opener
type DisownOpener struct {
	RoutingID types.RoutingID `json:"routing_id"`
}

// SurfaceReady reports a new compositor surface for a local frame
type SurfaceReady struct {
	RoutingID types.RoutingID `json:"routing_id"`
	Surface   types.SurfaceID `json:"surface"`
}

func (CreateFrame) Kind() Kind           { return KindCreateFrame }
func (CreateFrameProxy) Kind() Kind      { return KindCreateFrameProxy }
func (DeleteFrame) Kind() Kind           { return KindDeleteFrame }
func (DeleteFrameProxy) Kind() Kind      { return KindDeleteFrameProxy }
func (Navigate) Kind() Kind              { return KindNavigate }
func (SwapOut) Kind() Kind               { return KindSwapOut }
func (UpdateReplicatedState) Kind() Kind { return KindUpdateReplicatedState }
func (PostMessage) Kind() Kind           { return KindPostMessage }
func (RouteInputEvent) Kind() Kind       { return KindRouteInputEvent }
func (SetFocus) Kind() Kind              { return KindSetFocus }
func (SetHasFocus) Kind() Kind           { return KindSetHasFocus }
func (UpdateOpener) Kind() Kind          { return KindUpdateOpener }
func (SetProxyLive) Kind() Kind          { return KindSetProxyLive }
func (UpdateGeometry) Kind() Kind        { return KindUpdateGeometry }
func (SetChildSurface) Kind() Kind       { return KindSetChildSurface }
func (Hello) Kind() Kind                 { return KindHello }
func (BeginNavigation) Kind() Kind       { return KindBeginNavigation }
func (CommitNavigation) Kind() Kind      { return KindCommitNavigation }
func (SwapOutAck) Kind() Kind            { return KindSwapOutAck }
func (DetachFrame) Kind() Kind           { return KindDetachFrame }
func (CreateChildFrame) Kind() Kind      { return KindCreateChildFrame }
func (UpdateFramePolicy) Kind() Kind     { return KindUpdateFramePolicy }
func (CreateNewWindow) Kind() Kind       { return KindCreateNewWindow }
func (FocusFrame) Kind() Kind            { return KindFocusFrame }
func (DisownOpener) Kind() Kind          { return KindDisownOpener }
func (SurfaceReady) Kind() Kind          { return KindSurfaceReady }

// newMessage returns a pointer to a zero payload for k
func newMessage(k Kind) Message {
	switch k {
	case KindCreateFrame:
		return &CreateFrame{}
	case KindCreateFrameProxy:
		return &CreateFrameProxy{}
	case KindDeleteFrame:
		return &DeleteFrame{}
	case KindDeleteFrameProxy:
		return &DeleteFrameProxy{}
	case KindNavigate:
		return &Navigate{}
	case KindSwapOut:
		return &SwapOut{}
	case KindUpdateReplicatedState:
		return &UpdateReplicatedState{}
	case KindPostMessage:
		return &PostMessage{}
	case KindRouteInputEvent:
		return &RouteInputEvent{}
	case KindSetFocus:
		return &SetFocus{}
	case KindSetHasFocus:
		return &SetHasFocus{}
	case KindUpdateOpener:
		return &UpdateOpener{}
	case KindSetProxyLive:
		return &SetProxyLive{}
	case KindUpdateGeometry:
		return &UpdateGeometry{}
	case KindSetChildSurface:
		return &SetChildSurface{}
	case KindHello:
		return &Hello{}
	case KindBeginNavigation:
		return &BeginNavigation{}
	case KindCommitNavigation:
		return &CommitNavigation{}
	case KindSwapOutAck:
		return &SwapOutAck{}
	case KindDetachFrame:
		return &DetachFrame{}
	case KindCreateChildFrame:
		return &CreateChildFrame{}
	case KindUpdateFramePolicy:
		return &UpdateFramePolicy{}
	case KindCreateNewWindow:
		return &CreateNewWindow{}
	case KindFocusFrame:
		return &FocusFrame{}
	case KindDisownOpener:
		return &DisownOpener{}
	case KindSurfaceReady:
		return &SurfaceReady{}
	}
	return nil
}
