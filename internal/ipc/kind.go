package ipc

import "fmt"

// Kind identifies a message type on the wire
type Kind uint8

const (
	KindInvalid Kind = iota

	// coordinator -> content
	KindCreateFrame
	KindCreateFrameProxy
	KindDeleteFrame
	KindDeleteFrameProxy
	KindNavigate
	KindSwapOut
	KindUpdateReplicatedState
	KindPostMessage
	KindRouteInputEvent
	KindSetFocus
	KindSetHasFocus
	KindUpdateOpener
	KindSetProxyLive
	KindUpdateGeometry
	KindSetChildSurface

	// content -> coordinator
	KindHello
	KindBeginNavigation
	KindCommitNavigation
	KindSwapOutAck
	KindDetachFrame
	KindCreateChildFrame
	KindUpdateFramePolicy
	KindCreateNewWindow
	KindFocusFrame
	KindDisownOpener
	KindSurfaceReady

	kindCount
)

var kindNames = [...]string{
	KindInvalid:               "invalid",
	KindCreateFrame:           "create_frame",
	KindCreateFrameProxy:      "create_frame_proxy",
	KindDeleteFrame:           "delete_frame",
	KindDeleteFrameProxy:      "delete_frame_proxy",
	KindNavigate:              "navigate",
	KindSwapOut:               "swap_out",
	KindUpdateReplicatedState: "update_replicated_state",
	KindPostMessage:           "post_message",
	KindRouteInputEvent:       "route_input_event",
	KindSetFocus:              "set_focus",
	KindSetHasFocus:           "set_has_focus",
	KindUpdateOpener:          "update_opener",
	KindSetProxyLive:          "set_proxy_live",
	KindUpdateGeometry:        "update_geometry",
	KindSetChildSurface:       "set_child_surface",
	KindHello:                 "hello",
	KindBeginNavigation:       "begin_navigation",
	KindCommitNavigation:      "commit_navigation",
	KindSwapOutAck:            "swap_out_ack",
	KindDetachFrame:           "detach_frame",
	KindCreateChildFrame:      "create_child_frame",
	KindUpdateFramePolicy:     "update_frame_policy",
	KindCreateNewWindow:       "create_new_window",
	KindFocusFrame:            "focus_frame",
	KindDisownOpener:          "disown_opener",
	KindSurfaceReady:          "surface_ready",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k names a known message
func (k Kind) Valid() bool {
	return k > KindInvalid && k < kindCount
}
