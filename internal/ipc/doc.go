// Package ipc defines the messages exchanged between the coordinator and
// content processes, their binary encoding, and a WebSocket transport.
//
// Every message is a plain struct implementing Message. On the wire a message
// is an Envelope{Kind, Body} encoded with deterministic CBOR; Body holds the
// CBOR encoding of the payload struct. Identities inside payloads are
// process-scoped routing ids, never pointers, so a message that outlives the
// object it names decodes fine and is dropped by the receiver.
//
// Directions:
//
//	coordinator -> content: CreateFrame, CreateFrameProxy, DeleteFrame,
//	    DeleteFrameProxy, Navigate, SwapOut, UpdateReplicatedState,
//	    PostMessage, RouteInputEvent, SetFocus, SetHasFocus, UpdateOpener,
//	    SetProxyLive, UpdateGeometry, SetChildSurface
//	content -> coordinator: Hello, BeginNavigation, CommitNavigation,
//	    SwapOutAck, DetachFrame, CreateChildFrame, UpdateReplicatedState,
//	    UpdateFramePolicy, PostMessage, CreateNewWindow, FocusFrame,
//	    DisownOpener, SurfaceReady
//
// Within one Conn messages are delivered in order. Nothing orders messages
// across two connections.
package ipc
