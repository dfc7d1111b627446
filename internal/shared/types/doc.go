// Package types provides shared value types for the frame isolation core.
//
// These types cross package and process boundaries: they are carried inside
// IPC payloads, copied into every proxy of a frame, and consumed by the input
// router. None of them hold references to live tree objects.
//
// Core Types:
//   - ReplicatedState: Frame metadata mirrored into every proxy
//   - SandboxFlags: Iframe sandbox policy bit set
//   - Origin: Scheme/host/port triple (or opaque)
//   - SurfaceID: Compositor surface identity with a generation
//   - FrameID, RoutingID, SiteGroupID, ProcessID: Scoped integer identities
//
// Geometry:
//   - Point, Size, Rect: Float coordinates in a frame's local space
//   - InputEvent: Mouse/keyboard event with root or local coordinates
//
// Example Usage:
//
//	state := types.ReplicatedState{
//	    Name:   "ad-slot",
//	    Origin: types.OriginFromURL(u),
//	}
//	state.PendingSandbox = types.ParseSandbox("allow-scripts")
package types
