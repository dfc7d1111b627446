package types

import "strconv"

// FrameID is the coordinator-wide identity of a frame. Allocated
// monotonically and never reused, so a stale id can only miss.
type FrameID uint64

// RoutingID names an object (local frame or proxy) inside one content
// process. Routing ids are scoped to a process; the same value in two
// processes names unrelated objects.
type RoutingID int32

// RoutingNone is the absent routing id
const RoutingNone RoutingID = 0

// SiteGroupID identifies a site group for the lifetime of the coordinator
type SiteGroupID uint64

// ProcessID identifies a content process. Never reused.
type ProcessID uint64

// NavigationID identifies one navigation attempt. A commit carrying an id
// other than the frame's pending navigation is stale.
type NavigationID uint64

func (id FrameID) String() string     { return strconv.FormatUint(uint64(id), 10) }
func (id RoutingID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id SiteGroupID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id ProcessID) String() string   { return strconv.FormatUint(uint64(id), 10) }
