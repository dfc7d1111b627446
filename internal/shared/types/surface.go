package types

import (
	"fmt"

	"github.com/google/uuid"
)

// SurfaceID identifies a compositor surface produced by a frame's renderer.
// LocalID increases every time the renderer allocates a new surface for the
// same sink; a surface with a lower LocalID is stale.
type SurfaceID struct {
	SinkID  uint64    `json:"sink_id"`
	LocalID uint32    `json:"local_id"`
	Token   uuid.UUID `json:"token"`
}

// NewSurfaceID allocates a surface id with a fresh embed token
func NewSurfaceID(sink uint64, local uint32) SurfaceID {
	return SurfaceID{SinkID: sink, LocalID: local, Token: uuid.New()}
}

// IsValid reports whether the id was ever assigned
func (s SurfaceID) IsValid() bool {
	return s.SinkID != 0 && s.Token != uuid.Nil
}

// NewerThan reports whether s supersedes other for the same sink
func (s SurfaceID) NewerThan(other SurfaceID) bool {
	if !other.IsValid() {
		return s.IsValid()
	}
	return s.SinkID == other.SinkID && s.LocalID > other.LocalID
}

func (s SurfaceID) String() string {
	return fmt.Sprintf("SurfaceId(%d, %d, %s)", s.SinkID, s.LocalID, s.Token.String()[:8])
}
