package types

// ReplicatedField names one field of ReplicatedState for delta updates
type ReplicatedField string

const (
	FieldName               ReplicatedField = "name"
	FieldOrigin             ReplicatedField = "origin"
	FieldPendingSandbox     ReplicatedField = "sandbox_pending"
	FieldEffectiveSandbox   ReplicatedField = "sandbox_effective"
	FieldStrictMixedContent ReplicatedField = "strict_mixed_content"
)

// ReplicatedState is the subset of a frame's metadata copied into every proxy.
//
// EffectiveSandbox changes only when a navigation commits in the frame.
// PendingSandbox may change at any time (the parent edits the iframe
// attribute) and becomes effective at the frame's next commit.
type ReplicatedState struct {
	Name               string       `json:"name"`
	UniqueName         string       `json:"unique_name"`
	Origin             Origin       `json:"origin"`
	PendingSandbox     SandboxFlags `json:"sandbox_pending"`
	EffectiveSandbox   SandboxFlags `json:"sandbox_effective"`
	StrictMixedContent bool         `json:"strict_mixed_content"`
}
