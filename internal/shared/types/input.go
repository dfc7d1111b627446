package types

import "time"

// EventType classifies an input event
type EventType string

const (
	MouseDown  EventType = "mouse_down"
	MouseMove  EventType = "mouse_move"
	MouseUp    EventType = "mouse_up"
	MouseWheel EventType = "mouse_wheel"
	KeyDown    EventType = "key_down"
	KeyUp      EventType = "key_up"
)

// MouseButton identifies the pressed button
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// InputEvent is an input event. Position is in the coordinate space of the
// frame it is addressed to: root coordinates on entry to the router, the
// target frame's local coordinates after routing.
type InputEvent struct {
	Type      EventType   `json:"type"`
	Position  Point       `json:"position"`
	Button    MouseButton `json:"button,omitempty"`
	Modifiers int         `json:"modifiers,omitempty"`
	DeltaX    float64     `json:"delta_x,omitempty"`
	DeltaY    float64     `json:"delta_y,omitempty"`
	Key       string      `json:"key,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// IsMouse reports whether the event carries a pointer position
func (e InputEvent) IsMouse() bool {
	switch e.Type {
	case MouseDown, MouseMove, MouseUp, MouseWheel:
		return true
	}
	return false
}
