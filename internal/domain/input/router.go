package input

import (
	"sync"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Router routes mouse events for one view and tracks capture
type Router struct {
	mu       sync.Mutex
	captured types.FrameID
	capture  bool
}

// NewRouter creates a router with no capture
func NewRouter() *Router {
	return &Router{}
}

// Route picks the frame that receives ev and returns the event rewritten into
// that frame's coordinates. Non-mouse events are not routed.
func (r *Router) Route(root *Surface, ev types.InputEvent) (Target, types.InputEvent, bool) {
	if !ev.IsMouse() {
		return Target{}, ev, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		target Target
		ok     bool
	)
	if r.capture {
		if p, found := Transform(root, r.captured, ev.Position); found {
			target, ok = Target{Frame: r.captured, Point: p}, true
		} else {
			r.capture = false
		}
	}
	if !ok {
		target, ok = HitTest(root, ev.Position)
		if !ok {
			return Target{}, ev, false
		}
	}

	switch ev.Type {
	case types.MouseDown:
		r.captured, r.capture = target.Frame, true
	case types.MouseUp:
		r.capture = false
	}

	ev.Position = target.Point
	return target, ev, true
}

// Captured returns the frame holding capture
func (r *Router) Captured() (types.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captured, r.capture
}

// Release drops capture if frame holds it
func (r *Router) Release(frame types.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture && r.captured == frame {
		r.capture = false
	}
}
