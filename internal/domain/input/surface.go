package input

import (
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Surface is one frame's rendered area
type Surface struct {
	Frame types.FrameID
	// Bounds in the parent's local coordinates; for the root, in view coordinates
	Bounds types.Rect
	// Scale of the frame's content relative to its parent. Zero means 1.
	Scale       float64
	Visible     bool
	HitTestable bool
	Children    []*Surface
}

// Target is the result of routing
type Target struct {
	Frame types.FrameID
	// Point in the target frame's local coordinates
	Point types.Point
}

func (s *Surface) toLocal(p types.Point) types.Point {
	return p.Sub(s.Bounds.Origin).Scale(s.Scale)
}

// HitTest returns the topmost hit-testable surface under p
func HitTest(root *Surface, p types.Point) (Target, bool) {
	if root == nil {
		return Target{}, false
	}
	return hit(root, p)
}

func hit(s *Surface, p types.Point) (Target, bool) {
	if !s.Visible || !s.HitTestable || !s.Bounds.Contains(p) {
		return Target{}, false
	}
	local := s.toLocal(p)
	for i := len(s.Children) - 1; i >= 0; i-- {
		if t, ok := hit(s.Children[i], local); ok {
			return t, true
		}
	}
	return Target{Frame: s.Frame, Point: local}, true
}

// Transform maps p from root view coordinates into frame's local space
// without hit testing. Returns false if frame is not in the tree.
func Transform(root *Surface, frame types.FrameID, p types.Point) (types.Point, bool) {
	path := pathTo(root, frame)
	if path == nil {
		return types.Point{}, false
	}
	for _, s := range path {
		p = s.toLocal(p)
	}
	return p, true
}

// pathTo returns the surfaces from root down to frame, inclusive
func pathTo(s *Surface, frame types.FrameID) []*Surface {
	if s == nil {
		return nil
	}
	if s.Frame == frame {
		return []*Surface{s}
	}
	for _, c := range s.Children {
		if rest := pathTo(c, frame); rest != nil {
			return append([]*Surface{s}, rest...)
		}
	}
	return nil
}
