package frametree

import "github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"

// Observer receives tree events. Embed NopObserver to implement a subset.
type Observer interface {
	FrameCreated(f *Frame)
	// FrameRemoved fires once per frame, after it fired for all the frame's children
	FrameRemoved(f *Frame)
	FocusChanged(t *Tree, previous, current *Frame)
	NavigationCommitted(f *Frame, url string)
	ProcessGone(pid types.ProcessID, reason string)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) FrameCreated(*Frame)                 {}
func (NopObserver) FrameRemoved(*Frame)                 {}
func (NopObserver) FocusChanged(*Tree, *Frame, *Frame)  {}
func (NopObserver) NavigationCommitted(*Frame, string)  {}
func (NopObserver) ProcessGone(types.ProcessID, string) {}

func (c *Coordinator) notifyCreated(f *Frame) {
	for _, o := range c.observers {
		o.FrameCreated(f)
	}
}

func (c *Coordinator) notifyRemoved(f *Frame) {
	for _, o := range c.observers {
		o.FrameRemoved(f)
	}
}

func (c *Coordinator) notifyFocus(t *Tree, previous, current *Frame) {
	for _, o := range c.observers {
		o.FocusChanged(t, previous, current)
	}
}

func (c *Coordinator) notifyCommitted(f *Frame) {
	for _, o := range c.observers {
		o.NavigationCommitted(f, f.url)
	}
}

func (c *Coordinator) notifyProcessGone(pid types.ProcessID, reason string) {
	for _, o := range c.observers {
		o.ProcessGone(pid, reason)
	}
}
