package frametree

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// OpenPopup opens rawURL in a new tree whose main frame has opener as its
// opener. Sandboxed frames without allow-popups are refused.
func (c *Coordinator) OpenPopup(ctx context.Context, opener *Frame, rawURL, name string) (*Tree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if opener == nil || opener.removed {
		return nil, ErrUnknownFrame
	}
	return c.openPopup(ctx, opener, rawURL, name, false)
}

// DisownOpener clears f's opener (window.opener = null)
func (c *Coordinator) DisownOpener(f *Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil || f.removed {
		return ErrUnknownFrame
	}
	c.disownOpener(f)
	return nil
}

func (c *Coordinator) openPopup(ctx context.Context, opener *Frame, rawURL, name string, rendererInitiated bool) (*Tree, error) {
	flags := opener.replicated.EffectiveSandbox
	if flags.Has(types.SandboxPopups) {
		c.metrics.RecordNavigation("none", "popup_blocked", 0)
		return nil, ErrSandboxedPopup
	}
	oh := opener.current
	if !oh.live {
		return nil, ErrFrameNotLive
	}
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	var inherited types.SandboxFlags
	if flags.Has(types.SandboxPropagatesToAuxiliary) {
		inherited = flags
	}

	t := c.newTreeRecord()
	root := c.newFrame(t, nil, types.ReplicatedState{
		Name:             name,
		Origin:           opener.replicated.Origin,
		PendingSandbox:   inherited,
		EffectiveSandbox: inherited,
	})
	t.root = root

	c.sites.Retain(oh.group)
	root.current = c.newHost(root, oh.group, oh.process, HostActive)
	root.current.openerRouting = oh.routing
	root.opener = opener
	opener.openees[root.id] = root

	c.send(oh.process, ipc.CreateFrame{
		RoutingID:       root.current.routing,
		FrameID:         root.id,
		OpenerRoutingID: oh.routing,
		Replicated:      root.replicated,
	})
	c.notifyCreated(root)
	c.reconcile()

	if _, err := c.navigate(ctx, root, u, rendererInitiated); err != nil {
		c.closeTree(t)
		return nil, err
	}
	c.logger.Info("popup opened",
		zap.Uint64("tree", uint64(t.id)),
		zap.Uint64("opener", uint64(opener.id)),
		zap.String("url", u.String()))
	return t, nil
}

func (c *Coordinator) disownOpener(f *Frame) {
	if f.opener == nil {
		return
	}
	delete(f.opener.openees, f.id)
	f.opener = nil
	c.reconcile()
}

// isPopupRefusal reports errors that refuse a window.open without blaming the caller
func isPopupRefusal(err error) bool {
	return errors.Is(err, ErrSandboxedPopup) || errors.Is(err, ErrIllegalNavigation) ||
		errors.Is(err, ErrProcessLaunch) || errors.Is(err, ErrInvalidURL)
}

// Openees returns the frames f opened that still point back at it
func (f *Frame) Openees() []*Frame {
	f.tree.c.mu.Lock()
	defer f.tree.c.mu.Unlock()
	return sortedFrames(f.openees)
}
