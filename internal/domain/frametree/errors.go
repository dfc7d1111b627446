package frametree

import "errors"

var (
	// ErrUnknownFrame is returned for frames that were removed or never existed
	ErrUnknownFrame = errors.New("unknown frame")
	// ErrUnknownTree is returned for closed or unknown trees
	ErrUnknownTree = errors.New("unknown tree")
	// ErrCannotRemoveRoot is returned when removing a tree's root frame
	ErrCannotRemoveRoot = errors.New("cannot remove root frame")
	// ErrIllegalNavigation is returned when policy refuses a navigation
	ErrIllegalNavigation = errors.New("illegal navigation")
	// ErrSandboxedPopup is returned when a sandboxed frame tries to open a window
	ErrSandboxedPopup = errors.New("popup blocked by sandbox")
	// ErrFrameNotLive is returned when an operation needs a live host
	ErrFrameNotLive = errors.New("frame has no live host")
	// ErrInvalidURL is returned for unparseable navigation targets
	ErrInvalidURL = errors.New("invalid url")
	// ErrProtocolViolation marks content messages that get the sender terminated
	ErrProtocolViolation = errors.New("protocol violation")
)
