// Package input routes pointer events through a tree of embedded surfaces.
//
// Each Surface is placed in its parent's local coordinate space by Bounds and
// renders its own content at Scale relative to the parent, so a point p in
// the parent maps to (p - Bounds.Origin) / Scale in the child. The router hit
// tests from the root, preferring later children (they paint on top), and
// skips subtrees that are hidden or marked not hit-testable.
//
// A mouse down captures the target: moves and the final mouse up go to the
// same frame, transformed into its space, without hit testing, until the
// button is released or the captured frame disappears.
package input
