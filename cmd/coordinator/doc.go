// Package main is the entry point for the site isolation coordinator.
//
// The coordinator owns every page's frame tree and decides which content
// process renders each frame. Embedders drive it over the HTTP API; content
// processes attach over the /ipc WebSocket endpoint.
//
//	Embedder → HTTP API → Coordinator ⇄ /ipc ⇄ renderer processes
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# In-memory renderers
//	./coordinator --port 8000
//
//	# One renderer binary per site group
//	./coordinator --renderer-mode remote --renderer-path ./renderer
//
//	# Development mode (colored logs, debug level)
//	./coordinator --dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
