// Package process manages content processes on behalf of the coordinator.
//
// A Process is a handle the coordinator sends messages through. Messages in
// the other direction, and exit notifications, arrive on the Sink passed at
// launch. Sinks must not block: both launchers call them from whatever
// goroutine observed the event, including from inside Send for in-memory
// processes.
//
// Two launchers are provided:
//
//   - LocalLauncher runs the content side in memory. Every message is
//     round-tripped through the ipc codec so the content side sees exactly
//     what a remote process would. Used by tests and RENDERER_MODE=local.
//   - RemoteLauncher execs a renderer binary that dials back over WebSocket
//     and presents a one-time launch token. Messages sent before it attaches
//     are buffered.
//
// Process ids are never reused, so a message tagged with a dead process id is
// always recognisable as stale.
package process
