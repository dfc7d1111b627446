// Package main is a content process. The coordinator execs one per site
// group in remote mode; it dials back, presents its launch token and then
// answers frame protocol messages until the connection closes.
//
// Usage (normally invoked by the coordinator):
//
//	./renderer --coordinator ws://127.0.0.1:8000/ipc --process-id 3 --token lch_... --site https://a.com
package main
