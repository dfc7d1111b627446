// Package renderer implements the content-process side of the frame
// protocol: the tables of local frames and proxies a content process keeps,
// and the replies it sends to the coordinator.
//
// It does not render anything. Navigations commit immediately (or on demand
// when AutoCommit is off), and each commit produces a fresh compositor
// surface id. cmd/renderer runs one Renderer per OS process; tests run one per
// in-memory process and use the query methods to check what each process
// believes about the tree.
//
// Messages naming an unknown parent are ignored. Under the protocol's
// ordering rules a proxy creation can legitimately arrive after its parent was
// detached.
package renderer
