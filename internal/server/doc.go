// Package server wires the isolation coordinator into a runnable service.
//
// Construction order:
//  1. Logger from configuration
//  2. Prometheus registry and metrics
//  3. Tracer, navigation policy, site resolver, launch breakers
//  4. Launcher: in-memory renderers (local) or exec'd renderer binaries
//     that attach over /ipc (remote)
//  5. Coordinator and the gin router
//
// Run serves HTTP and the coordinator's event loop in one errgroup and shuts
// both down when its context ends.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = srv.Run(ctx)
package server
