/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the
coordinator, tracking the frame tree population, navigation outcomes, content
process lifecycle, IPC traffic and input routing.

# Features

- Embedder API request metrics (latency, status)
- Frame, proxy, tree and pending-deletion gauges
- Navigation outcomes by site group decision
- Process launches, exits and protocol violations
- IPC messages sent and dropped
- Routed input events

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record domain metrics
	metrics.RecordNavigation("cross_site_group", "committed", elapsed)
	metrics.RecordViolation("commit_navigation")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
