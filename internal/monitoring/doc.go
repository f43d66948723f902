/*
Package monitoring provides Prometheus metrics for periphery.

# Overview

Metrics are registered against an injected prometheus.Registerer so tests
can use an isolated registry. *Metrics implements capability.Recorder, and
its MountsActive gauge feeds the mount registry.

# Features

- HTTP request metrics (latency, status)
- Capability call counts, durations and faults by kind
- Active mounts and sessions
- Redraw, script run and snapshot counters
- Uptime

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))

	caps := capability.NewRegistry(capability.WithRecorder(metrics))

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
