/*
Package monitoring provides Prometheus metrics collection.

# Overview

Tracks HTTP request latency and throughput, trim run outcomes (runs,
duration, freed bytes, processes trimmed and skipped), WebSocket
connections, and service uptime.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	// Record a trim run outcome
	metrics.RecordTrimRun(freed, trimmed, skipped, duration)

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
