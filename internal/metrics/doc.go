// Package metrics provides an observability framework for Stagehand refresh metrics.
//
// # Design Philosophy
//
// This package implements the Null Object pattern to enable metrics collection
// without requiring explicit nil checks throughout the codebase. By default,
// all components use NoopRecorder which implements the Recorder interface with
// no-op methods that inline to nothing at compile time.
//
// # Architecture
//
// The metrics system has three components:
//
//  1. Recorder interface - Defines all metrics operations
//  2. NoopRecorder - Default implementation that does nothing (zero overhead)
//  3. PrometheusRecorder - Prometheus adapter, registered into the daemon registry
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection:
//
//	type Daemon struct {
//	    recorder metrics.Recorder
//	}
//
// CLI commands run with NoopRecorder. The daemon constructs a registry via
// NewRegistry, wraps it in a PrometheusRecorder, and exposes it on /metrics
// through HTTPHandler.
package metrics
