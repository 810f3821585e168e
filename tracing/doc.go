// Package tracing wraps OpenTelemetry so the kernel service can record spans
// for boot, shutdown and lifecycle event handling without importing the SDK
// everywhere. Until Init or InitWithExporter is called spans are no-ops.
package tracing
