// Package clock supplies wall-clock timestamps for accounting records and
// queued events. Kernel time is counted in ticks elsewhere; this is only the
// host time attached to externally visible records.
package clock

import "time"

// NowFunc returns the current host time. Override in tests for determinism.
var NowFunc = time.Now

// Now returns NowFunc() truncated to microseconds in UTC so records
// round-trip through JSON and YAML unchanged.
func Now() time.Time { return NowFunc().UTC().Truncate(time.Microsecond) }
