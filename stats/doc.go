// Package stats keeps aggregated process lifecycle counters for a running
// kernel. Counters are updated from lifecycle events through Delta values and
// can be observed through Snapshot or an OnChange callback.
package stats
