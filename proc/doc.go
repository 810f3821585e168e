// Package proc implements the process table of a small Unix-like kernel:
// process creation and termination, reparenting and reaping, sleep and
// wakeup, and the per-CPU scheduler loop driven by a pluggable Policy.
//
// Every process runs on its own goroutine but only while a CPU has switched
// to it; a CPU's scheduler goroutine and the process it dispatched hand
// execution back and forth through platform.Switch, so at most one of them
// runs at a time. Slot locks are passed across those switches the same way a
// kernel passes them across a context switch.
//
// Lock order: the table's ordering lock (which guards parent links) is taken
// before any slot lock. Wakeup and kill are never called holding a slot lock.
package proc
