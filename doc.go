// Package kproc runs the process lifecycle and scheduling core of a teaching
// kernel as an embeddable service.
//
// A Service owns a fixed-size process table, simulated physical memory, an
// open-file table and a file system, one scheduler goroutine per configured
// CPU, and a timer. Processes are Go functions (proc.Program) that call
// kernel operations through the *proc.Proc they receive:
//
//	srv, _ := kproc.New(kproc.WithConfig(config))
//	_ = srv.Boot(ctx, func(p *proc.Proc) {
//		pid, _ := p.Fork(worker)
//		_, status, _ := p.Wait()
//		p.Exit(status)
//	})
//	defer srv.Shutdown(ctx)
//
// Lifecycle events feed the counters returned by Stats, and every reaped
// process leaves an accounting record listed by Accounting.
package kproc
