package proc

import (
	"fmt"
	"runtime"

	"github.com/viant/kproc/platform"
)

// Proc is the system call interface of a running process. Its methods must
// be called from the process's own Program.
type Proc struct {
	t *Table
	s *Slot
}

// PID returns the process id.
func (p *Proc) PID() int { return p.s.peekPID() }

// CPU returns the CPU the process currently runs on.
func (p *Proc) CPU() int { return p.s.cpu.id }

// Frame returns a copy of the saved user registers.
func (p *Proc) Frame() TrapFrame {
	ret := *p.s.frame
	ret.page = nil
	return ret
}

// Size returns the address space size in bytes.
func (p *Proc) Size() uint64 { return p.s.size }

// Killed reports whether the process has been killed.
func (p *Proc) Killed() bool { return p.s.killed.Load() }

// Checkpoint is the return path to user mode: a killed process exits here
// and a process whose policy requested preemption yields.
func (p *Proc) Checkpoint() {
	if p.s.killed.Load() {
		p.Exit(-1)
	}
	if p.s.needResched.CompareAndSwap(true, false) {
		p.t.yield(p.s)
		if p.s.killed.Load() {
			p.Exit(-1)
		}
	}
}

// Fork creates a child running child and returns its pid, or -1.
func (p *Proc) Fork(child Program) (int, error) {
	pid, err := p.t.fork(p.s, child)
	p.Checkpoint()
	return pid, err
}

// Exit terminates the process with status. It does not return.
func (p *Proc) Exit(status int) {
	p.t.exit(p.s, status)
}

// Wait reaps a zombie child and returns its pid and exit status.
func (p *Proc) Wait() (int, int, error) {
	ret, err := p.WaitX()
	return ret.PID, ret.Status, err
}

// WaitX is Wait that also reports the child's run and wait ticks.
func (p *Proc) WaitX() (Reaped, error) {
	ret, err := p.t.wait(p.s)
	p.Checkpoint()
	return ret, err
}

// Kill marks pid killed.
func (p *Proc) Kill(pid int) error {
	err := p.t.kill(p.s.cpu, p.s, pid)
	p.Checkpoint()
	return err
}

// SetPriority sets the static priority of pid and returns the previous one.
// The caller yields when the new priority is more urgent than the old.
func (p *Proc) SetPriority(pid, priority int) (int, error) {
	old, err := p.t.setPriority(p.s.cpu, pid, priority)
	if err == nil && priority < old {
		p.t.yield(p.s)
	}
	p.Checkpoint()
	return old, err
}

// Grow changes the address space size by delta bytes.
func (p *Proc) Grow(delta int) error {
	err := p.t.grow(p.s, delta)
	p.Checkpoint()
	return err
}

// Yield gives up the CPU for one scheduling round.
func (p *Proc) Yield() {
	p.t.yield(p.s)
	p.Checkpoint()
}

// Acquire takes lk on the process's CPU.
func (p *Proc) Acquire(lk *Lock) { lk.acquire(p.s.cpu) }

// Release releases lk taken with Acquire.
func (p *Proc) Release(lk *Lock) { lk.release(p.s.cpu) }

// Sleep releases lk, which the caller holds, and blocks on ch until woken.
// lk is held again on return.
func (p *Proc) Sleep(ch any, lk *Lock) {
	p.t.sleep(p.s, ch, lk)
}

// Wakeup wakes every other process sleeping on ch.
func (p *Proc) Wakeup(ch any) {
	p.t.wakeup(p.s.cpu, ch, p.s)
}

// SleepTicks blocks for n ticks.
func (p *Proc) SleepTicks(n uint64) error {
	t := p.t
	t.tickLock.acquire(p.s.cpu)
	start := t.now()
	for t.now()-start < n {
		if p.s.killed.Load() {
			t.tickLock.release(p.s.cpu)
			p.Checkpoint()
			return ErrKilled
		}
		t.sleep(p.s, &t.tickLock, &t.tickLock)
	}
	t.tickLock.release(p.s.cpu)
	p.Checkpoint()
	return nil
}

// Spin computes for n ticks of CPU time.
func (p *Proc) Spin(n uint64) {
	target := p.runTicks() + n
	for {
		next := p.t.nextTick()
		if p.runTicks() >= target {
			return
		}
		select {
		case <-next:
		case <-p.t.halt:
			runtime.Goexit()
		}
		p.Checkpoint()
	}
}

func (p *Proc) runTicks() uint64 {
	p.s.lock.acquire(p.s.cpu)
	defer p.s.lock.release(p.s.cpu)
	return p.s.rtime
}

// Trace sets the system call trace mask; children inherit it.
func (p *Proc) Trace(mask uint32) {
	p.s.trace = mask
	p.Checkpoint()
}

// TraceMask returns the system call trace mask.
func (p *Proc) TraceMask() uint32 { return p.s.trace }

// Install places f in the lowest free descriptor.
func (p *Proc) Install(f *platform.File) (int, error) {
	for fd, open := range p.s.files {
		if open == nil {
			p.s.files[fd] = f
			return fd, nil
		}
	}
	return -1, ErrTooManyFiles
}

// File returns the file open at fd.
func (p *Proc) File(fd int) (*platform.File, error) {
	if fd < 0 || fd >= len(p.s.files) || p.s.files[fd] == nil {
		return nil, fmt.Errorf("fd %v: %w", fd, ErrBadDescriptor)
	}
	return p.s.files[fd], nil
}

// Close drops the file open at fd.
func (p *Proc) Close(fd int) error {
	f, err := p.File(fd)
	if err != nil {
		return err
	}
	p.s.files[fd] = nil
	p.t.platform.Files.Close(f)
	return nil
}
