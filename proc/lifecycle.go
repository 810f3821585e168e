package proc

import (
	"fmt"

	"github.com/viant/kproc/platform"
)

// UserInit creates the first process running prog on the init image.
func (t *Table) UserInit(prog Program) error {
	if prog == nil {
		return ErrNilProgram
	}
	if t.initProc.Load() != nil {
		return ErrBooted
	}
	s, err := t.allocate(nil)
	if err != nil {
		return err
	}
	if err = t.platform.Memory.Load(s.as, t.config.Image); err != nil {
		t.free(s)
		s.lock.release(nil)
		return fmt.Errorf("failed to load init image: %w", err)
	}
	s.size = platform.PageSize
	s.frame.EPC = 0
	s.frame.SP = platform.PageSize
	s.frame.Entry = prog
	s.name = "initcode"
	if s.cwd, err = t.platform.FS.Lookup("/"); err != nil {
		t.free(s)
		s.lock.release(nil)
		return fmt.Errorf("failed to resolve root: %w", err)
	}
	t.initProc.Store(s)
	s.setState(Runnable)
	pid, now := s.pid, s.ctime
	s.lock.release(nil)
	t.kick()
	t.emit(Event{Type: EventBoot, PID: pid, Name: "initcode", Tick: now})
	return nil
}

// fork creates a copy of s that runs child.
func (t *Table) fork(s *Slot, child Program) (int, error) {
	if child == nil {
		return -1, ErrNilProgram
	}
	c := s.cpu
	np, err := t.allocate(c)
	if err != nil {
		return -1, err
	}
	if err = t.platform.Memory.Copy(s.as, np.as, s.size); err != nil {
		t.free(np)
		np.lock.release(c)
		return -1, err
	}
	np.size = s.size
	page := np.frame.page
	*np.frame = *s.frame
	np.frame.page = page
	np.frame.A0 = 0
	np.frame.Entry = child
	for i, f := range s.files {
		if f != nil {
			np.files[i] = t.platform.Files.Dup(f)
		}
	}
	if s.cwd != nil {
		np.cwd = t.platform.FS.Dup(s.cwd)
	}
	np.name = s.name
	np.trace = s.trace
	pid := np.pid
	np.lock.release(c)

	order := t.lockOrdering(c)
	order.setParent(np, s)
	order.release(c)

	np.lock.acquire(c)
	np.setState(Runnable)
	np.lock.release(c)
	t.kick()
	t.emit(Event{Type: EventFork, PID: pid, Parent: s.peekPID(), Name: s.name, Tick: t.now()})

	if yielder, ok := t.policy.(ForkYielder); ok {
		s.lock.acquire(c)
		yield := yielder.ForkYield(s.sched)
		s.lock.release(c)
		if yield {
			t.yield(s)
		}
	}
	return pid, nil
}

// exit terminates s; it does not return.
func (t *Table) exit(s *Slot, status int) {
	if s == t.initProc.Load() {
		panic("init exiting")
	}
	for i, f := range s.files {
		if f != nil {
			t.platform.Files.Close(f)
			s.files[i] = nil
		}
	}
	if s.cwd != nil {
		t.platform.FS.BeginOp()
		t.platform.FS.Release(s.cwd)
		t.platform.FS.EndOp()
		s.cwd = nil
	}

	now := t.now()
	t.emit(Event{Type: EventExit, PID: s.peekPID(), Name: s.name, Status: status, Tick: now})

	c := s.cpu
	order := t.lockOrdering(c)
	order.reparent(c, s)
	if parent := order.parent(s); parent != nil {
		// Parent might be sleeping in wait.
		t.wakeup(c, parent, s)
	}

	s.lock.acquire(c)
	s.xstate = status
	s.etime = now
	s.setState(Zombie)
	order.release(c)

	t.schedExit(s)
}

// wait reaps one zombie child of s, blocking while live children remain.
func (t *Table) wait(s *Slot) (Reaped, error) {
	order := t.lockOrdering(s.cpu)
	for {
		haveKids := false
		for i := range t.slots {
			child := &t.slots[i]
			if order.parent(child) != s {
				continue
			}
			c := s.cpu
			child.lock.acquire(c)
			haveKids = true
			if child.state == Zombie {
				ret := Reaped{
					PID:       child.pid,
					Status:    child.xstate,
					RunTicks:  child.rtime,
					WaitTicks: waitTicks(child.ctime, child.etime, child.rtime),
				}
				name, exitTick := child.name, child.etime
				order.setParent(child, nil)
				t.free(child)
				child.lock.release(c)
				order.release(c)
				t.emit(Event{Type: EventReap, PID: ret.PID, Parent: s.peekPID(), Name: name, Status: ret.Status,
					Tick: exitTick, RunTicks: ret.RunTicks, WaitTicks: ret.WaitTicks})
				return ret, nil
			}
			child.lock.release(c)
		}
		if !haveKids || s.killed.Load() {
			order.release(s.cpu)
			return Reaped{PID: -1}, ErrNoChildren
		}
		t.sleep(s, s, &t.waitLock)
	}
}

// kill marks pid killed and wakes it if sleeping; it exits at its next
// checkpoint. self, when set, is the caller and is marked without taking its
// lock.
func (t *Table) kill(c *CPU, self *Slot, pid int) error {
	for i := range t.slots {
		s := &t.slots[i]
		if s == self {
			if pid != s.peekPID() {
				continue
			}
			s.killed.Store(true)
			t.emit(Event{Type: EventKill, PID: pid, Name: s.name, Tick: t.now()})
			return nil
		}
		s.lock.acquire(c)
		if s.pid == pid && s.state != Unused && s.state != Zombie {
			s.killed.Store(true)
			if s.state == Sleeping {
				s.setState(Runnable)
				s.needResched.Store(false)
				t.policy.Woken(s.sched, t.now())
			}
			name := s.name
			s.lock.release(c)
			t.kick()
			t.emit(Event{Type: EventKill, PID: pid, Name: name, Tick: t.now()})
			return nil
		}
		s.lock.release(c)
	}
	return fmt.Errorf("pid %v: %w", pid, ErrNotFound)
}

// Kill marks pid killed from outside any process.
func (t *Table) Kill(pid int) error {
	return t.kill(nil, nil, pid)
}

func (t *Table) grow(s *Slot, delta int) error {
	size := s.size
	newSize := size + uint64(delta)
	if delta < 0 {
		if uint64(-delta) > size {
			return fmt.Errorf("shrink by %v below zero: %w", -delta, ErrInvalidSize)
		}
		newSize = size - uint64(-delta)
	}
	if newSize == size {
		return nil
	}
	got, err := t.platform.Memory.Resize(s.as, size, newSize)
	if err != nil {
		return err
	}
	s.lock.acquire(s.cpu)
	s.size = got
	s.lock.release(s.cpu)
	return nil
}

func (t *Table) setPriority(c *CPU, pid, priority int) (int, error) {
	setter, ok := t.policy.(PrioritySetter)
	if !ok {
		return -1, fmt.Errorf("%v: %w", t.policy.Name(), ErrNotSupported)
	}
	if err := setter.CheckPriority(priority); err != nil {
		return -1, err
	}
	for i := range t.slots {
		s := &t.slots[i]
		s.lock.acquire(c)
		if s.pid == pid && (s.state == Runnable || s.state == Sleeping) {
			old, err := setter.SetPriority(s.sched, priority)
			s.lock.release(c)
			return old, err
		}
		s.lock.release(c)
	}
	return -1, fmt.Errorf("pid %v: %w", pid, ErrNotEligible)
}

// SetPriority changes the static priority of pid from outside any process.
func (t *Table) SetPriority(pid, priority int) (int, error) {
	return t.setPriority(nil, pid, priority)
}
