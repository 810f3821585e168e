package proc

import (
	"errors"
	"runtime"

	"github.com/viant/kproc/platform"
)

// next asks the policy for a slot and returns it locked and still Runnable.
// found reports that the policy picked a slot that changed state before it
// could be locked.
func (t *Table) next(c *CPU) (s *Slot, found bool) {
	index, ok := t.policy.Select(&queue{t: t, c: c}, t.now())
	if !ok {
		return nil, false
	}
	s = &t.slots[index]
	s.lock.acquire(c)
	if s.state != Runnable {
		s.lock.release(c)
		return nil, true
	}
	return s, true
}

type queue struct {
	t *Table
	c *CPU
}

func (q *queue) Len() int { return len(q.t.slots) }

func (q *queue) Age(fn func(st SchedState)) {
	for i := range q.t.slots {
		s := &q.t.slots[i]
		s.lock.acquire(q.c)
		if s.state == Runnable {
			fn(s.sched)
		}
		s.lock.release(q.c)
	}
}

func (q *queue) Best(eligible func(st SchedState) bool, better func(a, b SchedState) bool) (int, bool) {
	var best *Slot
	for i := range q.t.slots {
		s := &q.t.slots[i]
		s.lock.acquire(q.c)
		if s.state == Runnable && (eligible == nil || eligible(s.sched)) && (best == nil || better(s.sched, best.sched)) {
			// best stays locked so its state cannot move while later slots are compared
			if best != nil {
				best.lock.release(q.c)
			}
			best = s
			continue
		}
		s.lock.release(q.c)
	}
	if best == nil {
		return -1, false
	}
	best.lock.release(q.c)
	return best.index, true
}

func (q *queue) Next(from int, eligible func(st SchedState) bool) (int, bool) {
	n := len(q.t.slots)
	if from < 0 {
		from = 0
	}
	for k := 0; k < n; k++ {
		s := &q.t.slots[(from+k)%n]
		s.lock.acquire(q.c)
		ok := s.state == Runnable && (eligible == nil || eligible(s.sched))
		s.lock.release(q.c)
		if ok {
			return s.index, true
		}
	}
	return -1, false
}

// checkSched verifies the conditions for giving up the CPU.
func (t *Table) checkSched(s *Slot) error {
	c := s.cpu
	switch {
	case c == nil:
		return errors.New("sched no cpu")
	case !s.lock.holding(c):
		return errors.New("sched p->lock")
	case c.noff != 1:
		return errors.New("sched locks")
	case s.state == Running:
		return errors.New("sched running")
	case c.intr.Enabled():
		return errors.New("sched interruptible")
	}
	return nil
}

// sched switches from s to its CPU's scheduler. The caller holds only the
// slot lock and has already changed the slot state.
func (t *Table) sched(s *Slot) {
	if err := t.checkSched(s); err != nil {
		panic(err)
	}
	intena := s.cpu.intena
	platform.Switch(s.ctx, s.cpu.ctx)
	// resumed, possibly on another CPU
	s.cpu.intena = intena
}

// schedExit gives up the CPU for good.
func (t *Table) schedExit(s *Slot) {
	if err := t.checkSched(s); err != nil {
		panic(err)
	}
	platform.Handoff(s.cpu.ctx)
	runtime.Goexit()
}

func (t *Table) yield(s *Slot) {
	s.lock.acquire(s.cpu)
	s.setState(Runnable)
	t.policy.Yielded(s.sched, t.now())
	t.sched(s)
	s.lock.release(s.cpu)
}

// enter is the first code a new process runs, still holding the slot lock
// taken by the scheduler that dispatched it.
func (t *Table) enter(s *Slot) {
	s.lock.release(s.cpu)
	p := &Proc{t: t, s: s}
	p.Checkpoint()
	s.frame.Entry(p)
	p.Exit(0)
}
