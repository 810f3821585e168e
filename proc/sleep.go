package proc

// sleep atomically releases lk and blocks s on ch; lk is held again on return.
func (t *Table) sleep(s *Slot, ch any, lk *Lock) {
	// Holding s.lock before releasing lk means a wakeup, which must take
	// s.lock, cannot slip in between.
	s.lock.acquire(s.cpu)
	lk.release(s.cpu)

	s.wchan = ch
	s.setState(Sleeping)
	t.policy.Slept(s.sched, t.now())
	t.sched(s)
	s.wchan = nil

	c := s.cpu
	s.lock.release(c)
	lk.acquire(c)
}

// wakeup makes every slot sleeping on ch Runnable. The caller must not hold
// any slot lock; self, when set, is skipped.
func (t *Table) wakeup(c *CPU, ch any, self *Slot) {
	woken := false
	now := t.now()
	for i := range t.slots {
		s := &t.slots[i]
		if s == self {
			continue
		}
		s.lock.acquire(c)
		if s.state == Sleeping && s.wchan == ch {
			s.setState(Runnable)
			s.needResched.Store(false)
			t.policy.Woken(s.sched, now)
			woken = true
		}
		s.lock.release(c)
	}
	if woken {
		t.kick()
	}
}

// Wakeup wakes every process sleeping on ch from outside any process.
func (t *Table) Wakeup(ch any) {
	t.wakeup(nil, ch, nil)
}
