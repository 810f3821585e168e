package proc

// Tick is the clock interrupt handler. It charges the tick to every Running
// slot, lets the policy request preemption, then wakes tick sleepers.
func (t *Table) Tick() {
	now := t.now()
	for i := range t.slots {
		s := &t.slots[i]
		s.lock.acquire(nil)
		if s.state == Running {
			s.rtime++
			if t.policy.Tick(s.sched, now) {
				s.needResched.Store(true)
			}
		}
		s.lock.release(nil)
	}

	t.tickLock.acquire(nil)
	t.wakeup(nil, &t.tickLock, nil)
	t.tickLock.release(nil)

	t.tickMu.Lock()
	close(t.ticked)
	t.ticked = make(chan struct{})
	t.tickMu.Unlock()
}

// nextTick returns a channel closed when the current Tick completes.
func (t *Table) nextTick() <-chan struct{} {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()
	return t.ticked
}
