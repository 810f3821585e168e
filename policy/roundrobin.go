package policy

import (
	"sync"

	"github.com/viant/kproc/proc"
)

// RoundRobin runs Runnable processes in table order, continuing each scan
// after the slot it last picked, and preempts on every tick.
type RoundRobin struct {
	mu     sync.Mutex
	cursor int
}

// NewRoundRobin creates a round-robin policy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) Name() string { return RoundRobinName }

func (r *RoundRobin) Admit(now uint64) proc.SchedState { return nil }

func (r *RoundRobin) Select(q proc.Queue, now uint64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index, ok := q.Next(r.cursor, nil)
	if ok {
		r.cursor = (index + 1) % q.Len()
	}
	return index, ok
}

func (r *RoundRobin) Dispatched(st proc.SchedState, now uint64) {}

func (r *RoundRobin) Yielded(st proc.SchedState, now uint64) {}

func (r *RoundRobin) Slept(st proc.SchedState, now uint64) {}

func (r *RoundRobin) Woken(st proc.SchedState, now uint64) {}

func (r *RoundRobin) Tick(st proc.SchedState, now uint64) bool { return true }

func (r *RoundRobin) Describe(st proc.SchedState, u proc.Usage) string { return "" }

var _ proc.Policy = (*RoundRobin)(nil)
