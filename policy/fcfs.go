package policy

import "github.com/viant/kproc/proc"

// FCFSState records when a process was created.
type FCFSState struct {
	EnqueueTick uint64
}

// FCFS runs the oldest Runnable process until it blocks or exits.
type FCFS struct{}

// NewFCFS creates a first-come-first-served policy.
func NewFCFS() *FCFS {
	return &FCFS{}
}

func (f *FCFS) Name() string { return FCFSName }

func (f *FCFS) Admit(now uint64) proc.SchedState {
	return &FCFSState{EnqueueTick: now}
}

func (f *FCFS) Select(q proc.Queue, now uint64) (int, bool) {
	return q.Best(nil, func(a, b proc.SchedState) bool {
		return a.(*FCFSState).EnqueueTick < b.(*FCFSState).EnqueueTick
	})
}

func (f *FCFS) Dispatched(st proc.SchedState, now uint64) {}

func (f *FCFS) Yielded(st proc.SchedState, now uint64) {}

func (f *FCFS) Slept(st proc.SchedState, now uint64) {}

func (f *FCFS) Woken(st proc.SchedState, now uint64) {}

func (f *FCFS) Tick(st proc.SchedState, now uint64) bool { return false }

func (f *FCFS) Describe(st proc.SchedState, u proc.Usage) string { return "" }

var _ proc.Policy = (*FCFS)(nil)
