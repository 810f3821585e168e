package policy

import (
	"fmt"

	"github.com/viant/kproc/proc"
)

const (
	MinPriority     = 0
	MaxPriority     = 100
	DefaultPriority = 60
	// freshNiceness applies until a process has both run and slept.
	freshNiceness = 5
)

// PBSState is the per-process state of the priority based scheduler.
// RunTicks and SleepTicks are the lengths of the last run and sleep intervals.
type PBSState struct {
	StaticPriority int
	TimesScheduled int
	EnqueueTick    uint64
	Fresh          bool
	RunStart       uint64
	RunTicks       uint64
	SleepStart     uint64
	SleepTicks     uint64
}

// Niceness returns the niceness of the last run and sleep intervals.
func (s *PBSState) Niceness() int {
	return Niceness(s.RunTicks, s.SleepTicks, s.Fresh)
}

// DynamicPriority returns the priority the scheduler orders by.
func (s *PBSState) DynamicPriority() int {
	return DynamicPriority(s.StaticPriority, s.Niceness())
}

// Niceness maps the share of time spent sleeping to 0..10. Without any
// measured interval it is 5.
func Niceness(run, sleep uint64, fresh bool) int {
	total := run + sleep
	if fresh || total == 0 {
		return freshNiceness
	}
	return int(sleep * 10 / total)
}

// DynamicPriority is static - niceness + 5 clamped to 0..100; lower runs first.
func DynamicPriority(static, niceness int) int {
	return max(MinPriority, min(static-niceness+freshNiceness, MaxPriority))
}

// PBS runs the Runnable process with the lowest dynamic priority, breaking
// ties by fewer dispatches and then by creation time. It never preempts.
type PBS struct {
	defaultPriority int
}

// NewPBS creates a priority based policy giving new processes defaultPriority.
func NewPBS(defaultPriority int) *PBS {
	return &PBS{defaultPriority: defaultPriority}
}

func (p *PBS) Name() string { return PBSName }

func (p *PBS) Admit(now uint64) proc.SchedState {
	return &PBSState{StaticPriority: p.defaultPriority, EnqueueTick: now, Fresh: true}
}

func (p *PBS) Select(q proc.Queue, now uint64) (int, bool) {
	return q.Best(nil, func(a, b proc.SchedState) bool {
		return pbsBefore(a.(*PBSState), b.(*PBSState))
	})
}

func pbsBefore(a, b *PBSState) bool {
	if da, db := a.DynamicPriority(), b.DynamicPriority(); da != db {
		return da < db
	}
	if a.TimesScheduled != b.TimesScheduled {
		return a.TimesScheduled < b.TimesScheduled
	}
	return a.EnqueueTick < b.EnqueueTick
}

func (p *PBS) Dispatched(st proc.SchedState, now uint64) {
	s := st.(*PBSState)
	s.TimesScheduled++
	s.Fresh = false
	s.RunStart = now
	s.RunTicks = 0
	s.SleepTicks = 0
}

func (p *PBS) Yielded(st proc.SchedState, now uint64) {
	s := st.(*PBSState)
	s.RunTicks = now - s.RunStart
}

func (p *PBS) Slept(st proc.SchedState, now uint64) {
	s := st.(*PBSState)
	s.RunTicks = now - s.RunStart
	s.SleepStart = now
}

func (p *PBS) Woken(st proc.SchedState, now uint64) {
	s := st.(*PBSState)
	s.SleepTicks = now - s.SleepStart
}

func (p *PBS) Tick(st proc.SchedState, now uint64) bool { return false }

func (p *PBS) Describe(st proc.SchedState, u proc.Usage) string {
	s := st.(*PBSState)
	return fmt.Sprintf("prio=%d rtime=%d wtime=%d nrun=%d", s.DynamicPriority(), u.Run, u.Wait, s.TimesScheduled)
}

func (p *PBS) CheckPriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return fmt.Errorf("%v: %w", priority, proc.ErrInvalidPriority)
	}
	return nil
}

// SetPriority replaces the static priority and forgets the measured
// intervals, so niceness is 5 until the process runs again.
func (p *PBS) SetPriority(st proc.SchedState, priority int) (int, error) {
	if err := p.CheckPriority(priority); err != nil {
		return -1, err
	}
	s := st.(*PBSState)
	old := s.StaticPriority
	s.StaticPriority = priority
	s.Fresh = true
	s.RunTicks = 0
	s.SleepTicks = 0
	return old, nil
}

var (
	_ proc.Policy         = (*PBS)(nil)
	_ proc.PrioritySetter = (*PBS)(nil)
)
