package policy

import (
	"fmt"
	"sync"

	"github.com/viant/kproc/proc"
)

// Levels is the number of MLFQ priority levels; 0 is the most urgent.
const Levels = 4

var (
	defaultAging  = [Levels]uint64{0, 10, 30, 100}
	defaultQuanta = [Levels]uint64{1, 2, 4, 8}
)

// MLFQState is the per-process state of the multi-level feedback queue.
type MLFQState struct {
	Level          int
	EnterTick      uint64
	TicksAtLevel   uint64
	TimesScheduled int
}

// MLFQ runs the process that has waited longest on the most urgent
// non-empty level among 0..2, and round-robins level 3. Processes that use
// up their level's quantum move down; Runnable processes that wait past
// their level's aging threshold move up.
type MLFQ struct {
	aging  []uint64
	quanta []uint64
	mu     sync.Mutex
	cursor int
}

// NewMLFQ creates an MLFQ policy; empty arguments take the defaults.
func NewMLFQ(aging, quanta []uint64) *MLFQ {
	if len(aging) == 0 {
		aging = defaultAging[:]
	}
	if len(quanta) == 0 {
		quanta = defaultQuanta[:]
	}
	return &MLFQ{aging: aging, quanta: quanta}
}

func (m *MLFQ) Name() string { return MLFQName }

func (m *MLFQ) Admit(now uint64) proc.SchedState {
	return &MLFQState{EnterTick: now}
}

func (m *MLFQ) Select(q proc.Queue, now uint64) (int, bool) {
	q.Age(func(st proc.SchedState) {
		m.age(st.(*MLFQState), now)
	})
	for level := 0; level < Levels-1; level++ {
		index, ok := q.Best(atLevel(level), func(a, b proc.SchedState) bool {
			return a.(*MLFQState).EnterTick < b.(*MLFQState).EnterTick
		})
		if ok {
			return index, true
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	index, ok := q.Next(m.cursor, atLevel(Levels-1))
	if ok {
		m.cursor = (index + 1) % q.Len()
	}
	return index, ok
}

func atLevel(level int) func(st proc.SchedState) bool {
	return func(st proc.SchedState) bool {
		return st.(*MLFQState).Level == level
	}
}

// age moves s up one level once it has waited longer than its level allows.
func (m *MLFQ) age(s *MLFQState, now uint64) bool {
	if s.Level == 0 || now < s.EnterTick || now-s.EnterTick <= m.aging[s.Level] {
		return false
	}
	s.Level--
	s.EnterTick = now
	s.TicksAtLevel = 0
	return true
}

func (m *MLFQ) Dispatched(st proc.SchedState, now uint64) {
	s := st.(*MLFQState)
	s.EnterTick = 0
	s.TimesScheduled++
}

func (m *MLFQ) Yielded(st proc.SchedState, now uint64) {
	st.(*MLFQState).EnterTick = now
}

func (m *MLFQ) Slept(st proc.SchedState, now uint64) {}

func (m *MLFQ) Woken(st proc.SchedState, now uint64) {
	s := st.(*MLFQState)
	s.EnterTick = now
	s.TicksAtLevel = 0
}

// Tick charges a tick at the current level; an exhausted quantum demotes
// the process and asks it to yield.
func (m *MLFQ) Tick(st proc.SchedState, now uint64) bool {
	s := st.(*MLFQState)
	s.TicksAtLevel++
	if s.TicksAtLevel < m.quanta[s.Level] {
		return false
	}
	if s.Level < Levels-1 {
		s.Level++
	}
	s.TicksAtLevel = 0
	return true
}

// ForkYield makes a parent below the top level start a fresh quantum and
// let its child compete for the CPU.
func (m *MLFQ) ForkYield(parent proc.SchedState) bool {
	s := parent.(*MLFQState)
	if s.Level == 0 {
		return false
	}
	s.TicksAtLevel = 0
	return true
}

func (m *MLFQ) Describe(st proc.SchedState, u proc.Usage) string {
	s := st.(*MLFQState)
	return fmt.Sprintf("q=%d rtime=%d wtime=%d nrun=%d", s.Level, u.Run, u.Wait, s.TimesScheduled)
}

var (
	_ proc.Policy      = (*MLFQ)(nil)
	_ proc.ForkYielder = (*MLFQ)(nil)
)
