package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/kproc/platform"
)

// fifo runs the lowest runnable index and never preempts.
type fifo struct{}

func (fifo) Name() string                  { return "fifo" }
func (fifo) Admit(now uint64) SchedState   { return nil }
func (fifo) Dispatched(SchedState, uint64) {}
func (fifo) Yielded(SchedState, uint64)    {}
func (fifo) Slept(SchedState, uint64)      {}
func (fifo) Woken(SchedState, uint64)      {}
func (fifo) Tick(SchedState, uint64) bool  { return false }
func (fifo) Describe(SchedState, Usage) string {
	return ""
}
func (fifo) Select(q Queue, now uint64) (int, bool) {
	return q.Next(0, func(SchedState) bool { return true })
}

// newBootedTable returns a table without CPUs whose init slot is allocated.
func newBootedTable(t *testing.T) (*Table, *Slot) {
	pages := platform.NewPages(16)
	table, err := New(Config{Slots: 4, OpenFiles: 4}, fifo{}, Platform{
		Memory: platform.NewMemory(pages),
		Pages:  pages,
		Files:  platform.NewFileTable(),
		FS:     platform.NewFS(),
		Clock:  platform.NewClock(),
	})
	require.NoError(t, err)
	require.NoError(t, table.UserInit(func(p *Proc) {}))
	return table, table.initProc.Load()
}

func TestState_String(t *testing.T) {
	testCases := []struct {
		state  State
		expect string
	}{
		{state: Unused, expect: "unused"},
		{state: Used, expect: "used"},
		{state: Sleeping, expect: "sleep"},
		{state: Runnable, expect: "runble"},
		{state: Running, expect: "run"},
		{state: Zombie, expect: "zombie"},
		{state: State(42), expect: "???"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.expect, func(t *testing.T) {
			assert.Equal(t, testCase.expect, testCase.state.String())
		})
	}
}

func TestLock_InterruptNesting(t *testing.T) {
	intr := &platform.Interrupts{}
	intr.Enable()
	c := &CPU{intr: intr}
	a, b := NewLock("a"), NewLock("b")

	a.acquire(c)
	assert.False(t, intr.Enabled())
	assert.True(t, a.holding(c))
	b.acquire(c)
	assert.Equal(t, 2, c.noff)
	b.release(c)
	assert.False(t, intr.Enabled())
	a.release(c)
	assert.True(t, intr.Enabled())
	assert.Equal(t, 0, c.noff)

	assert.Panics(t, func() { a.release(c) })
	a.acquire(c)
	assert.Panics(t, func() { a.acquire(c) })
}

func TestTable_CheckSched(t *testing.T) {
	newSlot := func() (*Slot, *CPU) {
		c := &CPU{intr: &platform.Interrupts{}}
		s := &Slot{cpu: c}
		s.lock.name = "proc"
		return s, c
	}
	testCases := []struct {
		name   string
		setup  func() *Slot
		expect string
	}{
		{
			name: "ready to switch",
			setup: func() *Slot {
				s, c := newSlot()
				s.lock.acquire(c)
				s.state = Runnable
				return s
			},
		},
		{
			name: "slot lock not held",
			setup: func() *Slot {
				s, _ := newSlot()
				s.state = Runnable
				return s
			},
			expect: "sched p->lock",
		},
		{
			name: "extra lock held",
			setup: func() *Slot {
				s, c := newSlot()
				NewLock("other").acquire(c)
				s.lock.acquire(c)
				s.state = Sleeping
				return s
			},
			expect: "sched locks",
		},
		{
			name: "still running",
			setup: func() *Slot {
				s, c := newSlot()
				s.lock.acquire(c)
				s.state = Running
				return s
			},
			expect: "sched running",
		},
		{
			name: "interrupts enabled",
			setup: func() *Slot {
				s, c := newSlot()
				s.lock.acquire(c)
				s.state = Runnable
				c.intr.Enable()
				return s
			},
			expect: "sched interruptible",
		},
	}
	table := &Table{}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := table.checkSched(testCase.setup())
			if testCase.expect == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, testCase.expect)
		})
	}
}

func TestWaitTicks(t *testing.T) {
	assert.EqualValues(t, 5, waitTicks(10, 20, 5))
	assert.EqualValues(t, 0, waitTicks(10, 12, 5))
}

func TestTable_InitExit(t *testing.T) {
	table, init := newBootedTable(t)
	assert.PanicsWithValue(t, "init exiting", func() { table.exit(init, 0) })
}

func TestTable_WakeClearsResched(t *testing.T) {
	testCases := []struct {
		name string
		wake func(table *Table, s *Slot, ch any)
	}{
		{
			name: "wakeup",
			wake: func(table *Table, s *Slot, ch any) { table.Wakeup(ch) },
		},
		{
			name: "kill",
			wake: func(table *Table, s *Slot, ch any) { assert.NoError(t, table.Kill(s.peekPID())) },
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			table, s := newBootedTable(t)
			ch := new(int)
			s.lock.acquire(nil)
			s.wchan = ch
			s.setState(Sleeping)
			s.lock.release(nil)
			s.needResched.Store(true)

			testCase.wake(table, s, ch)
			_, state := s.peek()
			assert.Equal(t, Runnable, state)
			assert.False(t, s.needResched.Load())
		})
	}
}

func TestTable_KillSelf(t *testing.T) {
	table, s := newBootedTable(t)
	c := &CPU{intr: &platform.Interrupts{}}
	s.lock.acquire(c)
	s.setState(Running)
	s.lock.release(c)

	// The caller's own lock is held to show the scan never takes it.
	s.lock.acquire(c)
	assert.NotPanics(t, func() { assert.NoError(t, table.kill(c, s, s.peekPID())) })
	s.lock.release(c)
	assert.True(t, s.killed.Load())
	assert.ErrorIs(t, table.kill(c, s, 42), ErrNotFound)
}
