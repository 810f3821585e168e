package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/kproc/proc"
)

// queue is an in-memory proc.Queue; nil entries are slots that are not Runnable.
type queue []proc.SchedState

func (q queue) Len() int { return len(q) }

func (q queue) Age(fn func(st proc.SchedState)) {
	for _, st := range q {
		if st != nil {
			fn(st)
		}
	}
}

func (q queue) Best(eligible func(st proc.SchedState) bool, better func(a, b proc.SchedState) bool) (int, bool) {
	best := -1
	for i, st := range q {
		if st == nil || (eligible != nil && !eligible(st)) {
			continue
		}
		if best == -1 || better(st, q[best]) {
			best = i
		}
	}
	return best, best != -1
}

func (q queue) Next(from int, eligible func(st proc.SchedState) bool) (int, bool) {
	for k := 0; k < len(q); k++ {
		i := (from + k) % len(q)
		if q[i] != nil && (eligible == nil || eligible(q[i])) {
			return i, true
		}
	}
	return -1, false
}

type runnable struct{}

func TestNew(t *testing.T) {
	testCases := []struct {
		name      string
		policy    string
		expect    string
		expectErr bool
	}{
		{name: "empty defaults to round robin", policy: "", expect: RoundRobinName},
		{name: "alias", policy: "RoundRobin", expect: RoundRobinName},
		{name: "fcfs", policy: "fcfs", expect: FCFSName},
		{name: "pbs", policy: "pbs", expect: PBSName},
		{name: "mlfq", policy: "mlfq", expect: MLFQName},
		{name: "unknown", policy: "lottery", expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Name = testCase.policy
			actual, err := New(config)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expect, actual.Name())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "pbs priority", mutate: func(c *Config) { c.Name = PBSName; c.PBS.DefaultPriority = 101 }},
		{name: "mlfq aging", mutate: func(c *Config) { c.Name = MLFQName; c.MLFQ.Aging = []uint64{1} }},
		{name: "mlfq quanta", mutate: func(c *Config) { c.Name = MLFQName; c.MLFQ.Quanta = []uint64{1, 0, 4, 8} }},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := DefaultConfig()
			testCase.mutate(&config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestRoundRobin_Select(t *testing.T) {
	rr := NewRoundRobin()
	q := queue{runnable{}, nil, runnable{}, runnable{}}
	var picked []int
	for i := 0; i < 5; i++ {
		index, ok := rr.Select(q, 0)
		require.True(t, ok)
		picked = append(picked, index)
	}
	assert.Equal(t, []int{0, 2, 3, 0, 2}, picked)

	_, ok := rr.Select(queue{nil, nil}, 0)
	assert.False(t, ok)
	assert.True(t, rr.Tick(nil, 1))
}

func TestFCFS_Select(t *testing.T) {
	testCases := []struct {
		name   string
		ticks  []uint64
		expect int
	}{
		{name: "earliest wins", ticks: []uint64{5, 3, 9}, expect: 1},
		{name: "tie goes to table order", ticks: []uint64{4, 2, 2}, expect: 1},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			fcfs := NewFCFS()
			var q queue
			for _, tick := range testCase.ticks {
				q = append(q, fcfs.Admit(tick))
			}
			index, ok := fcfs.Select(q, 10)
			require.True(t, ok)
			assert.Equal(t, testCase.expect, index)
			assert.False(t, fcfs.Tick(q[index], 11))
		})
	}
}

func TestNiceness(t *testing.T) {
	testCases := []struct {
		name   string
		run    uint64
		sleep  uint64
		fresh  bool
		expect int
	}{
		{name: "fresh", run: 30, sleep: 70, fresh: true, expect: 5},
		{name: "no interval measured", expect: 5},
		{name: "mostly sleeping", run: 20, sleep: 80, expect: 8},
		{name: "cpu bound", run: 50, expect: 0},
		{name: "io bound", sleep: 50, expect: 10},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Niceness(testCase.run, testCase.sleep, testCase.fresh))
		})
	}
}

func TestDynamicPriority(t *testing.T) {
	testCases := []struct {
		name     string
		static   int
		niceness int
		expect   int
	}{
		{name: "default fresh", static: 60, niceness: 5, expect: 60},
		{name: "sleeper", static: 60, niceness: 8, expect: 57},
		{name: "clamp low", static: 0, niceness: 10, expect: 0},
		{name: "clamp high", static: 100, niceness: 0, expect: 100},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, DynamicPriority(testCase.static, testCase.niceness))
		})
	}
}

func TestPBS_Select(t *testing.T) {
	testCases := []struct {
		name   string
		states []*PBSState
		expect int
	}{
		{
			name: "lower dynamic priority",
			states: []*PBSState{
				{StaticPriority: 60, Fresh: true},
				{StaticPriority: 40, Fresh: true},
			},
			expect: 1,
		},
		{
			name: "fewer dispatches on equal priority",
			states: []*PBSState{
				{StaticPriority: 60, Fresh: true, TimesScheduled: 3},
				{StaticPriority: 60, Fresh: true, TimesScheduled: 1},
			},
			expect: 1,
		},
		{
			name: "earlier creation on equal dispatches",
			states: []*PBSState{
				{StaticPriority: 60, Fresh: true, EnqueueTick: 7},
				{StaticPriority: 60, Fresh: true, EnqueueTick: 2},
			},
			expect: 1,
		},
		{
			name: "sleeper beats cpu hog",
			states: []*PBSState{
				{StaticPriority: 60, RunTicks: 10},
				{StaticPriority: 60, RunTicks: 2, SleepTicks: 8},
			},
			expect: 1,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var q queue
			for _, st := range testCase.states {
				q = append(q, st)
			}
			index, ok := NewPBS(DefaultPriority).Select(q, 0)
			require.True(t, ok)
			assert.Equal(t, testCase.expect, index)
		})
	}
}

func TestPBS_Bookkeeping(t *testing.T) {
	pbs := NewPBS(DefaultPriority)
	st := pbs.Admit(1).(*PBSState)
	assert.Equal(t, DefaultPriority, st.DynamicPriority())

	pbs.Dispatched(st, 10)
	assert.Equal(t, 1, st.TimesScheduled)
	pbs.Slept(st, 12)
	pbs.Woken(st, 20)
	assert.EqualValues(t, 2, st.RunTicks)
	assert.EqualValues(t, 8, st.SleepTicks)
	assert.Equal(t, 57, st.DynamicPriority())

	pbs.Dispatched(st, 21)
	assert.EqualValues(t, 0, st.SleepTicks)
	pbs.Yielded(st, 25)
	assert.Equal(t, 65, st.DynamicPriority())
}

func TestPBS_SetPriority(t *testing.T) {
	pbs := NewPBS(DefaultPriority)
	st := pbs.Admit(0).(*PBSState)
	pbs.Dispatched(st, 1)
	pbs.Yielded(st, 5)

	old, err := pbs.SetPriority(st, 20)
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority, old)
	assert.True(t, st.Fresh)
	assert.Equal(t, 20, st.DynamicPriority())

	_, err = pbs.SetPriority(st, 101)
	assert.True(t, errors.Is(err, proc.ErrInvalidPriority))
	assert.True(t, errors.Is(pbs.CheckPriority(-1), proc.ErrInvalidPriority))
}

func TestMLFQ_Aging(t *testing.T) {
	testCases := []struct {
		name        string
		state       MLFQState
		now         uint64
		expectLevel int
	}{
		{name: "top level never ages", state: MLFQState{Level: 0, EnterTick: 0}, now: 500, expectLevel: 0},
		{name: "within threshold", state: MLFQState{Level: 1, EnterTick: 10}, now: 20, expectLevel: 1},
		{name: "past threshold", state: MLFQState{Level: 1, EnterTick: 10}, now: 21, expectLevel: 0},
		{name: "one level at a time", state: MLFQState{Level: 3, EnterTick: 0}, now: 101, expectLevel: 2},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			mlfq := NewMLFQ(nil, nil)
			st := testCase.state
			mlfq.Select(queue{&st}, testCase.now)
			assert.Equal(t, testCase.expectLevel, st.Level)
			if testCase.expectLevel != testCase.state.Level {
				assert.Equal(t, testCase.now, st.EnterTick)
			}
		})
	}
}

func TestMLFQ_Select(t *testing.T) {
	t.Run("most urgent level then longest wait", func(t *testing.T) {
		q := queue{
			&MLFQState{Level: 2, EnterTick: 1},
			&MLFQState{Level: 1, EnterTick: 9},
			&MLFQState{Level: 1, EnterTick: 4},
		}
		index, ok := NewMLFQ(nil, nil).Select(q, 10)
		require.True(t, ok)
		assert.Equal(t, 2, index)
	})
	t.Run("bottom level round robin", func(t *testing.T) {
		mlfq := NewMLFQ(nil, nil)
		q := queue{&MLFQState{Level: 3, EnterTick: 5}, nil, &MLFQState{Level: 3, EnterTick: 5}}
		var picked []int
		for i := 0; i < 3; i++ {
			index, ok := mlfq.Select(q, 6)
			require.True(t, ok)
			picked = append(picked, index)
		}
		assert.Equal(t, []int{0, 2, 0}, picked)
	})
}

func TestMLFQ_Quantum(t *testing.T) {
	mlfq := NewMLFQ(nil, nil)
	st := mlfq.Admit(0).(*MLFQState)
	mlfq.Dispatched(st, 0)
	assert.True(t, mlfq.Tick(st, 1))
	assert.Equal(t, 1, st.Level)

	assert.False(t, mlfq.Tick(st, 2))
	assert.True(t, mlfq.Tick(st, 3))
	assert.Equal(t, 2, st.Level)

	st.Level = Levels - 1
	for i := uint64(0); i < 7; i++ {
		assert.False(t, mlfq.Tick(st, 4+i))
	}
	assert.True(t, mlfq.Tick(st, 11))
	assert.Equal(t, Levels-1, st.Level)

	assert.True(t, mlfq.ForkYield(st))
	assert.EqualValues(t, 0, st.TicksAtLevel)
	assert.False(t, mlfq.ForkYield(&MLFQState{}))
}
