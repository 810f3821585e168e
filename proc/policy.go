package proc

// SchedState is the per-slot state owned by a Policy. Each policy stores its
// own concrete type and only ever sees values it created in Admit.
type SchedState any

// Usage is the CPU accounting of a slot passed to Policy.Describe.
type Usage struct {
	Run  uint64
	Wait uint64
}

// Queue is the view of Runnable slots offered to a Policy while it selects.
// Callbacks run with the inspected slot locked and must not call back into
// the table.
type Queue interface {
	// Len returns the table capacity; slot indexes are in [0, Len).
	Len() int
	// Age calls fn for every Runnable slot.
	Age(fn func(st SchedState))
	// Best returns the first eligible Runnable slot that no later slot is
	// strictly better than.
	Best(eligible func(st SchedState) bool, better func(a, b SchedState) bool) (int, bool)
	// Next returns the first eligible Runnable slot at or after from,
	// wrapping around the table once.
	Next(from int, eligible func(st SchedState) bool) (int, bool)
}

// Policy decides which Runnable slot a CPU runs next and keeps the
// bookkeeping that decision needs. Hooks other than Select are called with
// the slot locked.
type Policy interface {
	Name() string
	// Admit returns the initial state of a newly allocated slot.
	Admit(now uint64) SchedState
	// Select returns the index of the slot to run, if any.
	Select(q Queue, now uint64) (int, bool)
	// Dispatched runs right before the slot is switched in.
	Dispatched(st SchedState, now uint64)
	// Yielded runs when a running slot gives up the CPU but stays Runnable.
	Yielded(st SchedState, now uint64)
	// Slept runs when a running slot blocks.
	Slept(st SchedState, now uint64)
	// Woken runs when a sleeping slot becomes Runnable.
	Woken(st SchedState, now uint64)
	// Tick runs once per tick for every Running slot; true requests a yield
	// at the slot's next checkpoint.
	Tick(st SchedState, now uint64) bool
	// Describe renders policy columns for the process dump.
	Describe(st SchedState, u Usage) string
}

// PrioritySetter is implemented by policies with a settable static priority.
type PrioritySetter interface {
	// CheckPriority validates a priority before any slot is looked up.
	CheckPriority(priority int) error
	// SetPriority replaces the static priority and returns the previous one.
	SetPriority(st SchedState, priority int) (int, error)
}

// ForkYielder is implemented by policies that make a parent give up the CPU
// after creating a child.
type ForkYielder interface {
	ForkYield(parent SchedState) bool
}
