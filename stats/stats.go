package stats

import (
	"sync"
	"time"

	"github.com/viant/kproc/proc"
)

// Delta represents an incremental counter change. Fields are signed so a
// single delta can move a process from one bucket to another.
type Delta struct {
	Forks   int
	Exits   int
	Reaps   int
	Kills   int
	Live    int
	Zombies int
}

// DeltaOf maps a lifecycle event to its counter change.
func DeltaOf(event proc.Event) Delta {
	switch event.Type {
	case proc.EventBoot:
		return Delta{Live: 1}
	case proc.EventFork:
		return Delta{Forks: 1, Live: 1}
	case proc.EventExit:
		return Delta{Exits: 1, Live: -1, Zombies: 1}
	case proc.EventReap:
		return Delta{Reaps: 1, Zombies: -1}
	case proc.EventKill:
		return Delta{Kills: 1}
	}
	return Delta{}
}

// Stats is a point-in-time copy of the lifecycle counters of one boot.
type Stats struct {
	BootID    string    `json:"bootId" yaml:"bootId"`
	Policy    string    `json:"policy" yaml:"policy"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`

	Forks   int `json:"forks" yaml:"forks"`
	Exits   int `json:"exits" yaml:"exits"`
	Reaps   int `json:"reaps" yaml:"reaps"`
	Kills   int `json:"kills" yaml:"kills"`
	Live    int `json:"live" yaml:"live"`
	Zombies int `json:"zombies" yaml:"zombies"`
	// RunTicks and WaitTicks sum the usage of reaped processes.
	RunTicks  uint64 `json:"runTicks" yaml:"runTicks"`
	WaitTicks uint64 `json:"waitTicks" yaml:"waitTicks"`
}

func (s *Stats) add(d Delta) {
	s.Forks += d.Forks
	s.Exits += d.Exits
	s.Reaps += d.Reaps
	s.Kills += d.Kills
	s.Live += d.Live
	s.Zombies += d.Zombies
}

// Tracker aggregates counters. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	stats    Stats
	onChange func(Stats)
}

// New creates a tracker for a boot.
func New(bootID, policy string, startedAt time.Time) *Tracker {
	return &Tracker{stats: Stats{BootID: bootID, Policy: policy, StartedAt: startedAt}}
}

// Update applies d. The OnChange callback, if any, runs with a copy of the
// updated counters outside the critical section.
func (t *Tracker) Update(d Delta) {
	t.apply(func(s *Stats) { s.add(d) })
}

// Observe applies the delta of event and, for reaps, adds its usage.
func (t *Tracker) Observe(event proc.Event) {
	t.apply(func(s *Stats) {
		s.add(DeltaOf(event))
		if event.Type == proc.EventReap {
			s.RunTicks += event.RunTicks
			s.WaitTicks += event.WaitTicks
		}
	})
}

func (t *Tracker) apply(fn func(s *Stats)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	fn(&t.stats)
	snapshot := t.stats
	cb := t.onChange
	t.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (t *Tracker) Snapshot() Stats {
	if t == nil {
		return Stats{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// OnChange registers a callback invoked after every update. Passing nil
// disables it; only one callback is active.
func (t *Tracker) OnChange(cb func(Stats)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}
