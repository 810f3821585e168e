package proc

// EventType names a lifecycle transition.
type EventType string

const (
	EventBoot EventType = "boot"
	EventFork EventType = "fork"
	EventExit EventType = "exit"
	EventReap EventType = "reap"
	EventKill EventType = "kill"
)

// Event reports a lifecycle transition. Listeners run on the goroutine that
// caused it, outside any slot lock, and must not block or call into the table.
type Event struct {
	Type      EventType `json:"type"`
	PID       int       `json:"pid"`
	Parent    int       `json:"parent,omitempty"`
	Name      string    `json:"name,omitempty"`
	Status    int       `json:"status"`
	Tick      uint64    `json:"tick"`
	RunTicks  uint64    `json:"runTicks,omitempty"`
	WaitTicks uint64    `json:"waitTicks,omitempty"`
}

// Listener receives lifecycle events.
type Listener func(event Event)

func (t *Table) emit(event Event) {
	for _, listener := range t.listeners {
		listener(event)
	}
}
