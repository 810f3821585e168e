package proc

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Dump writes a listing of live processes to w for debugging. It takes no
// lock it would have to wait for, so a wedged table can still be inspected;
// a slot whose lock is held is listed from its last published pid and state.
func (t *Table) Dump(w io.Writer) error {
	now := t.now()
	out := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(out, "PID\tSTATE\tNAME\t%v\n", t.policy.Name())
	for i := range t.slots {
		s := &t.slots[i]
		if !s.lock.mu.TryLock() {
			pid, state := s.peek()
			if state != Unused {
				fmt.Fprintf(out, "%d\t%s\t?\t?\n", pid, state)
			}
			continue
		}
		if s.state != Unused {
			describe := ""
			if s.sched != nil {
				describe = t.policy.Describe(s.sched, s.usage(now))
			}
			fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", s.pid, s.state, s.name, describe)
		}
		s.lock.mu.Unlock()
	}
	return out.Flush()
}
