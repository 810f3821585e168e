package proc

import (
	"sync"
	"sync/atomic"

	"github.com/viant/kproc/platform"
)

// Lock is a mutual exclusion lock that tracks the CPU holding it and
// disables that CPU's interrupts while held. Unlike sync.Mutex ownership it
// may be released by a different goroutine running on the same CPU, which
// is how a slot lock is passed between a process and its scheduler.
type Lock struct {
	name  string
	mu    sync.Mutex
	owner atomic.Pointer[CPU]
}

// NewLock creates a named lock.
func NewLock(name string) *Lock {
	return &Lock{name: name}
}

// Lock acquires l outside of any CPU, as interrupt handlers and operators do.
func (l *Lock) Lock() { l.acquire(nil) }

// Unlock releases a lock taken with Lock.
func (l *Lock) Unlock() { l.release(nil) }

func (l *Lock) acquire(c *CPU) {
	if c != nil {
		c.pushOff()
		if l.holding(c) {
			panic("acquire " + l.name)
		}
	}
	l.mu.Lock()
	l.owner.Store(c)
}

func (l *Lock) release(c *CPU) {
	if c != nil && !l.holding(c) {
		panic("release " + l.name)
	}
	l.owner.Store(nil)
	l.mu.Unlock()
	if c != nil {
		c.popOff()
	}
}

func (l *Lock) holding(c *CPU) bool {
	return c != nil && l.owner.Load() == c
}

// Interrupts is a CPU's interrupt enable flag.
type Interrupts interface {
	Enable()
	Disable()
	Enabled() bool
}

// CPU is a processing unit running a scheduler loop.
type CPU struct {
	id     int
	intr   Interrupts
	ctx    *platform.Context
	kick   chan struct{}
	proc   *Slot
	noff   int
	intena bool
}

// ID returns the CPU number.
func (c *CPU) ID() int { return c.id }

func (c *CPU) pushOff() {
	old := c.intr.Enabled()
	c.intr.Disable()
	if c.noff == 0 {
		c.intena = old
	}
	c.noff++
}

func (c *CPU) popOff() {
	if c.intr.Enabled() {
		panic("pop_off - interruptible")
	}
	if c.noff < 1 {
		panic("pop_off")
	}
	c.noff--
	if c.noff == 0 && c.intena {
		c.intr.Enable()
	}
}
