package platform

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Interrupts is a per-CPU interrupt enable flag.
type Interrupts struct {
	enabled atomic.Bool
}

func (i *Interrupts) Enable()       { i.enabled.Store(true) }
func (i *Interrupts) Disable()      { i.enabled.Store(false) }
func (i *Interrupts) Enabled() bool { return i.enabled.Load() }

// Clock is a monotonically increasing tick counter.
type Clock struct {
	mu    sync.Mutex
	ticks uint64
}

// NewClock creates a clock at tick zero.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current tick.
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Advance moves the clock one tick forward and returns the new tick.
func (c *Clock) Advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.ticks
}

// Context is a saved execution context. Each context is backed by a
// goroutine that runs only while the context holds the CPU.
type Context struct {
	resume chan struct{}
	halt   <-chan struct{}
	entry  func()
	once   sync.Once
}

// NewContext creates a context. A non-nil entry is started on a new
// goroutine the first time the context is switched to. When halt is closed
// every parked context exits its goroutine.
func NewContext(halt <-chan struct{}, entry func()) *Context {
	return &Context{resume: make(chan struct{}, 1), halt: halt, entry: entry}
}

// Switch saves the caller in from and resumes to. It returns once
// something switches back to from.
func Switch(from, to *Context) {
	to.wake()
	from.park()
}

// Handoff resumes to without saving the caller, which must not run kernel
// code afterwards.
func Handoff(to *Context) {
	to.wake()
}

func (c *Context) wake() {
	if c.entry != nil {
		c.once.Do(func() { go c.run() })
	}
	c.resume <- struct{}{}
}

func (c *Context) run() {
	c.park()
	c.entry()
}

func (c *Context) park() {
	select {
	case <-c.resume:
	case <-c.halt:
		runtime.Goexit()
	}
}
