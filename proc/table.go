package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/viant/kproc/platform"
)

// Memory manages user address spaces.
type Memory interface {
	Create() (*platform.AddressSpace, error)
	Load(as *platform.AddressSpace, image []byte) error
	Copy(src, dst *platform.AddressSpace, size uint64) error
	Resize(as *platform.AddressSpace, oldSize, newSize uint64) (uint64, error)
	Destroy(as *platform.AddressSpace, size uint64)
}

// PageAllocator hands out physical pages.
type PageAllocator interface {
	Alloc() (*platform.Page, error)
	Free(page *platform.Page)
}

// FileTable reference counts open files.
type FileTable interface {
	Dup(f *platform.File) *platform.File
	Close(f *platform.File)
}

// FileSystem resolves and reference counts directories.
type FileSystem interface {
	Lookup(path string) (*platform.Inode, error)
	Dup(ip *platform.Inode) *platform.Inode
	Release(ip *platform.Inode)
	BeginOp()
	EndOp()
}

// TickSource reports the current tick.
type TickSource interface {
	Now() uint64
}

// Platform groups the collaborators a table runs on.
type Platform struct {
	Memory Memory
	Pages  PageAllocator
	Files  FileTable
	FS     FileSystem
	Clock  TickSource
}

func (p *Platform) validate() error {
	if p.Memory == nil || p.Pages == nil || p.Files == nil || p.FS == nil || p.Clock == nil {
		return errors.New("incomplete platform")
	}
	return nil
}

// initcode execs /init; it is the first user image.
var initcode = []byte{
	0x17, 0x05, 0x00, 0x00, 0x13, 0x05, 0x45, 0x02,
	0x97, 0x05, 0x00, 0x00, 0x93, 0x85, 0x35, 0x02,
	0x93, 0x08, 0x70, 0x00, 0x73, 0x00, 0x00, 0x00,
	0x93, 0x08, 0x20, 0x00, 0x73, 0x00, 0x00, 0x00,
	0xef, 0xf0, 0x9f, 0xff, 0x2f, 0x69, 0x6e, 0x69,
	0x74, 0x00, 0x00, 0x24, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// Config sizes a table.
type Config struct {
	Slots     int
	OpenFiles int
	Image     []byte
}

// Option customises a Table.
type Option func(t *Table)

// WithListener registers a lifecycle event listener.
func WithListener(listener Listener) Option {
	return func(t *Table) {
		t.listeners = append(t.listeners, listener)
	}
}

// Table is the fixed-size process table together with the scheduler state
// shared by all CPUs.
type Table struct {
	config    Config
	slots     []Slot
	policy    Policy
	platform  Platform
	listeners []Listener

	waitLock Lock
	tickLock Lock
	pidLock  sync.Mutex
	nextPID  int
	initProc atomic.Pointer[Slot]

	cpuMu sync.Mutex
	cpus  []*CPU

	tickMu sync.Mutex
	ticked chan struct{}

	halt     chan struct{}
	haltOnce sync.Once
}

// New creates a table with config.Slots unused slots.
func New(config Config, policy Policy, plat Platform, options ...Option) (*Table, error) {
	if config.Slots <= 0 {
		return nil, fmt.Errorf("invalid slot count: %v", config.Slots)
	}
	if config.OpenFiles <= 0 {
		return nil, fmt.Errorf("invalid open file limit: %v", config.OpenFiles)
	}
	if policy == nil {
		return nil, errors.New("policy was nil")
	}
	if err := plat.validate(); err != nil {
		return nil, err
	}
	if len(config.Image) == 0 {
		config.Image = initcode
	}
	ret := &Table{
		config:   config,
		slots:    make([]Slot, config.Slots),
		policy:   policy,
		platform: plat,
		waitLock: Lock{name: "wait_lock"},
		tickLock: Lock{name: "time"},
		nextPID:  1,
		ticked:   make(chan struct{}),
		halt:     make(chan struct{}),
	}
	for i := range ret.slots {
		s := &ret.slots[i]
		s.lock.name = "proc"
		s.index = i
		s.parent = -1
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret, nil
}

// Policy returns the scheduling policy.
func (t *Table) Policy() Policy { return t.policy }

// AddCPU registers a processing unit; run its scheduler with Run.
func (t *Table) AddCPU(intr Interrupts) *CPU {
	t.cpuMu.Lock()
	defer t.cpuMu.Unlock()
	c := &CPU{id: len(t.cpus), intr: intr, kick: make(chan struct{}, 1)}
	c.ctx = platform.NewContext(t.halt, nil)
	t.cpus = append(t.cpus, c)
	return c
}

// Halt stops every scheduler and parked process.
func (t *Table) Halt() {
	t.haltOnce.Do(func() { close(t.halt) })
}

// Done is closed once the table halts.
func (t *Table) Done() <-chan struct{} { return t.halt }

func (t *Table) kick() {
	t.cpuMu.Lock()
	defer t.cpuMu.Unlock()
	for _, c := range t.cpus {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
}

func (t *Table) now() uint64 { return t.platform.Clock.Now() }

func (t *Table) allocPID() int {
	t.pidLock.Lock()
	defer t.pidLock.Unlock()
	pid := t.nextPID
	t.nextPID++
	return pid
}

// allocate finds an unused slot and gives it a pid, an entry frame and an
// empty address space. It returns with the slot locked.
func (t *Table) allocate(c *CPU) (*Slot, error) {
	var s *Slot
	for i := range t.slots {
		candidate := &t.slots[i]
		candidate.lock.acquire(c)
		if candidate.state == Unused {
			s = candidate
			break
		}
		candidate.lock.release(c)
	}
	if s == nil {
		return nil, ErrNoSlot
	}
	s.pid = t.allocPID()
	s.setState(Used)
	now := t.now()
	s.ctime = now
	s.sched = t.policy.Admit(now)
	s.files = make([]*platform.File, t.config.OpenFiles)

	page, err := t.platform.Pages.Alloc()
	if err != nil {
		t.free(s)
		s.lock.release(c)
		return nil, fmt.Errorf("failed to allocate entry frame: %w", err)
	}
	s.frame = &TrapFrame{page: page}
	if s.as, err = t.platform.Memory.Create(); err != nil {
		t.free(s)
		s.lock.release(c)
		return nil, err
	}
	s.ctx = platform.NewContext(t.halt, func() { t.enter(s) })
	return s, nil
}

// free releases everything a slot owns. The slot lock must be held and the
// slot must not be linked to a parent.
func (t *Table) free(s *Slot) {
	if s.frame != nil {
		t.platform.Pages.Free(s.frame.page)
		s.frame = nil
	}
	if s.as != nil {
		t.platform.Memory.Destroy(s.as, s.size)
		s.as = nil
	}
	s.size = 0
	s.pid = 0
	s.name = ""
	s.wchan = nil
	s.xstate = 0
	s.ctime, s.etime, s.rtime = 0, 0, 0
	s.sched = nil
	s.files = nil
	s.trace = 0
	s.ctx = nil
	s.cpu = nil
	s.killed.Store(false)
	s.needResched.Store(false)
	s.setState(Unused)
}

// ordered proves the table's ordering lock is held; parent links are only
// reachable through it.
type ordered struct {
	t *Table
}

func (t *Table) lockOrdering(c *CPU) ordered {
	t.waitLock.acquire(c)
	return ordered{t: t}
}

func (o ordered) release(c *CPU) {
	o.t.waitLock.release(c)
}

func (o ordered) parent(s *Slot) *Slot {
	if s.parent < 0 {
		return nil
	}
	return &o.t.slots[s.parent]
}

func (o ordered) setParent(s, parent *Slot) {
	if parent == nil {
		s.parent = -1
		return
	}
	s.parent = parent.index
}

// reparent hands the children of s to init.
func (o ordered) reparent(c *CPU, s *Slot) {
	init := o.t.initProc.Load()
	for i := range o.t.slots {
		child := &o.t.slots[i]
		if child.parent == s.index {
			child.parent = init.index
			o.t.wakeup(c, init, s)
		}
	}
}

// Snapshot returns a copy of every live slot in table order.
func (t *Table) Snapshot() []Info {
	now := t.now()
	order := t.lockOrdering(nil)
	defer order.release(nil)
	var ret []Info
	for i := range t.slots {
		s := &t.slots[i]
		s.lock.acquire(nil)
		if s.state != Unused {
			ret = append(ret, t.info(order, s, now))
		}
		s.lock.release(nil)
	}
	return ret
}

// Lookup returns a copy of the live slot holding pid.
func (t *Table) Lookup(pid int) (Info, bool) {
	for _, info := range t.Snapshot() {
		if info.PID == pid {
			return info, true
		}
	}
	return Info{}, false
}

func (t *Table) info(order ordered, s *Slot, now uint64) Info {
	ret := Info{
		PID:         s.pid,
		Parent:      -1,
		Name:        s.name,
		State:       s.state,
		Size:        s.size,
		Killed:      s.killed.Load(),
		CreatedTick: s.ctime,
		ExitTick:    s.etime,
	}
	if parent := order.parent(s); parent != nil {
		ret.Parent = parent.peekPID()
	}
	u := s.usage(now)
	ret.RunTicks, ret.WaitTicks = u.Run, u.Wait
	if s.sched != nil {
		ret.Sched = t.policy.Describe(s.sched, u)
	}
	return ret
}

func (s *Slot) peekPID() int {
	pid, _ := s.peek()
	return pid
}

// Run runs the scheduler of c until ctx is done or the table halts.
func (t *Table) Run(ctx context.Context, c *CPU) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.halt:
			return
		default:
		}
		// Avoid deadlock by letting devices interrupt while idle.
		c.intr.Enable()
		s, found := t.next(c)
		if s == nil {
			if found {
				continue
			}
			select {
			case <-c.kick:
			case <-ctx.Done():
				return
			case <-t.halt:
				return
			}
			continue
		}
		t.policy.Dispatched(s.sched, t.now())
		s.setState(Running)
		s.cpu = c
		c.proc = s
		platform.Switch(c.ctx, s.ctx)
		c.proc = nil
		s.lock.release(c)
	}
}
