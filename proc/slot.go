package proc

import (
	"sync/atomic"

	"github.com/viant/kproc/platform"
)

// Program is the code a process runs. Returning from it exits with status 0.
type Program func(p *Proc)

// TrapFrame holds the user registers saved on kernel entry.
type TrapFrame struct {
	EPC   uint64
	SP    uint64
	A0    int64
	Entry Program
	page  *platform.Page
}

// Slot is a process control block.
type Slot struct {
	lock  Lock
	index int

	// guarded by lock
	state  State
	pid    int
	wchan  any
	xstate int
	name   string
	size   uint64
	ctime  uint64
	etime  uint64
	rtime  uint64
	sched  SchedState

	// guarded by the table's ordering lock
	parent int

	killed      atomic.Bool
	needResched atomic.Bool
	view        atomic.Int64

	// private to the process
	as    *platform.AddressSpace
	frame *TrapFrame
	files []*platform.File
	cwd   *platform.Inode
	trace uint32
	ctx   *platform.Context
	cpu   *CPU
}

func (s *Slot) setState(state State) {
	s.state = state
	s.view.Store(int64(s.pid)<<8 | int64(state))
}

func (s *Slot) peek() (int, State) {
	v := s.view.Load()
	return int(v >> 8), State(v & 0xff)
}

func (s *Slot) usage(now uint64) Usage {
	end := s.etime
	if s.state != Zombie {
		end = now
	}
	return Usage{Run: s.rtime, Wait: waitTicks(s.ctime, end, s.rtime)}
}

func waitTicks(created, ended, run uint64) uint64 {
	if ended < created+run {
		return 0
	}
	return ended - created - run
}

// Info is a consistent copy of a live slot.
type Info struct {
	PID         int    `json:"pid" yaml:"pid"`
	Parent      int    `json:"parent" yaml:"parent"`
	Name        string `json:"name" yaml:"name"`
	State       State  `json:"state" yaml:"state"`
	Size        uint64 `json:"size" yaml:"size"`
	Killed      bool   `json:"killed" yaml:"killed"`
	CreatedTick uint64 `json:"createdTick" yaml:"createdTick"`
	ExitTick    uint64 `json:"exitTick" yaml:"exitTick"`
	RunTicks    uint64 `json:"runTicks" yaml:"runTicks"`
	WaitTicks   uint64 `json:"waitTicks" yaml:"waitTicks"`
	Sched       string `json:"sched" yaml:"sched"`
}

// Reaped describes a child collected by Wait.
type Reaped struct {
	PID       int
	Status    int
	RunTicks  uint64
	WaitTicks uint64
}
