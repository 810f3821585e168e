package kproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/kproc/internal/clock"
	"github.com/viant/kproc/internal/idgen"
	"github.com/viant/kproc/platform"
	"github.com/viant/kproc/policy"
	"github.com/viant/kproc/proc"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/acct"
	acctfs "github.com/viant/kproc/service/dao/acct/fs"
	amemory "github.com/viant/kproc/service/dao/acct/memory"
	"github.com/viant/kproc/service/event"
	mmemory "github.com/viant/kproc/service/messaging/memory"
	"github.com/viant/kproc/stats"
	"github.com/viant/kproc/tracing"
)

const serviceName = "kproc"

// ErrInitProtected is returned when an operator tries to kill init.
var ErrInitProtected = errors.New("init cannot be killed")

// Service runs a simulated kernel: a process table on simulated memory and
// files, one scheduler per CPU, a timer, and a background consumer that
// turns lifecycle events into statistics and accounting records.
type Service struct {
	config     *Config
	policy     proc.Policy
	accounting acct.Service
	handlers   []event.Handler[proc.Event]

	bootID string
	clock  *platform.Clock
	pages  *platform.Pages
	files  *platform.FileTable
	fs     *platform.FS
	table  *proc.Table
	stats  *stats.Tracker

	queue     *mmemory.Queue[event.Event[proc.Event]]
	publisher *event.Publisher[proc.Event]
	listener  *event.Listener[proc.Event]

	booted   atomic.Bool
	cancel   context.CancelFunc
	cpus     sync.WaitGroup
	span     *tracing.Span
	shutdown sync.Once
}

// New wires a service; call Boot to start it.
func New(options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	if err := ret.init(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) init() error {
	var err error
	if s.policy == nil {
		if s.policy, err = policy.New(s.config.Policy); err != nil {
			return err
		}
	}
	if s.accounting == nil {
		if URL := s.config.Accounting.URL; URL != "" {
			if s.accounting, err = acctfs.New(context.Background(), URL); err != nil {
				return err
			}
		} else {
			s.accounting = amemory.New()
		}
	}
	s.bootID = idgen.New()
	s.clock = platform.NewClock()
	s.pages = platform.NewPages(s.config.Memory.Pages)
	s.files = platform.NewFileTable()
	s.fs = platform.NewFS()
	s.stats = stats.New(s.bootID, s.policy.Name(), clock.Now())

	queueConfig := mmemory.DefaultConfig()
	queueConfig.QueueBuffer = s.config.Events.Buffer
	s.queue = mmemory.NewQueue[event.Event[proc.Event]](queueConfig)
	s.publisher = event.NewPublisher[proc.Event](s.queue)
	s.listener = event.NewListener[proc.Event](s.publisher, s.handle)

	s.table, err = proc.New(proc.Config{
		Slots:     s.config.Table.Slots,
		OpenFiles: s.config.Table.OpenFiles,
	}, s.policy, proc.Platform{
		Memory: platform.NewMemory(s.pages),
		Pages:  s.pages,
		Files:  s.files,
		FS:     s.fs,
		Clock:  s.clock,
	}, proc.WithListener(s.onEvent))
	return err
}

// onEvent runs on the goroutine that caused the transition, so it only
// counts and enqueues.
func (s *Service) onEvent(e proc.Event) {
	s.stats.Observe(e)
	ev := event.NewEvent(&event.Context{
		BootID:    s.bootID,
		EventType: string(e.Type),
		Service:   serviceName,
		Policy:    s.policy.Name(),
	}, e)
	if err := s.publisher.TryPublish(ev); err != nil {
		log.Printf("kproc: dropped %v event of pid %v: %v", e.Type, e.PID, err)
	}
}

func (s *Service) handle(ctx context.Context, ev *event.Event[proc.Event]) (err error) {
	e := ev.Data
	ctx, span := tracing.StartSpan(ctx, "kproc.event."+string(e.Type), "CONSUMER")
	span.WithAttributes(map[string]string{"bootId": s.bootID, "name": e.Name}).WithInt("pid", e.PID)
	defer func() { tracing.EndSpan(span, err) }()
	if s.config.Events.Log {
		log.Printf("kproc: tick=%v %v pid=%v parent=%v name=%v status=%v", e.Tick, e.Type, e.PID, e.Parent, e.Name, e.Status)
	}
	if e.Type == proc.EventReap {
		if err = s.accounting.Save(ctx, acct.NewRecord(s.bootID, e)); err != nil {
			return fmt.Errorf("failed to save accounting for pid %v: %w", e.PID, err)
		}
	}
	for _, handler := range s.handlers {
		if err = handler(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Init returns the first process: it forks main, then reaps children
// forever, including orphans handed to it.
func Init(main proc.Program) proc.Program {
	return func(p *proc.Proc) {
		if main != nil {
			if _, err := p.Fork(main); err != nil {
				log.Printf("kproc: init failed to fork main: %v", err)
			}
		}
		for {
			if _, _, err := p.Wait(); err != nil {
				_ = p.SleepTicks(1)
			}
		}
	}
}

// Boot creates init running main and starts the schedulers, the timer and
// the event consumer. It can be called once.
func (s *Service) Boot(ctx context.Context, main proc.Program) (err error) {
	if !s.booted.CompareAndSwap(false, true) {
		return proc.ErrBooted
	}
	var runCtx context.Context
	runCtx, s.cancel = context.WithCancel(ctx)
	_, s.span = tracing.StartSpan(ctx, "kproc.boot", "INTERNAL")
	s.span.WithAttributes(map[string]string{"bootId": s.bootID, "policy": s.policy.Name()}).WithInt("cpus", s.config.CPUs)
	defer func() {
		if err != nil {
			tracing.EndSpan(s.span, err)
			s.span = nil
		}
	}()

	s.listener.Start(runCtx)
	for i := 0; i < s.config.CPUs; i++ {
		c := s.table.AddCPU(&platform.Interrupts{})
		s.cpus.Add(1)
		go func() {
			defer s.cpus.Done()
			s.table.Run(runCtx, c)
		}()
	}
	if err = s.table.UserInit(Init(main)); err != nil {
		return err
	}
	if interval := s.config.Timer.Interval; interval > 0 {
		go s.runTimer(runCtx, interval)
	}
	return nil
}

func (s *Service) runTimer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.table.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the clock by one tick and runs the accounting sweep.
func (s *Service) Tick() {
	s.clock.Advance()
	s.table.Tick()
}

// Ticks returns the current tick.
func (s *Service) Ticks() uint64 { return s.clock.Now() }

// BootID identifies this boot in events and accounting records.
func (s *Service) BootID() string { return s.bootID }

// Policy returns the scheduling policy name.
func (s *Service) Policy() string { return s.policy.Name() }

// Kill marks pid killed; init is refused.
func (s *Service) Kill(pid int) error {
	if pid == 1 {
		return ErrInitProtected
	}
	return s.table.Kill(pid)
}

// SetPriority changes the static priority of pid and returns the old one.
func (s *Service) SetPriority(pid, priority int) (int, error) {
	return s.table.SetPriority(pid, priority)
}

// Dump writes the process listing to w.
func (s *Service) Dump(w io.Writer) error { return s.table.Dump(w) }

// Processes returns every used slot.
func (s *Service) Processes() []proc.Info { return s.table.Snapshot() }

// Process returns the slot holding pid.
func (s *Service) Process(pid int) (proc.Info, bool) { return s.table.Lookup(pid) }

// Stats returns the lifecycle counters.
func (s *Service) Stats() stats.Stats { return s.stats.Snapshot() }

// OnStats registers a callback run after every counter change.
func (s *Service) OnStats(cb func(stats.Stats)) { s.stats.OnChange(cb) }

// Accounting lists the records of processes reaped during this boot.
func (s *Service) Accounting(ctx context.Context, parameters ...*dao.Parameter) ([]*acct.Record, error) {
	parameters = append([]*dao.Parameter{dao.NewParameter("BootID", s.bootID)}, parameters...)
	return s.accounting.List(ctx, parameters...)
}

// Memory reports free and used physical pages.
func (s *Service) Memory() (free, used int) { return s.pages.Available(), s.pages.InUse() }

// Shutdown halts the kernel, waits for the schedulers to stop, then lets
// the event consumer drain until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	var err error
	s.shutdown.Do(func() {
		s.table.Halt()
		if s.cancel == nil {
			return
		}
		s.cpus.Wait()
		err = s.drain(ctx)
		s.cancel()
		s.listener.Stop()
		tracing.EndSpan(s.span, err)
	})
	return err
}

func (s *Service) drain(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for s.queue.Size() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%v events not delivered: %w", s.queue.Size(), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
