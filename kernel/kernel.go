package kernel

import (
	"fmt"
	"log/slog"
	"sync"

	kerrors "ksched/errors"
	"ksched/fixedpoint"
	"ksched/klist"
	"ksched/logging"
)

// Policy selects which ready structure and recompute rules the scheduler
// core uses. It is read once at Init and never changes afterward.
type Policy int

const (
	// PolicyPriority is the strict-priority scheduler with donation.
	PolicyPriority Policy = iota
	// PolicyMLFQ is the 64-level multi-level feedback queue scheduler.
	PolicyMLFQ
)

func (p Policy) String() string {
	if p == PolicyMLFQ {
		return "mlfqs"
	}
	return "priority"
}

// PageAllocator hands out zeroed pages for thread stacks and reclaims them.
// palloc.Pool is the concrete implementation this repo ships.
type PageAllocator interface {
	AllocZeroPage() ([]byte, error)
	FreePage([]byte)
}

// Config configures a new Kernel.
type Config struct {
	Policy Policy
	Pages  PageAllocator
	Logger *slog.Logger

	// Freq overrides the assumed timer frequency (ticks/sec) used for the
	// MLFQ one-second recompute boundary. Zero selects TimerFreq.
	Freq int
	// Slice overrides the time-slice length, in ticks. Zero selects
	// TimeSlice.
	Slice int
}

// Kernel owns all scheduler state: the ready structures, the sleep list,
// the all-threads list, and the currently running thread. All of its
// state-mutating methods assume the gate is held for their duration;
// callers that don't already hold it acquire it themselves.
type Kernel struct {
	gate   Gate
	policy Policy
	pages  PageAllocator
	logger *slog.Logger

	allThreads *klist.List[*Thread]
	readyList  *klist.List[*Thread]
	mlfq       [PriMax + 1]*klist.List[*Thread]
	sleepList  *klist.List[*Thread]

	current *Thread
	initial *Thread
	idle    *Thread

	ticks       int64
	threadTicks int64
	idleTicks   int64
	kernelTicks int64

	loadAvg fixedpoint.Fixed

	timerFreq int64
	timeSlice int64

	tidMu   sync.Mutex
	nextTID TID

	started bool
}

// Init constructs a Kernel with a single running thread representing the
// calling goroutine (the "main"/boot thread). No scheduling happens until
// Start is called.
func Init(cfg Config) *Kernel {
	if cfg.Pages == nil {
		panic("kernel: Init requires a non-nil PageAllocator")
	}
	k := &Kernel{
		policy:     cfg.Policy,
		pages:      cfg.Pages,
		logger:     cfg.Logger,
		allThreads: klist.New[*Thread](),
		readyList:  klist.New[*Thread](),
		sleepList:  klist.New[*Thread](),
		timerFreq:  int64(cfg.Freq),
		timeSlice:  int64(cfg.Slice),
	}
	if k.timerFreq <= 0 {
		k.timerFreq = TimerFreq
	}
	if k.timeSlice <= 0 {
		k.timeSlice = TimeSlice
	}
	if k.logger == nil {
		k.logger = logging.Default()
	}
	for i := range k.mlfq {
		k.mlfq[i] = klist.New[*Thread]()
	}

	initial := &Thread{
		tid:    k.allocTID(),
		name:   "main",
		status: StatusRunning,
		priority: PriDefault,
		magic:  threadMagic,
		resume: make(chan *Thread, 1),
	}
	initial.queueElem.Value = initial
	initial.allElem.Value = initial
	k.allThreads.PushBack(&initial.allElem)

	k.current = initial
	k.initial = initial
	return k
}

// Panicf logs and raises a fatal kernel invariant violation. It never
// returns. Used for corruption, protocol misuse (e.g. unblocking a thread
// that isn't blocked), and out-of-range arguments to operations the
// original treats as programmer error rather than a recoverable condition.
func (k *Kernel) Panicf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	k.logger.Error("kernel panic", "detail", msg)
	panic("kernel: " + msg)
}

func (k *Kernel) allocTID() TID {
	k.tidMu.Lock()
	defer k.tidMu.Unlock()
	k.nextTID++
	return k.nextTID
}

// Current returns the thread the kernel considers currently running.
func (k *Kernel) Current() *Thread { return k.current }

// Policy returns the active scheduling policy.
func (k *Kernel) Policy() Policy { return k.policy }

// Create allocates a new thread, inherits nice/recent_cpu from the calling
// thread, makes it ready to run, and — under the priority scheduler only —
// yields immediately if the new thread outranks the caller's effective
// priority. entry runs on the new thread once it is first scheduled.
func (k *Kernel) Create(name string, priority int, entry func(*Kernel, any), aux any) (TID, error) {
	if entry == nil {
		return 0, kerrors.ErrNilEntryFunc
	}
	if name == "" {
		return 0, kerrors.ErrEmptyName
	}
	if len(name) > maxNameLen {
		return 0, kerrors.ErrNameTooLong
	}
	if priority < PriMin || priority > PriMax {
		return 0, kerrors.ErrPriorityOutOfRange
	}

	page, err := k.pages.AllocZeroPage()
	if err != nil {
		return 0, kerrors.Wrap(err, kerrors.ErrResourceExhausted, "create")
	}

	creator := k.current
	t := &Thread{
		tid:         k.allocTID(),
		name:        name,
		status:      StatusBlocked,
		blockReason: ReasonUnknown,
		priority:    priority,
		nice:        creator.nice,
		recentCPU:   creator.recentCPU,
		magic:       threadMagic,
		page:        page,
		entry:       entry,
		aux:         aux,
		resume:      make(chan *Thread),
	}
	t.queueElem.Value = t
	t.allElem.Value = t

	old := k.gate.Disable()
	k.allThreads.PushBack(&t.allElem)
	k.gate.SetLevel(old)

	go k.runThread(t)

	k.Unblock(t)

	if k.policy == PolicyPriority && t.priority > creator.EffectivePriority() {
		k.Yield()
	}

	logging.WithThread(k.logger, int(t.tid)).Debug("thread created", "name", name, "priority", priority)

	return t.tid, nil
}

// runThread is the trampoline every non-initial thread's goroutine starts
// in: it parks until first scheduled, runs schedule_tail's bookkeeping,
// enables interrupts (mirroring kernel_thread's intr_enable before running
// the entry function), runs the entry point, then exits.
func (k *Kernel) runThread(t *Thread) {
	prev := <-t.resume
	k.scheduleTail(prev)
	k.gate.Enable()
	t.entry(k, t.aux)
	k.Exit()
}

// idleEntry is the body of the idle thread: it registers itself, wakes
// whichever thread is waiting in Start, then forever blocks itself,
// relying on the tick handler's wake/preemption logic to ever run it again.
func idleEntry(k *Kernel, aux any) {
	idle := k.Current()
	old := k.gate.Disable()
	k.idle = idle
	k.Unblock(k.initial)
	k.gate.SetLevel(old)

	for {
		old := k.gate.Disable()
		k.Block(ReasonUnknown)
		k.gate.SetLevel(old)
	}
}

// Start creates and registers the idle thread, then blocks the calling
// thread until idle has signaled it is running. Must be called exactly
// once, after Init and before Tick.
func (k *Kernel) Start() {
	if k.started {
		k.Panicf("Start called twice")
	}
	if _, err := k.Create("idle", PriMin, idleEntry, nil); err != nil {
		k.Panicf("Start: failed to create idle thread: %v", err)
	}
	old := k.gate.Disable()
	k.Block(ReasonUnknown)
	k.gate.SetLevel(old)
	k.started = true
}

// Foreach calls fn once for every live thread, in creation order, with the
// gate held — mirroring thread_foreach's "interrupts must be off"
// requirement. fn must not create or destroy threads.
func (k *Kernel) Foreach(fn func(*Thread)) {
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)
	k.allThreads.Do(func(e *klist.Elem[*Thread]) bool {
		fn(e.Value)
		return true
	})
}

// Stats reports cumulative idle/kernel tick counts, the
// thread_print_stats-equivalent supplemented feature. There is no user-tick
// counter: the user-program loader is out of scope (see Non-goals), so
// every non-idle tick is necessarily a kernel tick.
type Stats struct {
	IdleTicks   int64
	KernelTicks int64
}

// Stats returns the current tick counters.
func (k *Kernel) Stats() Stats {
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)
	return Stats{IdleTicks: k.idleTicks, KernelTicks: k.kernelTicks}
}

// Ticks returns the total number of timer ticks observed so far.
func (k *Kernel) Ticks() int64 {
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)
	return k.ticks
}
