package kernel

import "sync"

// Level is a saved interrupt level, returned by Disable/SetLevel so a
// caller can restore whatever level was in effect before it touched the
// gate — the old_level idiom used throughout the original scheduler.
type Level int

const (
	LevelOn Level = iota
	LevelOff
)

// Gate stands in for the hardware interrupt enable flag of a uniprocessor.
// Go has no instruction that suspends arbitrary running code the way a
// timer interrupt does, so mutual exclusion between "the thread currently
// running" and "the timer tick handler" is modeled directly as holding a
// single non-reentrant mutex for the duration interrupts would have been
// disabled. Disable is idempotent when called by a flow that already holds
// the gate, exactly mirroring intr_disable's own old_level == INTR_OFF
// short-circuit — this is what lets nested save/restore patterns
// (old := g.Disable(); ...; g.SetLevel(old)) work without self-deadlock.
type Gate struct {
	mu   sync.Mutex
	held bool

	intrCtx      bool
	yieldPending bool
}

// NewGate returns a gate with interrupts enabled.
func NewGate() *Gate {
	return &Gate{}
}

// Disable acquires the gate if not already held by the calling flow and
// returns the level that was in effect beforehand.
func (g *Gate) Disable() Level {
	if g.held {
		return LevelOff
	}
	g.mu.Lock()
	g.held = true
	return LevelOn
}

// Enable is shorthand for SetLevel(LevelOn).
func (g *Gate) Enable() {
	g.SetLevel(LevelOn)
}

// SetLevel restores a previously saved level, returning the level that was
// in effect before the call.
func (g *Gate) SetLevel(l Level) Level {
	old := LevelOn
	if g.held {
		old = LevelOff
	}
	switch l {
	case LevelOn:
		if g.held {
			g.held = false
			g.mu.Unlock()
		}
	case LevelOff:
		if !g.held {
			g.mu.Lock()
			g.held = true
		}
	}
	return old
}

// Level reports the current interrupt level.
func (g *Gate) Level() Level {
	if g.held {
		return LevelOff
	}
	return LevelOn
}

// InInterruptContext reports whether the gate is currently flagged as
// running the tick handler. Blocking operations assert this is false.
func (g *Gate) InInterruptContext() bool {
	return g.intrCtx
}

func (g *Gate) enterInterruptContext() { g.intrCtx = true }
func (g *Gate) leaveInterruptContext() { g.intrCtx = false }

// RequestYieldOnReturn flags that the current thread should yield once
// the tick handler returns, rather than immediately — the tick handler
// itself must never call Yield directly, per spec.
func (g *Gate) RequestYieldOnReturn() {
	g.yieldPending = true
}

func (g *Gate) takeYieldOnReturn() bool {
	y := g.yieldPending
	g.yieldPending = false
	return y
}

// DisableInterrupts is the public entry point synchronization primitives
// outside this package (ksync's Lock, Semaphore, Cond) use to get the same
// mutual exclusion kernel-internal operations get around ready/sleep/wait
// list mutation, per spec §9: "any state change that would reroute the
// chain... must happen with interrupts off." Must be paired with
// SetInterruptLevel(old).
func (k *Kernel) DisableInterrupts() Level {
	return k.gate.Disable()
}

// SetInterruptLevel restores a previously saved interrupt level.
func (k *Kernel) SetInterruptLevel(l Level) Level {
	return k.gate.SetLevel(l)
}

// InterruptLevel reports the current interrupt level.
func (k *Kernel) InterruptLevel() Level {
	return k.gate.Level()
}

// InInterruptContext reports whether the calling code is running as part
// of Tick's interrupt-context dispatch.
func (k *Kernel) InInterruptContext() bool {
	return k.gate.InInterruptContext()
}
