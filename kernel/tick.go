package kernel

import (
	"ksched/fixedpoint"
	"ksched/klist"
)

const (
	// TimerFreq is the assumed timer device frequency, ticks per second.
	TimerFreq = 100
	// TimeSlice is the number of ticks a thread may run before preemption
	// is requested.
	TimeSlice = 4
)

// Tick is the timer interrupt handler: it runs in interrupt context, and
// must never allocate, never call a blocking synchronization primitive,
// and never call the console collaborator. It attributes the tick to
// idle/kernel time, bumps recent_cpu, recomputes load average and
// recent_cpu/priority once a second under MLFQ, sweeps the sleep list, and
// requests a yield on return once the current thread's time slice expires.
func (k *Kernel) Tick() {
	k.gate.enterInterruptContext()
	defer k.gate.leaveInterruptContext()
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)

	k.ticks++
	cur := k.current

	if cur == k.idle {
		k.idleTicks++
	} else {
		k.kernelTicks++
	}

	if cur != k.idle {
		cur.recentCPU = fixedpoint.Increment(cur.recentCPU)
	}

	if k.policy == PolicyMLFQ && k.ticks%k.timerFreq == 0 {
		k.recomputeLoadAvgAndDecay(cur)
		k.mlfqRecompute()
	}

	k.wakeSweep()

	k.threadTicks++
	if k.threadTicks >= k.timeSlice {
		k.gate.RequestYieldOnReturn()
	}
}

// TimerFrequency returns the timer frequency this kernel was configured
// with (ticks/sec), defaulting to TimerFreq.
func (k *Kernel) TimerFrequency() int64 { return k.timerFreq }

// TimeSliceLength returns the time-slice length this kernel was
// configured with, in ticks, defaulting to TimeSlice.
func (k *Kernel) TimeSliceLength() int64 { return k.timeSlice }

// MaybeYield yields if the tick handler requested a deferred yield, and
// reports whether it did. Boot harnesses call Tick followed by MaybeYield
// once outside interrupt context, mirroring the original's
// intr_yield_on_return taking effect only once the interrupt handler
// returns.
func (k *Kernel) MaybeYield() bool {
	if k.gate.takeYieldOnReturn() {
		k.Yield()
		return true
	}
	return false
}

// recomputeLoadAvgAndDecay updates the system load average and applies the
// once-per-second recent_cpu decay to every thread but idle.
func (k *Kernel) recomputeLoadAvgAndDecay(cur *Thread) {
	ready := k.mlfqBucketSize()
	if cur != k.idle {
		ready++
	}
	k.loadAvg = fixedpoint.Add(
		fixedpoint.Mul(fixedpoint.Frac(59, 60), k.loadAvg),
		fixedpoint.Mul(fixedpoint.Frac(1, 60), fixedpoint.FromInt(ready)),
	)

	scale := fixedpoint.Div(
		fixedpoint.MulInt(k.loadAvg, 2),
		fixedpoint.AddInt(fixedpoint.MulInt(k.loadAvg, 2), 1),
	)
	k.allThreads.Do(func(e *klist.Elem[*Thread]) bool {
		t := e.Value
		if t == k.idle {
			return true
		}
		t.recentCPU = fixedpoint.AddInt(fixedpoint.Mul(scale, t.recentCPU), t.nice)
		return true
	})
}
