package kernel

import (
	"ksched/fixedpoint"
	"ksched/klist"
)

// mlfqPriority computes the MLFQ bucket priority from recent_cpu and nice:
// PRI_MAX - round(recent_cpu / 4) - nice * 2, clamped to [PriMin, PriMax].
func mlfqPriority(recentCPU fixedpoint.Fixed, nice int) int {
	unbound := PriMax - fixedpoint.Round(fixedpoint.Div(recentCPU, fixedpoint.FromInt(4))) - nice*2
	if unbound > PriMax {
		return PriMax
	}
	if unbound < PriMin {
		return PriMin
	}
	return unbound
}

// mlfqPushBack computes t's current bucket and pushes it to the back,
// mirroring mlfq_add_thread. Must be called with the gate held.
func (k *Kernel) mlfqPushBack(t *Thread) {
	pri := mlfqPriority(t.recentCPU, t.nice)
	t.priority = pri
	k.mlfq[pri].PushBack(&t.queueElem)
}

// mlfqBucketSize returns the number of threads across every MLFQ bucket,
// used for the load average's "threads ready to run" term.
func (k *Kernel) mlfqBucketSize() int {
	n := 0
	for i := range k.mlfq {
		n += k.mlfq[i].Len()
	}
	return n
}

// mlfqRecompute re-buckets every queued thread whose recomputed priority no
// longer matches its current bucket, pushing moved threads to the back of
// their new bucket — mirroring mlfq_update's "only move if new_priority !=
// i" rule exactly, including for threads whose recent_cpu/nice was just
// recomputed this same tick.
func (k *Kernel) mlfqRecompute() {
	for i := PriMin; i <= PriMax; i++ {
		bucket := k.mlfq[i]
		var moved []*Thread
		bucket.Do(func(e *klist.Elem[*Thread]) bool {
			t := e.Value
			if mlfqPriority(t.recentCPU, t.nice) != i {
				moved = append(moved, t)
			}
			return true
		})
		for _, t := range moved {
			bucket.Remove(&t.queueElem)
			k.mlfqPushBack(t)
		}
	}
}

// SetNice clamps and stores the current thread's niceness. It deliberately
// does not eagerly recompute priority or yield — a documented divergence
// from "ideal" MLFQ behavior preserved from the original.
func (k *Kernel) SetNice(nice int) {
	if nice < NiceMin {
		nice = NiceMin
	}
	if nice > NiceMax {
		nice = NiceMax
	}
	old := k.gate.Disable()
	k.current.nice = nice
	k.gate.SetLevel(old)
}

// GetNice returns the current thread's niceness.
func (k *Kernel) GetNice() int {
	return k.current.nice
}

// GetLoadAvg returns 100 times the current system load average, rounded.
func (k *Kernel) GetLoadAvg() int {
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)
	return fixedpoint.Round(fixedpoint.Mul(k.loadAvg, fixedpoint.FromInt(100)))
}

// GetRecentCPU returns 100 times the current thread's recent_cpu, rounded.
func (k *Kernel) GetRecentCPU() int {
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)
	return fixedpoint.Round(fixedpoint.Mul(k.current.recentCPU, fixedpoint.FromInt(100)))
}
