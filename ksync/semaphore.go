// Package ksync implements synchronization primitives layered on the
// kernel package's scheduling primitives: a counting Semaphore, a
// priority-donating Lock, and a Cond built on Lock and Semaphore.
//
// None of this is part of the scheduler core itself (components A-I);
// spec §4.F calls the donation protocol out as something "used to avoid
// priority inversion when threads block on locks" without specifying the
// lock's own implementation, and §6 lists "the primitives on which
// higher-level synchronization... is built" as the scheduler's reason for
// existing. ksync is that higher layer, grounded on the donation protocol
// described in original_source/pintos/src/threads/thread.c
// (thread_donate_priority / thread_calculate_donated_priority /
// owned_locks) and the classic Pintos synch.c shape it implies (a
// semaphore with a priority-ordered waiter list, a lock as a binary
// semaphore plus a holder, a condition variable as a list of
// per-waiter semaphores).
package ksync

import (
	"ksched/kernel"
	"ksched/klist"
)

// byDescendingEffectivePriority orders waiter lists the same way the
// ready queue is ordered: highest effective priority first, FIFO among
// ties (klist.InsertOrdered's stability handles the tie-break).
func byDescendingEffectivePriority(a, b *kernel.Thread) bool {
	return a.EffectivePriority() > b.EffectivePriority()
}

// Semaphore is a classic counting semaphore: Down blocks while the count
// is zero, Up increments it and wakes the highest-priority waiter, if any.
type Semaphore struct {
	k       *kernel.Kernel
	value   int
	waiters klist.List[*kernel.Thread]
}

// NewSemaphore returns a Semaphore with the given initial value bound to
// k's scheduler.
func NewSemaphore(k *kernel.Kernel, value int) *Semaphore {
	s := &Semaphore{k: k, value: value}
	s.waiters.Init()
	return s
}

// Down waits for the semaphore to become positive, then decrements it.
// Must not be called from interrupt context.
func (s *Semaphore) Down() {
	k := s.k
	old := k.DisableInterrupts()
	for s.value == 0 {
		cur := k.Current()
		e := &klist.Elem[*kernel.Thread]{Value: cur}
		s.waiters.InsertOrdered(e, byDescendingEffectivePriority)
		k.Block(kernel.ReasonUnknown)
	}
	s.value--
	k.SetInterruptLevel(old)
}

// TryDown decrements the semaphore and returns true if it was positive,
// without blocking; returns false and leaves the value unchanged
// otherwise.
func (s *Semaphore) TryDown() bool {
	old := s.k.DisableInterrupts()
	defer s.k.SetInterruptLevel(old)
	if s.value == 0 {
		return false
	}
	s.value--
	return true
}

// Up increments the semaphore and wakes the highest-priority waiter, if
// any. Non-preemptive, like kernel.Unblock: the woken thread does not run
// until the caller next reaches a suspension point.
func (s *Semaphore) Up() {
	k := s.k
	old := k.DisableInterrupts()
	var next *klist.Elem[*kernel.Thread]
	s.waiters.Do(func(e *klist.Elem[*kernel.Thread]) bool {
		if next == nil || e.Value.EffectivePriority() > next.Value.EffectivePriority() {
			next = e
		}
		return true
	})
	if next != nil {
		s.waiters.Remove(next)
		k.Unblock(next.Value)
	}
	s.value++
	k.SetInterruptLevel(old)
}

// Value returns the semaphore's current count. Intended for diagnostics;
// racing with concurrent Up/Down is possible if interrupts aren't already
// disabled by the caller.
func (s *Semaphore) Value() int {
	old := s.k.DisableInterrupts()
	defer s.k.SetInterruptLevel(old)
	return s.value
}
