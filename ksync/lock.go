package ksync

import (
	"ksched/kernel"
	"ksched/klist"
)

// Lock is a binary lock supporting priority donation: acquiring a held
// lock donates the waiter's effective priority to the chain of lock
// holders blocking it, per spec §4.F. Lock implements
// kernel.DonationSource so the kernel package's donation walk can query it
// without importing ksync.
type Lock struct {
	k       *kernel.Kernel
	holder  *kernel.Thread
	locked  bool
	waiters klist.List[*kernel.Thread]
}

// NewLock returns an unlocked Lock bound to k's scheduler.
func NewLock(k *kernel.Kernel) *Lock {
	l := &Lock{k: k}
	l.waiters.Init()
	return l
}

// Holder implements kernel.DonationSource.
func (l *Lock) Holder() *kernel.Thread { return l.holder }

// MaxWaiterPriority implements kernel.DonationSource: the highest
// effective priority among threads currently blocked acquiring this lock,
// or PriMin if none are waiting. This is a full linear scan, not a read
// of the list's insertion-time head: a waiter's effective priority can
// rise after it joined l.waiters (e.g. a second, independent donation
// chain converging on it while it waits here), and l.waiters is never
// re-sorted when that happens, so only a live max over every waiter is
// correct — matching thread_calculate_donated_priority's own per-lock
// linear scan.
func (l *Lock) MaxWaiterPriority() int {
	max := kernel.PriMin
	l.waiters.Do(func(e *klist.Elem[*kernel.Thread]) bool {
		if p := e.Value.EffectivePriority(); p > max {
			max = p
		}
		return true
	})
	return max
}

// IsHeldByCurrent reports whether the calling thread holds l.
func (l *Lock) IsHeldByCurrent() bool {
	return l.holder == l.k.Current()
}

// Acquire blocks until l is free, then takes it. If l is already held, the
// calling thread donates its effective priority along the chain of lock
// holders before blocking (spec §4.F's donation protocol). Must not be
// called from interrupt context, and must not be called by the current
// holder (no recursive locking).
func (l *Lock) Acquire() {
	k := l.k
	cur := k.Current()
	old := k.DisableInterrupts()
	if l.locked {
		cur.BeginWaitingOn(l)
		e := &klist.Elem[*kernel.Thread]{Value: cur}
		l.waiters.InsertOrdered(e, byDescendingEffectivePriority)
		k.DonatePriority(cur)
		k.Block(kernel.ReasonWaitingOnLock)
		cur.EndWaiting()
	}
	l.locked = true
	l.holder = cur
	cur.AddOwned(l)
	k.SetInterruptLevel(old)
}

// Release gives up l. If the effective priority the releasing thread was
// granted came (in whole or part) from this lock's waiters, its donated
// priority is recomputed from its remaining held locks — exactly, not by
// popping a LIFO stack of donations (spec §4.F's donation release). The
// highest-priority waiter, if any, is woken but does not preempt the
// releaser (kernel.Unblock is non-preemptive).
func (l *Lock) Release() {
	k := l.k
	old := k.DisableInterrupts()
	cur := l.holder
	cur.RemoveOwned(l)
	l.holder = nil
	l.locked = false
	k.CalculateDonatedPriority(cur)
	// l.waiters is only sorted at insertion time (see MaxWaiterPriority),
	// so pick the live maximum rather than the head; the first of equals
	// wins, keeping FIFO order among ties.
	var next *klist.Elem[*kernel.Thread]
	l.waiters.Do(func(e *klist.Elem[*kernel.Thread]) bool {
		if next == nil || e.Value.EffectivePriority() > next.Value.EffectivePriority() {
			next = e
		}
		return true
	})
	if next != nil {
		l.waiters.Remove(next)
		k.Unblock(next.Value)
	}
	k.SetInterruptLevel(old)
}
