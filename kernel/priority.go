package kernel

// readyInsert inserts t into the priority scheduler's single ready list,
// ordered by descending effective priority with FIFO ordering among ties.
func (k *Kernel) readyInsert(t *Thread) {
	k.readyList.InsertOrdered(&t.queueElem, func(a, b *Thread) bool {
		return a.EffectivePriority() > b.EffectivePriority()
	})
}

const maxDonationDepth = 8

// DonatePriority walks the chain of lock holders starting from waiter,
// recomputing each holder's donated priority in turn and re-sorting it in
// the ready list if it is currently READY. The walk stops after
// maxDonationDepth holders, so a cycle in lock usage (which should not occur
// absent programmer error) cannot loop forever; holders further up a longer
// chain receive no donation. Must be called with the gate held.
func (k *Kernel) DonatePriority(waiter *Thread) {
	t := waiter
	for depth := 0; depth < maxDonationDepth; depth++ {
		if t.waitingOn == nil {
			return
		}
		holder := t.waitingOn.Holder()
		if holder == nil {
			return
		}
		k.CalculateDonatedPriority(holder)
		if holder.status == StatusReady && k.policy == PolicyPriority {
			k.readyList.Remove(&holder.queueElem)
			k.readyInsert(holder)
		}
		t = holder
	}
}

// CalculateDonatedPriority recomputes and stores t's donated priority as
// the maximum waiter priority across every DonationSource t currently
// owns (PriMin if it owns none, or none of them have waiters).
func (k *Kernel) CalculateDonatedPriority(t *Thread) int {
	max := PriMin
	for _, src := range t.owned {
		if p := src.MaxWaiterPriority(); p > max {
			max = p
		}
	}
	t.donatedPriority = max
	return max
}

// SetPriority sets the current thread's base priority and yields
// unconditionally — even if the new priority is lower than the thread's
// previous effective priority — matching the original's documented,
// intentionally-not-ideal behavior (see the design notes on this point).
func (k *Kernel) SetPriority(priority int) {
	if priority < PriMin || priority > PriMax {
		k.Panicf("SetPriority: %d out of range [%d, %d]", priority, PriMin, PriMax)
	}
	old := k.gate.Disable()
	k.current.priority = priority
	k.gate.SetLevel(old)
	k.Yield()
}

// GetPriority returns the current thread's effective priority.
func (k *Kernel) GetPriority() int {
	return k.current.EffectivePriority()
}
