package ksync

import (
	"ksched/kernel"
	"ksched/klist"
)

// condWaiter is a single Cond.Wait call's private rendezvous point: a
// one-shot semaphore signaled by exactly one Signal or Broadcast call,
// grounded on the classic Pintos synch.c condition variable (a list of
// per-waiter semaphores rather than a single shared wait queue, which is
// what lets Signal wake exactly one specific waiter).
type condWaiter struct {
	sema *Semaphore
	elem klist.Elem[*condWaiter]
}

// Cond is a condition variable used with a Lock, in the standard
// monitor style: callers hold lock, call Wait to release it and block
// until signaled, and reacquire it before Wait returns.
type Cond struct {
	k       *kernel.Kernel
	waiters klist.List[*condWaiter]
}

// NewCond returns a condition variable bound to k's scheduler.
func NewCond(k *kernel.Kernel) *Cond {
	c := &Cond{k: k}
	c.waiters.Init()
	return c
}

// Wait atomically releases lock and blocks the calling thread until
// Signal or Broadcast wakes it, then reacquires lock before returning.
// The caller must hold lock. Must not be called from interrupt context.
func (c *Cond) Wait(lock *Lock) {
	k := c.k
	w := &condWaiter{sema: NewSemaphore(k, 0)}
	w.elem.Value = w

	old := k.DisableInterrupts()
	c.waiters.PushBack(&w.elem)
	k.SetInterruptLevel(old)

	lock.Release()
	w.sema.Down()
	lock.Acquire()
}

// Signal wakes one waiter blocked in Wait, if any. The caller must hold
// lock.
func (c *Cond) Signal(lock *Lock) {
	k := c.k
	old := k.DisableInterrupts()
	e := c.waiters.PopFront()
	k.SetInterruptLevel(old)
	if e != nil {
		e.Value.sema.Up()
	}
}

// Broadcast wakes every waiter blocked in Wait. The caller must hold lock.
func (c *Cond) Broadcast(lock *Lock) {
	for {
		k := c.k
		old := k.DisableInterrupts()
		e := c.waiters.PopFront()
		k.SetInterruptLevel(old)
		if e == nil {
			return
		}
		e.Value.sema.Up()
	}
}
