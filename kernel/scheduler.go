package kernel

// switchThreads implements the low-level context switch as a channel
// handoff. self is the thread giving up the CPU; target is the thread
// chosen to run next. target is woken by receiving self on its resume
// channel (the channel it last parked on, either here or in runThread's
// initial park); self then parks on its own resume channel until some
// future switchThreads call wakes it the same way, at which point it
// receives the thread that switched into it — the "prev" pointer
// schedule_tail consumes.
func switchThreads(self, target *Thread) *Thread {
	target.resume <- self
	return <-self.resume
}

// nextThreadToRun picks the next thread per the active policy, falling
// back to the idle thread if nothing is ready.
func (k *Kernel) nextThreadToRun() *Thread {
	if k.policy == PolicyMLFQ {
		for pri := PriMax; pri >= PriMin; pri-- {
			if e := k.mlfq[pri].PopFront(); e != nil {
				return e.Value
			}
		}
	} else if e := k.readyList.PopFront(); e != nil {
		return e.Value
	}
	return k.idle
}

// schedule picks the next thread to run and switches to it if it differs
// from the current thread. Must be called with the gate held.
func (k *Kernel) schedule() {
	if k.gate.Level() != LevelOff {
		k.Panicf("schedule called with interrupts on")
	}
	cur := k.current
	if cur.status == StatusRunning {
		k.Panicf("schedule: current thread %q (tid %d) is still running", cur.name, cur.tid)
	}
	next := k.nextThreadToRun()
	k.current = next
	if cur != next {
		prev := switchThreads(cur, next)
		k.scheduleTail(prev)
		return
	}
	next.status = StatusRunning
}

// scheduleTail runs in the context of the thread that just became current.
// It marks the new thread running, resets the time-slice counter, and
// frees a dying predecessor's page — never the initial thread's, which was
// never allocated from the page pool.
func (k *Kernel) scheduleTail(prev *Thread) {
	k.current.status = StatusRunning
	k.threadTicks = 0
	if prev != nil {
		assertThread(prev)
	}
	if prev != nil && prev.status == StatusDying && prev != k.initial {
		k.pages.FreePage(prev.page)
	}
}

// Block transitions the current thread to BLOCKED with the given reason
// and switches away. Callers must already hold the gate and must not be in
// interrupt context; callers are responsible for restoring their saved
// level once Block returns (i.e. once this thread is scheduled again).
func (k *Kernel) Block(reason BlockReason) {
	if k.gate.InInterruptContext() {
		k.Panicf("Block called from interrupt context")
	}
	cur := k.current
	cur.status = StatusBlocked
	cur.blockReason = reason
	k.schedule()
}

// Unblock transitions a BLOCKED thread to READY and makes it eligible to
// run, without preempting the caller. It is an error to unblock a thread
// that is not BLOCKED — use Yield to make the running thread ready.
func (k *Kernel) Unblock(t *Thread) {
	assertThread(t)
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)
	if t.status != StatusBlocked {
		k.Panicf("Unblock: thread %q (tid %d) is not blocked", t.name, t.tid)
	}
	t.blockReason = ReasonUnknown
	if k.policy == PolicyMLFQ {
		k.mlfqPushBack(t)
	} else {
		k.readyInsert(t)
	}
	t.status = StatusReady
}

// Yield makes the current thread ready (unless it is the idle thread, which
// is never re-enqueued) and switches to whichever thread the policy picks
// next, possibly the same thread.
func (k *Kernel) Yield() {
	old := k.gate.Disable()
	defer k.gate.SetLevel(old)
	cur := k.current
	if cur != k.idle {
		if k.policy == PolicyMLFQ {
			k.mlfqPushBack(cur)
		} else {
			k.readyInsert(cur)
		}
	}
	cur.status = StatusReady
	k.schedule()
}

// Exit removes the current thread from the all-threads list, marks it
// DYING, and switches away permanently; its goroutine never runs again and
// its page is reclaimed by its successor in scheduleTail. Exit never
// returns.
func (k *Kernel) Exit() {
	if k.gate.InInterruptContext() {
		k.Panicf("Exit called from interrupt context")
	}
	k.gate.Disable()
	k.allThreads.Remove(&k.current.allElem)
	k.current.status = StatusDying
	k.schedule()
	k.Panicf("Exit: exited thread was rescheduled")
}
