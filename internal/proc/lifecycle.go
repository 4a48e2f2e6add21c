package proc

// Fork creates a child of parent, copying its trapframe (so the child's
// workload resumes as if returning from the same point, with a0 forced to
// 0 for the child's return value) and its workload function. User memory
// copying is out of scope (virtual memory construction is excluded); the
// trapframe and workload are what the hosted model has instead of an
// address space to duplicate.
func (t *Table) Fork(parent *Proc, h *Hart) int {
	np := t.allocProc(h)
	if np == nil {
		return -1
	}

	*np.Trapframe = *parent.Trapframe
	np.Trapframe.A0 = 0
	np.Name = parent.Name
	np.Workload = parent.Workload

	pid := np.pid
	np.Lock.Release(h)

	t.waitLock.Acquire(h)
	np.parent = parent
	t.waitLock.Release(h)

	np.Lock.Acquire(h)
	np.state = Runnable
	np.Lock.Release(h)
	t.notifyWork()

	return pid
}

// reparent gives p's children to the init process, waking it in case it's
// blocked in Wait. Caller must hold waitLock.
func (t *Table) reparent(p *Proc, h *Hart) {
	for _, pp := range t.procs {
		if pp.parent == p {
			pp.parent = t.initProc
		}
	}
	t.Wakeup(h, p, ChanOf(t.initProc))
}

// Exit records p's exit status and moves it to Zombie, then gives up the
// hart for the last time. p's kernel thread goroutine ends once control
// returns up through the dispatcher to its run loop; nothing calls it
// again. It is a programmer error to call Exit on the init process.
func (t *Table) Exit(p *Proc, h *Hart, status int) {
	if p == t.initProc {
		panic("proc: init exiting")
	}

	t.waitLock.Acquire(h)
	t.reparent(p, h)
	t.Wakeup(h, p, ChanOf(p.parent))

	p.Lock.Acquire(h)
	p.xstate = status
	p.state = Zombie
	t.waitLock.Release(h)

	p.giveUp(true)
}

// Wait blocks until a child of p exits, frees its slot, and returns its
// pid and exit status. ok is false if p has no children, or if p has been
// killed while waiting.
func (t *Table) Wait(p *Proc, h *Hart) (pid int, xstate int, ok bool) {
	t.waitLock.Acquire(h)
	for {
		havekids := false
		for _, pp := range t.procs {
			if pp.parent != p {
				continue
			}
			pp.Lock.Acquire(h)
			havekids = true
			if pp.state == Zombie {
				pid, xstate = pp.pid, pp.xstate
				t.freeProc(pp)
				pp.Lock.Release(h)
				t.waitLock.Release(h)
				return pid, xstate, true
			}
			pp.Lock.Release(h)
		}

		p.Lock.Acquire(h)
		killed := p.killed
		p.Lock.Release(h)
		if !havekids || killed {
			t.waitLock.Release(h)
			return 0, 0, false
		}

		p.Sleep(h, ChanOf(p), t.waitLock)
	}
}

// Kill marks the process with the given pid for exit and, if it is
// currently Sleeping, promotes it to Runnable so it notices. It does not
// otherwise wake external waiters; the victim exits lazily, the next time
// it would return to its workload.
func (t *Table) Kill(h *Hart, pid int) bool {
	for _, p := range t.procs {
		p.Lock.Acquire(h)
		if p.pid == pid {
			p.killed = true
			if p.state == Sleeping {
				p.state = Runnable
			}
			p.Lock.Release(h)
			t.notifyWork()
			return true
		}
		p.Lock.Release(h)
	}
	return false
}
