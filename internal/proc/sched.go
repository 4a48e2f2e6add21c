package proc

// Start launches the process's kernel thread goroutine. Scheduler calls it
// once, the first time it picks the process to run, and never again for
// the same Proc.
func (p *Proc) Start() {
	go p.kernelThread()
}

// kernelThread is the long-lived goroutine standing in for a kernel
// thread's call stack across repeated swtch calls. It blocks on resumeCh
// whenever the scheduler doesn't own it; Scheduler wakes it by sending to
// resumeCh and waits on the hart's yieldCh until it gives the hart back.
func (p *Proc) kernelThread() {
	<-p.resumeCh // first swtch: scheduler already holds p.Lock

	// forkret: release the lock acquired by the scheduler before this
	// process has ever run, since nothing else will.
	p.Lock.Release(p.hart)

	for {
		cause := p.Workload(p.Trapframe)
		p.table.dispatcher(p, p.hart, cause)

		if p.state == Zombie {
			return
		}
	}
}

// giveUp hands the hart back to the scheduler. Caller must hold p.Lock,
// with nesting depth exactly 1 and state already changed away from
// Running, matching sched()'s preconditions. final is true from Exit,
// which never expects to run again.
func (p *Proc) giveUp(final bool) {
	if !p.Lock.Holding(p.hart) {
		panic("sched p->lock")
	}
	if p.hart.Noff() != 1 {
		panic("sched locks")
	}
	if p.state == Running {
		panic("sched running")
	}
	if p.hart.IntrGet() {
		panic("sched interruptible")
	}

	intena := p.hart.Intena()
	p.hart.yieldCh <- struct{}{}
	if !final {
		<-p.resumeCh
		// p.hart may now name a different hart: the scheduler that just
		// resumed us (possibly on another hart entirely) set it right
		// before sending on resumeCh, mirroring how a process's context
		// can migrate between harts across successive swtch calls.
		p.hart.SetIntena(intena)
	}
}

// Scheduler runs hart h's scheduling loop forever: scan the table for a
// Runnable process, hand it the hart, and wait for it to give the hart
// back before moving on — the direct translation of scheduler()'s
// acquire/swtch/release loop over proc[NPROC].
func (t *Table) Scheduler(h *Hart) {
	h.setProc(nil)
	for {
		h.IntrOn()
		found := false
		for _, p := range t.procs {
			p.Lock.Acquire(h)
			if p.state == Runnable {
				p.state = Running
				p.hart = h
				h.setProc(p)
				found = true

				if !p.started {
					p.started = true
					p.Start()
				}
				p.resumeCh <- struct{}{}
				<-h.yieldCh
				h.setProc(nil)
			}
			p.Lock.Release(h)
		}
		if !found {
			t.waitForWork(h)
		}
	}
}
