package proc

import (
	"fmt"
	"io"
	"sync"

	"github.com/gmofishsauce/rv6go/internal/spinlock"
	"github.com/gmofishsauce/rv6go/internal/trapframe"
)

// Table is the fixed-size process table (proc[NPROC]) plus the per-hart
// records (cpus[NCPU]) and the locks that order pid allocation and
// parent/child bookkeeping across them.
type Table struct {
	procs []*Proc
	harts []*Hart

	pidLock *spinlock.Lock
	nextpid int

	waitLock *spinlock.Lock

	tickLock *spinlock.Lock
	ticks    uint64

	initProc *Proc

	// diagHart is a dedicated Hart used only for lock bookkeeping by
	// callers with no hart of their own (procdump, Killed/SetKilled
	// called from outside a running process, wakeup sources such as the
	// timer and the UART ISR). It never runs a scheduler loop.
	diagHart *Hart

	// workMu/workCond implement the wfi stand-in: a hart with nothing
	// Runnable blocks here instead of spinning, and any transition to
	// Runnable (Wakeup, Kill, Fork, UserInit) broadcasts on it.
	workMu   sync.Mutex
	workCond *sync.Cond

	// dispatcher is usertrap, wired in by internal/trap at boot time so
	// that proc (the base package) never imports trap (which imports
	// proc for the scheduler, sleep and wakeup).
	dispatcher func(p *Proc, h *Hart, cause trapframe.Cause)
}

// SetDispatcher installs the trap dispatch entry point each process's
// kernel thread calls after its Workload returns. Must be called once,
// before any process is started.
func (t *Table) SetDispatcher(f func(p *Proc, h *Hart, cause trapframe.Cause)) {
	t.dispatcher = f
}

// NewTable allocates nproc process slots and nharts per-hart records,
// mirroring procinit's loop over proc[NPROC] and main.c's per-hart setup.
func NewTable(nproc, nharts int) *Table {
	t := &Table{
		pidLock:  spinlock.New("nextpid"),
		waitLock: spinlock.New("wait_lock"),
		tickLock: spinlock.New("time"),
		nextpid:  1,
		diagHart: NewHart(-1),
	}
	t.procs = make([]*Proc, nproc)
	for i := range t.procs {
		t.procs[i] = &Proc{
			Lock:  spinlock.New("proc"),
			state: Unused,
			table: t,
		}
	}
	t.harts = make([]*Hart, nharts)
	for i := range t.harts {
		t.harts[i] = NewHart(i)
	}
	t.workCond = sync.NewCond(&t.workMu)
	return t
}

// waitForWork parks h until some process becomes Runnable, the hosted
// stand-in for "asm volatile(\"wfi\")".
func (t *Table) waitForWork(h *Hart) {
	h.IntrOn()
	t.workMu.Lock()
	t.workCond.Wait()
	t.workMu.Unlock()
}

// notifyWork wakes any hart parked in waitForWork.
func (t *Table) notifyWork() {
	t.workCond.Broadcast()
}

// Harts returns the per-hart records, index == hart ID.
func (t *Table) Harts() []*Hart { return t.harts }

// DiagHart returns the hart identity reserved for callers with no hart of
// their own — device ISRs and diagnostic commands — for spinlock
// bookkeeping only; it never runs a scheduler loop.
func (t *Table) DiagHart() *Hart { return t.diagHart }

// Hart returns the hart record with the given ID.
func (t *Table) Hart(id int) *Hart { return t.harts[id] }

func (t *Table) allocPid() int {
	t.pidLock.Acquire(t.diagHart)
	pid := t.nextpid
	t.nextpid++
	t.pidLock.Release(t.diagHart)
	return pid
}

// allocProc scans for an Unused slot, as allocproc does, and returns it
// with Lock held and pid/state/trapframe/resumeCh initialized. Returns nil
// if the table is full, mirroring allocproc's "no free procs" return.
func (t *Table) allocProc(h *Hart) *Proc {
	for _, p := range t.procs {
		p.Lock.Acquire(h)
		if p.state == Unused {
			p.pid = t.allocPid()
			p.state = Used
			p.Trapframe = &trapframe.Trapframe{}
			p.resumeCh = make(chan struct{})
			p.started = false
			return p
		}
		p.Lock.Release(h)
	}
	return nil
}

// freeProc resets a slot back to Unused. Caller must hold p.Lock.
func (t *Table) freeProc(p *Proc) {
	p.Trapframe = nil
	p.Name = ""
	p.Workload = nil
	p.pid = 0
	p.parent = nil
	p.chanAddr = 0
	p.killed = false
	p.xstate = 0
	p.resumeCh = nil
	p.hart = nil
	p.started = false
	p.state = Unused
}

// UserInit allocates the first process (struct proc from userinit), gives
// it workload, and marks it Runnable. It is the only process created
// without a parent.
func (t *Table) UserInit(h *Hart, name string, workload Workload) *Proc {
	p := t.allocProc(h)
	if p == nil {
		panic("proc: UserInit: process table full")
	}
	t.initProc = p
	p.Name = name
	p.Workload = workload
	p.state = Runnable
	p.Lock.Release(h)
	t.notifyWork()
	return p
}

// String renders a procdump-style line for p.
func (p *Proc) String() string {
	return fmt.Sprintf("%d %s %s", p.pid, p.state, p.Name)
}

// Dump writes a procdump-style listing, one line per non-Unused process.
// No lock is taken, matching procdump's "don't wedge a stuck machine
// further" comment — this is a debugging aid invoked from Ctrl-P.
func (t *Table) Dump(w io.Writer) {
	fmt.Fprintln(w)
	for _, p := range t.procs {
		if p.state == Unused {
			continue
		}
		fmt.Fprintln(w, p.String())
	}
}
