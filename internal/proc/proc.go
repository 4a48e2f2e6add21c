// Package proc implements the process table, per-hart scheduler, and the
// sleep/wakeup rendezvous described in original_source proc.c. Each
// process is backed by a long-lived goroutine standing in for a kernel
// thread; the scheduler hands a hart to a process and gets it back over a
// pair of channels in place of swtch's register save/restore, while
// Proc.Lock keeps the acquire-in-one-place, release-in-another discipline
// the original relies on.
package proc

import (
	"github.com/gmofishsauce/rv6go/internal/spinlock"
	"github.com/gmofishsauce/rv6go/internal/trapframe"
)

// State is a process's lifecycle state (enum procstate).
type State int

const (
	Unused State = iota
	Used
	Sleeping
	Runnable
	Running
	Zombie
)

func (s State) String() string {
	switch s {
	case Unused:
		return "unused"
	case Used:
		return "used"
	case Sleeping:
		return "sleep "
	case Runnable:
		return "runble"
	case Running:
		return "run   "
	case Zombie:
		return "zombie"
	default:
		return "???"
	}
}

// Workload stands in for the user-space program a process runs (out of
// scope per the instructions this kernel core builds against). The
// process's kernel thread calls it each time the process returns to user
// mode — once when first scheduled and again after every trap that does
// not end the process — and it reports what kind of trap ends that
// run, the way real user code runs until an ecall, a fault, or an
// asynchronous interrupt retakes the hart.
type Workload func(tf *trapframe.Trapframe) trapframe.Cause

// Proc is one process-table entry (struct proc). Fields documented as
// requiring Lock, or wait_lock, must only be touched with that lock held,
// matching the field-grouping comments in proc.h.
type Proc struct {
	Lock *spinlock.Lock

	// Lock must be held to read or write these.
	state    State
	chanAddr Chan
	killed   bool
	xstate   int
	pid      int

	// wait_lock (held by the owning Table) must be held to use this.
	parent *Proc

	// Private to the process; Lock need not be held.
	Name      string
	Trapframe *trapframe.Trapframe
	Workload  Workload

	table    *Table
	resumeCh chan struct{}
	hart     *Hart
	started  bool
}

// Pid returns the process ID. Safe without Lock once a process is no
// longer Unused, since pid is set once at allocation and cleared only
// after the slot returns to Unused under Lock.
func (p *Proc) Pid() int { return p.pid }

// State returns the current lifecycle state. Caller must hold Lock.
func (p *Proc) State() State { return p.state }

// Killed reports whether this process has been marked for exit.
func (p *Proc) Killed() bool {
	p.Lock.Acquire(p.hartOrCaller())
	defer p.Lock.Release(p.hartOrCaller())
	return p.killed
}

// hartOrCaller is a fallback used only by Killed/SetKilled, the two
// original_source functions (killed/setkilled) that acquire p->lock
// themselves rather than requiring the caller to already hold it. Those
// calls can come from contexts not otherwise tracking a *Hart (e.g. a
// diagnostic dump), so each call uses the table's shared diagnostic hart
// (Table.DiagHart) purely for the lock's bookkeeping.
func (p *Proc) hartOrCaller() *Hart {
	return p.table.diagHart
}

// SetKilled marks the process for exit; it will not actually die until it
// next tries to return to user space.
func (p *Proc) SetKilled() {
	h := p.hartOrCaller()
	p.Lock.Acquire(h)
	p.killed = true
	p.Lock.Release(h)
}

// XState returns the exit status recorded by Exit, valid once the process
// is Zombie.
func (p *Proc) XState() int { return p.xstate }
