package proc

import (
	"unsafe"

	"github.com/gmofishsauce/rv6go/internal/spinlock"
)

// Chan is an opaque wait-channel address, exactly void* chan in struct
// proc: sleepers and Wakeup only ever compare it for equality, never
// dereference it.
type Chan uintptr

// ChanOf derives a Chan from the address of whatever object a sleeper and
// its waker both have a pointer to (a ring buffer, a tick counter), the Go
// equivalent of passing that object's address as the wait channel.
func ChanOf[T any](p *T) Chan {
	return Chan(uintptr(unsafe.Pointer(p)))
}

// Yield gives up the hart for one scheduling round while remaining
// Runnable, matching yield()'s acquire/state-change/sched/release.
func (p *Proc) Yield(h *Hart) {
	p.Lock.Acquire(h)
	p.state = Runnable
	p.giveUp(false)
	p.Lock.Release(h)
}

// Sleep atomically releases lk and blocks until Wakeup is called with the
// same chan, exactly sleep(chan, lk)'s documented contract: acquiring
// p.Lock first means no wakeup racing the state change can be missed, so
// it's safe to release lk before actually sleeping.
func (p *Proc) Sleep(h *Hart, ch Chan, lk *spinlock.Lock) {
	p.Lock.Acquire(h)
	lk.Release(h)

	p.chanAddr = ch
	p.state = Sleeping

	p.giveUp(false)

	p.chanAddr = 0
	p.Lock.Release(h)
	lk.Acquire(h)
}

// Wakeup marks every process sleeping on ch Runnable, skipping self (the
// caller's own process, if any), and must be called with no p.Lock held.
// self may be nil when called from a context with no process of its own
// (the timer, the UART ISR).
func (t *Table) Wakeup(h *Hart, self *Proc, ch Chan) {
	woke := false
	for _, p := range t.procs {
		if p == self {
			continue
		}
		p.Lock.Acquire(h)
		if p.state == Sleeping && p.chanAddr == ch {
			p.state = Runnable
			woke = true
		}
		p.Lock.Release(h)
	}
	if woke {
		t.notifyWork()
	}
}
