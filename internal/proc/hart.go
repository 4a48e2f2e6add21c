package proc

import (
	"sync"

	"github.com/gmofishsauce/rv6go/internal/riscv"
)

// Hart is the per-hart record: struct cpu's proc/noff/intena fields, plus
// a per-hart CSR file (not read or written by internal/trap's dispatch).
// The nesting and proc fields are guarded by mu because, unlike real hardware, a
// hart's bookkeeping can be touched concurrently by its own process
// goroutine and by a simulated device interrupt delivered from another
// goroutine.
type Hart struct {
	ID int

	mu     sync.Mutex
	proc   *Proc
	noff   int
	sie    bool
	intena bool

	CSR riscv.CSRFile

	yieldCh chan struct{}
}

// NewHart returns hart id with interrupts initially disabled, matching a
// freshly reset CPU before trapinithart runs.
func NewHart(id int) *Hart {
	return &Hart{ID: id, yieldCh: make(chan struct{})}
}

// IntrOn enables simulated interrupts on this hart (intr_on).
func (h *Hart) IntrOn() {
	h.mu.Lock()
	h.sie = true
	h.mu.Unlock()
}

// IntrOff disables simulated interrupts on this hart (intr_off).
func (h *Hart) IntrOff() {
	h.mu.Lock()
	h.sie = false
	h.mu.Unlock()
}

// IntrGet reports whether interrupts are currently enabled (intr_get).
func (h *Hart) IntrGet() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sie
}

// PushOff disables interrupts, recording the prior state the first time
// nesting goes from 0 to 1, and bumps the nesting depth.
func (h *Hart) PushOff() {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.sie
	h.sie = false
	if h.noff == 0 {
		h.intena = old
	}
	h.noff++
}

// PopOff unwinds one PushOff, restoring interrupts once nesting reaches 0
// and they were enabled beforehand. Panics if interrupts are somehow
// enabled already, or if nesting underflows — both programmer errors.
func (h *Hart) PopOff() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sie {
		panic("pop_off - interruptible")
	}
	if h.noff < 1 {
		panic("pop_off")
	}
	h.noff--
	if h.noff == 0 && h.intena {
		h.sie = true
	}
}

// Noff returns the current push_off nesting depth.
func (h *Hart) Noff() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.noff
}

// Intena returns the interrupt-enable state saved across the current
// nesting, the cpu->intena field sched/yield save and restore because it
// belongs to the kernel thread, not the hart, across a context switch.
func (h *Hart) Intena() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.intena
}

// SetIntena overwrites the saved interrupt-enable state. sched calls this
// after swtch returns, restoring the value belonging to the kernel thread
// that is now running on this hart.
func (h *Hart) SetIntena(v bool) {
	h.mu.Lock()
	h.intena = v
	h.mu.Unlock()
}

// Proc returns the process currently assigned to this hart, or nil.
func (h *Hart) Proc() *Proc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.proc
}

func (h *Hart) setProc(p *Proc) {
	h.mu.Lock()
	h.proc = p
	h.mu.Unlock()
}
