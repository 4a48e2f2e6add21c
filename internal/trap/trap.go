// Package trap is the dispatch point a process's kernel thread calls after
// its Workload returns: the translation of usertrap/kerneltrap/devintr/
// clockintr from original_source kernel/trap.c into the hosted model,
// where Workload itself stands in for the hardware trap entry and reports
// why it returned instead of the kernel decoding scause.
package trap

import (
	"fmt"
	"io"

	"github.com/gmofishsauce/rv6go/internal/plic"
	"github.com/gmofishsauce/rv6go/internal/proc"
	"github.com/gmofishsauce/rv6go/internal/trace"
	"github.com/gmofishsauce/rv6go/internal/trapframe"
)

// Dispatcher implements Table.SetDispatcher's callback: given the cause a
// process's Workload reported, run the matching trap.c path and decide
// whether the process should be killed or yield.
type Dispatcher struct {
	table  *proc.Table
	plic   *plic.Plic
	tracer *trace.Tracer
	stderr io.Writer

	syscall func(p *proc.Proc, h *proc.Hart)
	devices map[int]func(h *proc.Hart)
}

// New returns a Dispatcher wired to table for scheduling, pl for the
// device-interrupt claim/complete handshake, and stderr for the
// unexpected-scause / unexpected-irq diagnostics usertrap/devintr print.
func New(table *proc.Table, pl *plic.Plic, tracer *trace.Tracer, stderr io.Writer) *Dispatcher {
	d := &Dispatcher{
		table:   table,
		plic:    pl,
		tracer:  tracer,
		stderr:  stderr,
		devices: make(map[int]func(h *proc.Hart)),
	}
	table.SetDispatcher(d.Handle)
	return d
}

// SetSyscall installs the syscall dispatch entry point, called for
// CauseEcall traps. Kept as a setter (not a constructor argument) since
// the syscall table is typically built after the Dispatcher, once proc
// and console are both available to it.
func (d *Dispatcher) SetSyscall(f func(p *proc.Proc, h *proc.Hart)) {
	d.syscall = f
}

// RegisterDevice wires irq's handler, called from devintr once the PLIC
// claims that interrupt source — uartintr and virtio_disk_intr's role in
// the original.
func (d *Dispatcher) RegisterDevice(irq int, handler func(h *proc.Hart)) {
	d.devices[irq] = handler
}

// Handle is usertrap's body: dispatch on cause, kill-and-exit if the
// process was killed or faulted, yield if this was a timer tick.
func (d *Dispatcher) Handle(p *proc.Proc, h *proc.Hart, cause trapframe.Cause) {
	switch cause {
	case trapframe.CauseEcall:
		if p.Killed() {
			break
		}
		d.tracer.Trap(h.ID, "ecall", 8, p.Pid())
		if d.syscall != nil {
			d.syscall(p, h)
		}

	case trapframe.CauseDeviceInterrupt:
		d.tracer.Trap(h.ID, "irq", 0x8000000000000009, p.Pid())
		d.devintr(h)

	case trapframe.CauseTimer:
		d.tracer.Trap(h.ID, "timer", 0x8000000000000005, p.Pid())
		d.clockintr(h)

	case trapframe.CauseFault:
		if p.Killed() {
			// A fault reported for a process already marked killed is the
			// hosted analogue of taking an exception while already
			// handling one with interrupts disabled: unrecoverable,
			// matching cpu.raiseException's DOUBLE FAULT path.
			d.tracer.DoubleFault(h.ID, p.Pid(), uint64(cause), p.Trapframe.Epc)
			fmt.Fprintf(d.stderr, "trap: double fault pid=%d\n", p.Pid())
		} else {
			fmt.Fprintf(d.stderr, "usertrap(): unexpected trap pid=%d\n", p.Pid())
		}
		p.SetKilled()
	}

	if p.Killed() {
		d.table.Exit(p, h, -1)
		return
	}
	if cause == trapframe.CauseTimer {
		p.Yield(h)
	}
}

// devintr is plic_claim/dispatch/plic_complete: find which device
// interrupted, run its handler, and let the PLIC know it may interrupt
// again.
func (d *Dispatcher) devintr(h *proc.Hart) {
	irq := d.plic.Claim(h.ID)
	if irq == 0 {
		return
	}
	if handler, ok := d.devices[irq]; ok {
		handler(h)
	} else {
		fmt.Fprintf(d.stderr, "unexpected interrupt irq=%d\n", irq)
	}
	d.plic.Complete(h.ID, irq)
}

// clockintr bumps the shared tick counter once per tick, only from hart
// 0 — matching cpuid() == 0 in the original, since every hart would
// otherwise double-count.
func (d *Dispatcher) clockintr(h *proc.Hart) {
	if h.ID == 0 {
		d.table.Tick(h)
	}
}
