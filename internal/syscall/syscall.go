// Package syscall is the syscall table and argument-fetch layer described
// in original_source kernel/syscall.c: argraw/argint/argaddr read the
// trapframe's a0..a5 slots, Dispatch looks a7 up in a fixed table, and an
// unknown number is reported and returns -1 in a0.
package syscall

import (
	"fmt"
	"io"

	"github.com/gmofishsauce/rv6go/internal/console"
	"github.com/gmofishsauce/rv6go/internal/proc"
)

// Numbers for the subset of syscalls this kernel core implements, assigned
// consecutively from 1 (they are not kernel/syscall.h's values) — no
// filesystem, so open/close/mknod/link/etc. have no home here.
const (
	SysFork = iota + 1
	SysExit
	SysWait
	SysKill
	SysGetpid
	SysSleep
	SysUptime
	SysRead
	SysWrite
)

// Table dispatches syscalls by number, bound to the process table (for
// fork/exit/wait/kill/sleep) and the console (for read/write).
type Table struct {
	procs   *proc.Table
	console *console.Console
	stderr  io.Writer

	handlers map[int]func(p *proc.Proc, h *proc.Hart) uint64
}

// New returns a Table dispatching against procs and cons.
func New(procs *proc.Table, cons *console.Console, stderr io.Writer) *Table {
	t := &Table{procs: procs, console: cons, stderr: stderr}
	t.handlers = map[int]func(p *proc.Proc, h *proc.Hart) uint64{
		SysFork:   t.sysFork,
		SysExit:   t.sysExit,
		SysWait:   t.sysWait,
		SysKill:   t.sysKill,
		SysGetpid: t.sysGetpid,
		SysSleep:  t.sysSleep,
		SysUptime: t.sysUptime,
		SysRead:   t.sysRead,
		SysWrite:  t.sysWrite,
	}
	return t
}

// argraw fetches the nth raw argument word from p's trapframe, a0..a5 —
// argint/argaddr both resolve to this with no further conversion, since
// the hosted model has no separate int/pointer representation.
func argraw(p *proc.Proc, n int) uint64 {
	return p.Trapframe.Arg(n)
}

// Dispatch is syscall()'s body: look up a7 in the table, call it, and
// store the result (or -1 for an unrecognized number) in a0.
func (t *Table) Dispatch(p *proc.Proc, h *proc.Hart) {
	num := int(p.Trapframe.A7)
	if fn, ok := t.handlers[num]; ok {
		p.Trapframe.A0 = fn(p, h)
	} else {
		fmt.Fprintf(t.stderr, "%d %s: unknown sys call %d\n", p.Pid(), p.Name, num)
		p.Trapframe.A0 = ^uint64(0) // -1
	}
}

func (t *Table) sysFork(p *proc.Proc, h *proc.Hart) uint64 {
	pid := t.procs.Fork(p, h)
	if pid < 0 {
		return ^uint64(0)
	}
	return uint64(pid)
}

func (t *Table) sysExit(p *proc.Proc, h *proc.Hart) uint64 {
	status := int32(argraw(p, 0))
	t.procs.Exit(p, h, int(status))
	return 0
}

func (t *Table) sysWait(p *proc.Proc, h *proc.Hart) uint64 {
	pid, xstate, ok := t.procs.Wait(p, h)
	if !ok {
		return ^uint64(0)
	}
	// The exit status would normally be copied out to the user address in
	// a1 via copyout; that address-space boundary is out of scope here, and
	// xstate is discarded: the caller sees only the child's pid.
	_ = xstate
	return uint64(pid)
}

func (t *Table) sysKill(p *proc.Proc, h *proc.Hart) uint64 {
	pid := int(int32(argraw(p, 0)))
	if t.procs.Kill(h, pid) {
		return 0
	}
	return ^uint64(0)
}

func (t *Table) sysGetpid(p *proc.Proc, h *proc.Hart) uint64 {
	return uint64(p.Pid())
}

func (t *Table) sysSleep(p *proc.Proc, h *proc.Hart) uint64 {
	n := uint64(argraw(p, 0))
	if !t.procs.SleepTicks(h, p, n) {
		return ^uint64(0)
	}
	return 0
}

func (t *Table) sysUptime(p *proc.Proc, h *proc.Hart) uint64 {
	return t.procs.Ticks(h)
}

// sysRead is sys_read's body: read up to n bytes from the console into a
// fresh buffer, then stash it in Trapframe.IOBuf (the hosted stand-in for
// copyout into the caller's user buffer) so the Workload can observe what
// was actually typed once the syscall returns.
func (t *Table) sysRead(p *proc.Proc, h *proc.Hart) uint64 {
	n := int(argraw(p, 2))
	if n < 0 {
		return ^uint64(0)
	}
	buf := make([]byte, n)
	r := t.console.Read(h, p, buf)
	if r < 0 {
		return ^uint64(0)
	}
	p.Trapframe.IOBuf = buf[:r]
	return uint64(r)
}

// sysWrite is sys_write's body: take the bytes the Workload staged in
// Trapframe.IOBuf (the hosted stand-in for copyin from the caller's user
// buffer) and hand exactly those bytes to the console, never more than n
// and never fabricated when the Workload staged fewer than it claimed.
func (t *Table) sysWrite(p *proc.Proc, h *proc.Hart) uint64 {
	n := int(argraw(p, 2))
	if n < 0 {
		return ^uint64(0)
	}
	buf := p.Trapframe.IOBuf
	if len(buf) > n {
		buf = buf[:n]
	}
	r := t.console.Write(h, p, buf)
	return uint64(r)
}
