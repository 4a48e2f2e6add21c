package trap_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/rv6go/internal/memlayout"
	"github.com/gmofishsauce/rv6go/internal/plic"
	"github.com/gmofishsauce/rv6go/internal/proc"
	"github.com/gmofishsauce/rv6go/internal/trap"
	"github.com/gmofishsauce/rv6go/internal/trapframe"
)

func newDispatcher(t *testing.T) (*proc.Table, *trap.Dispatcher, *plic.Plic, *bytes.Buffer) {
	tbl := proc.NewTable(8, 1)
	pl := plic.New()
	pl.InitHart(0)
	var stderr bytes.Buffer
	d := trap.New(tbl, pl, nil, &stderr)
	return tbl, d, pl, &stderr
}

func TestFaultCauseKillsAndExitsProcess(t *testing.T) {
	tbl, _, _, _ := newDispatcher(t)
	h := tbl.Hart(0)

	done := make(chan struct{})
	calls := 0
	p := tbl.UserInit(h, "faulter", func(tf *trapframe.Trapframe) trapframe.Cause {
		calls++
		if calls == 1 {
			return trapframe.CauseFault
		}
		<-done
		return trapframe.CauseEcall
	})
	// Exit refuses the init process, and UserInit makes its newest process
	// init, so a second UserInit takes that role away from the faulter.
	tbl.UserInit(h, "init", func(tf *trapframe.Trapframe) trapframe.Cause { select {} })

	go tbl.Scheduler(h)
	// The workload returns CauseFault on its first call, which Handle turns
	// into Exit; its later branch is never reached since Exit never returns
	// control to the workload.
	require.Eventually(t, func() bool {
		return p.State() == proc.Zombie || p.State() == proc.Unused
	}, 2*time.Second, 10*time.Millisecond)
	close(done)
}

func TestFaultWhileAlreadyKilledIsLoggedAsDoubleFault(t *testing.T) {
	tbl, _, _, stderr := newDispatcher(t)
	h := tbl.Hart(0)

	// Killed before it ever runs, so the first time its workload returns
	// CauseFault, Handle already sees p.Killed() == true: the double-fault
	// path, rather than the plain unexpected-trap path.
	p := tbl.UserInit(h, "faulter", func(tf *trapframe.Trapframe) trapframe.Cause {
		return trapframe.CauseFault
	})
	tbl.Kill(h, p.Pid())
	// A second UserInit takes the init role, which Exit refuses to end.
	tbl.UserInit(h, "init", func(tf *trapframe.Trapframe) trapframe.Cause { select {} })

	go tbl.Scheduler(h)
	require.Eventually(t, func() bool {
		return p.State() == proc.Zombie || p.State() == proc.Unused
	}, 2*time.Second, 10*time.Millisecond)
	require.Contains(t, stderr.String(), "double fault")
}

func TestUnrecognizedIRQIsLoggedNotPanicked(t *testing.T) {
	tbl, d, pl, stderr := newDispatcher(t)
	h := tbl.Hart(0)

	d.RegisterDevice(memlayout.UART0IRQ, func(h *proc.Hart) {})
	// No device registered for VIRTIO0IRQ, so devintr must log rather than
	// panic when it claims an IRQ with no handler.
	pl.Raise(memlayout.VIRTIO0IRQ)
	require.NotPanics(t, func() {
		d.Handle(dummyProc(tbl, h), h, trapframe.CauseDeviceInterrupt)
	})
	require.Contains(t, stderr.String(), "unexpected interrupt")
}

func dummyProc(tbl *proc.Table, h *proc.Hart) *proc.Proc {
	done := make(chan struct{})
	close(done)
	return tbl.UserInit(h, "dummy", func(tf *trapframe.Trapframe) trapframe.Cause {
		<-done
		return trapframe.CauseEcall
	})
}
