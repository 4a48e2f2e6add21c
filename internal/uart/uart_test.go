package uart_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/rv6go/internal/memlayout"
	"github.com/gmofishsauce/rv6go/internal/plic"
	"github.com/gmofishsauce/rv6go/internal/proc"
	"github.com/gmofishsauce/rv6go/internal/trapframe"
	"github.com/gmofishsauce/rv6go/internal/uart"
)

// blockingWorkload never returns, standing in for a process that exists
// only so Putc/PutcSync have a *proc.Proc to call with, never scheduled
// through a running scheduler loop in these tests.
func blockingWorkload() proc.Workload {
	return func(tf *trapframe.Trapframe) trapframe.Cause {
		select {}
	}
}

func TestPutcSyncWritesImmediately(t *testing.T) {
	tbl := proc.NewTable(4, 1)
	pl := plic.New()
	var out bytes.Buffer
	u := uart.New(&out, tbl, pl, memlayout.UART0IRQ, nil)

	u.PutcSync(tbl.DiagHart(), 'x')
	require.Equal(t, "x", out.String())
}

func TestPutcDrainsRingToOut(t *testing.T) {
	tbl := proc.NewTable(4, 1)
	pl := plic.New()
	var out bytes.Buffer
	u := uart.New(&out, tbl, pl, memlayout.UART0IRQ, nil)

	h := tbl.Hart(0)
	p := tbl.UserInit(h, "writer", blockingWorkload())

	for _, c := range []byte("hello") {
		u.Putc(h, p, c)
	}
	require.Equal(t, "hello", out.String())
}

func TestReceiveByteRaisesPLICAndDispatchesThroughRxHandler(t *testing.T) {
	tbl := proc.NewTable(4, 1)
	pl := plic.New()
	pl.InitHart(0)
	var out bytes.Buffer
	u := uart.New(&out, tbl, pl, memlayout.UART0IRQ, nil)

	var got []byte
	u.SetRxHandler(func(h *proc.Hart, c byte) { got = append(got, c) })

	u.ReceiveByte('z')
	require.Equal(t, memlayout.UART0IRQ, pl.Claim(0))

	u.Intr(tbl.DiagHart())
	require.Equal(t, []byte{'z'}, got)
}
