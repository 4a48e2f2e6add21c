// Package uart models the 16550A UART's transmit ring buffer and the
// producer/consumer protocol between a blocking writer (uartputc),
// kernel-synchronous writer (uartputc_sync), and the interrupt-driven
// drain (uartstart/uartintr) described in original_source uart.c. There is
// no physical register file; out is an io.Writer standing in for the wire,
// and incoming bytes arrive through ReceiveByte instead of a real RHR.
package uart

import (
	"fmt"
	"io"
	"sync"

	"github.com/gmofishsauce/rv6go/internal/plic"
	"github.com/gmofishsauce/rv6go/internal/proc"
	"github.com/gmofishsauce/rv6go/internal/spinlock"
	"github.com/gmofishsauce/rv6go/internal/trace"
)

// TxBufSize matches UART_TX_BUF_SIZE.
const TxBufSize = 32

// Uart is one 16550A instance.
type Uart struct {
	lock *spinlock.Lock

	txBuf    [TxBufSize]byte
	txW, txR uint64
	panicked bool

	rxMu  sync.Mutex
	rxBuf []byte

	out    io.Writer
	table  *proc.Table
	plic   *plic.Plic
	irq    int
	tracer *trace.Tracer

	rxHandler func(h *proc.Hart, c byte)
}

// New returns a UART writing to out (standing in for the wire), wired to
// table for sleep/wakeup on the transmit ring and to pl, on which
// ReceiveByte raises irq as this UART's interrupt source.
func New(out io.Writer, table *proc.Table, pl *plic.Plic, irq int, tracer *trace.Tracer) *Uart {
	return &Uart{
		lock:  spinlock.New("uart"),
		out:   out,
		table: table,
		plic:  pl,
		irq:   irq,
		tracer: tracer,
	}
}

// SetRxHandler installs the function called with each received byte,
// exactly where consoleintr hangs off uartintr in the original — wired
// here as a callback instead of a direct import to avoid a package cycle
// between uart and console.
func (u *Uart) SetRxHandler(f func(h *proc.Hart, c byte)) {
	u.rxHandler = f
}

// SetPanicked stops all future output, mirroring uartputc/uartputc_sync's
// panicked spin-forever guard; used once the kernel core hits an
// unrecoverable fault.
func (u *Uart) SetPanicked() {
	u.lock.Acquire(u.table.DiagHart())
	u.panicked = true
	u.lock.Release(u.table.DiagHart())
}

// Putc queues c for asynchronous transmission, blocking the calling
// process if the ring is full. Only suitable for process context, never
// an interrupt handler, since it may sleep.
func (u *Uart) Putc(h *proc.Hart, p *proc.Proc, c byte) {
	u.lock.Acquire(h)
	defer u.lock.Release(h)

	if u.panicked {
		select {}
	}

	for u.txW == u.txR+TxBufSize {
		p.Sleep(h, proc.ChanOf(&u.txR), u.lock)
	}
	u.txBuf[u.txW%TxBufSize] = c
	u.txW++
	u.start(h)
}

// PutcSync writes c immediately, bypassing the ring — for kernel-internal
// output and echo, which must not block on a process's own sleep queue.
// Interrupts are disabled for the duration via PushOff/PopOff, the same
// discipline push_off gives acquire.
func (u *Uart) PutcSync(h *proc.Hart, c byte) {
	h.PushOff()
	defer h.PopOff()
	if u.panicked {
		select {}
	}
	fmt.Fprintf(u.out, "%c", c)
}

// start drains the ring to out, waking any writer blocked on space.
// Caller must hold u.lock.
func (u *Uart) start(h *proc.Hart) {
	for u.txW != u.txR {
		c := u.txBuf[u.txR%TxBufSize]
		u.txR++
		u.table.Wakeup(h, nil, proc.ChanOf(&u.txR))
		fmt.Fprintf(u.out, "%c", c)
	}
}

// ReceiveByte is called by the host input source (a goroutine reading
// stdin) to deliver one byte, standing in for a real RHR-ready interrupt.
// It queues the byte and raises this UART's PLIC line; Intr drains the
// queue once devintr claims it.
func (u *Uart) ReceiveByte(c byte) {
	u.rxMu.Lock()
	u.rxBuf = append(u.rxBuf, c)
	u.rxMu.Unlock()
	u.plic.Raise(u.irq)
}

func (u *Uart) popRx() (byte, bool) {
	u.rxMu.Lock()
	defer u.rxMu.Unlock()
	if len(u.rxBuf) == 0 {
		return 0, false
	}
	c := u.rxBuf[0]
	u.rxBuf = u.rxBuf[1:]
	return c, true
}

// Intr services a claimed UART interrupt: drain every waiting input byte
// to the rx handler, then drain the transmit ring, matching uartintr's
// read-then-send order.
func (u *Uart) Intr(h *proc.Hart) {
	for {
		c, ok := u.popRx()
		if !ok {
			break
		}
		if u.rxHandler != nil {
			u.rxHandler(h, c)
		}
	}
	u.lock.Acquire(h)
	u.start(h)
	u.lock.Release(h)
}
