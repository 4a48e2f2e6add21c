// Package console implements the line-discipline layer over a uart.Uart:
// an input ring buffer with erase/kill/EOF processing (consoleintr), a
// blocking line-at-a-time reader (consoleread), and a pass-through writer
// (consolewrite), as described in original_source kernel/console.c.
package console

import (
	"github.com/gmofishsauce/rv6go/internal/proc"
	"github.com/gmofishsauce/rv6go/internal/spinlock"
	"github.com/gmofishsauce/rv6go/internal/uart"
)

// backspace is the sentinel consputc uses to erase one character on the
// terminal (overwrite with a space), matching BACKSPACE in console.c.
const backspace = 0x100

// ctrl returns the control code for x, matching the C(x) macro.
func ctrl(x byte) byte { return x - '@' }

// InputBufSize matches INPUT_BUF_SIZE.
const InputBufSize = 128

// Console is the line-discipline shadow device sitting in front of a
// uart.Uart, decoupled from any one process the way cons is in the
// original.
type Console struct {
	lock *spinlock.Lock

	buf     [InputBufSize]byte
	r, w, e uint

	u     *uart.Uart
	table *proc.Table

	// dump is called for Ctrl-P, standing in for procdump; wired by
	// whatever constructs the Console alongside the process table.
	dump func()
}

// New returns a Console reading/writing through u, sleeping and waking
// readers via table.
func New(table *proc.Table, u *uart.Uart, dump func()) *Console {
	c := &Console{
		lock:  spinlock.New("cons"),
		u:     u,
		table: table,
		dump:  dump,
	}
	u.SetRxHandler(c.Intr)
	return c
}

// consputc echoes c to the terminal synchronously, translating the
// backspace sentinel into the three-character erase sequence.
func (c *Console) consputc(h *proc.Hart, ch int) {
	if ch == backspace {
		c.u.PutcSync(h, '\b')
		c.u.PutcSync(h, ' ')
		c.u.PutcSync(h, '\b')
	} else {
		c.u.PutcSync(h, byte(ch))
	}
}

// Write sends n bytes from src to the uart one at a time, consolewrite's
// contract minus the user/kernel address distinction (src is always a
// kernel-resident byte slice in this hosted build).
func (c *Console) Write(h *proc.Hart, p *proc.Proc, src []byte) int {
	i := 0
	for ; i < len(src); i++ {
		c.u.Putc(h, p, src[i])
	}
	return i
}

// Read copies up to len(dst) bytes of one input line into dst, blocking
// until the interrupt handler has delivered a full line or until p is
// killed, mirroring consoleread.
func (c *Console) Read(h *proc.Hart, p *proc.Proc, dst []byte) int {
	target := len(dst)
	n := len(dst)
	i := 0

	c.lock.Acquire(h)
	defer c.lock.Release(h)

	for n > 0 {
		for c.r == c.w {
			if p.Killed() {
				return -1
			}
			p.Sleep(h, proc.ChanOf(&c.r), c.lock)
		}

		ch := c.buf[c.r%InputBufSize]
		c.r++

		if ch == ctrl('D') {
			if n < target {
				c.r--
			}
			break
		}

		dst[i] = ch
		i++
		n--

		if ch == '\n' {
			break
		}
	}
	return target - n
}

// Intr is the console input interrupt handler: uartintr calls this with
// each byte read from the wire. It performs erase/kill processing, echoes
// the result, and wakes any reader once a full line (or EOF) has arrived.
func (c *Console) Intr(h *proc.Hart, ch byte) {
	c.lock.Acquire(h)
	defer c.lock.Release(h)

	switch ch {
	case ctrl('P'):
		if c.dump != nil {
			c.dump()
		}
	case ctrl('U'):
		for c.e != c.w && c.buf[(c.e-1)%InputBufSize] != '\n' {
			c.e--
			c.consputc(h, backspace)
		}
	case ctrl('H'), 0x7f:
		if c.e != c.w {
			c.e--
			c.consputc(h, backspace)
		}
	default:
		if ch != 0 && c.e-c.r < InputBufSize {
			if ch == '\r' {
				ch = '\n'
			}
			c.consputc(h, int(ch))
			c.buf[c.e%InputBufSize] = ch
			c.e++
			if ch == '\n' || ch == ctrl('D') || c.e-c.r == InputBufSize {
				c.w = c.e
				c.table.Wakeup(h, nil, proc.ChanOf(&c.r))
			}
		}
	}
}
