// Package plic models the RISC-V Platform-Level Interrupt Controller: the
// priority table, per-hart enable bitmask, and claim/complete handshake
// devintr uses to find out which device interrupted and to re-arm it.
// There is no physical register file in the hosted build; Raise stands in
// for a device asserting its interrupt line.
package plic

import (
	"sort"
	"sync"

	"github.com/gmofishsauce/rv6go/internal/memlayout"
)

// Plic is the interrupt controller shared by every hart.
type Plic struct {
	mu       sync.Mutex
	priority map[int]uint32
	enable   map[int]uint32 // hart -> bitmask of enabled irqs (irq < 32)
	pending  map[int]bool
}

// New returns a Plic with the UART and virtio-disk IRQs at priority 1,
// matching plicinit — any non-zero priority, since 0 means disabled.
func New() *Plic {
	return &Plic{
		priority: map[int]uint32{
			memlayout.UART0IRQ:   1,
			memlayout.VIRTIO0IRQ: 1,
		},
		enable:  map[int]uint32{},
		pending: map[int]bool{},
	}
}

// InitHart enables the UART and virtio-disk IRQs for hart's S-mode and
// sets its priority threshold to 0 (accept everything), matching
// plicinithart.
func (pl *Plic) InitHart(hart int) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.enable[hart] = (1 << memlayout.UART0IRQ) | (1 << memlayout.VIRTIO0IRQ)
}

// Raise marks irq pending, as a device asserting its interrupt line would.
func (pl *Plic) Raise(irq int) {
	pl.mu.Lock()
	pl.pending[irq] = true
	pl.mu.Unlock()
}

// Claim returns the highest-priority pending IRQ enabled for hart, or 0 if
// none is pending — plic_claim's contract. Claim clears the returned IRQ's
// pending flag, so it is not returned again until the device raises it
// anew; Complete does not touch pending.
func (pl *Plic) Claim(hart int) int {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	mask := pl.enable[hart]
	var candidates []int
	for irq, p := range pl.pending {
		if !p {
			continue
		}
		if mask&(1<<uint(irq)) == 0 {
			continue
		}
		candidates = append(candidates, irq)
	}
	if len(candidates) == 0 {
		return 0
	}
	sort.Slice(candidates, func(i, j int) bool {
		return pl.priority[candidates[i]] > pl.priority[candidates[j]]
	})
	irq := candidates[0]
	pl.pending[irq] = false
	return irq
}

// Complete tells the PLIC hart is done servicing irq, allowing the device
// to interrupt again — plic_complete. In this model Claim already clears
// pending, so Complete exists for call-site fidelity with devintr's
// claim/dispatch/complete sequence and for future backpressure hooks.
func (pl *Plic) Complete(hart int, irq int) {}
