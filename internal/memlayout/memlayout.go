// Package memlayout defines the addresses and IRQ numbers of the simulated
// QEMU "virt" machine. No physical MMIO exists in the hosted build —
// internal/plic and internal/uart key their state by IRQ number, not by
// register address — but the address constants are kept exactly as a real
// port would need them. Only the IRQ numbers are used elsewhere in this
// repository (by plic, uart, cmd/rv6 and the tests); the addresses are not.
package memlayout

const (
	// UART0 is the base address of the 16550A UART.
	UART0    = 0x10000000
	UART0IRQ = 10

	// VIRTIO0 is the base address of the first virtio MMIO disk. The block
	// device itself is out of scope; the address is kept so devintr's IRQ
	// routing table matches the real machine.
	VIRTIO0    = 0x10001000
	VIRTIO0IRQ = 1

	// PLIC and its per-register offsets.
	PLIC          = 0x0c000000
	PLICPriority  = PLIC + 0x0
	PLICPending   = PLIC + 0x1000
	PLICMEnableBase = PLIC + 0x2000
	PLICSEnableBase = PLIC + 0x2080
	PLICMPriorityBase = PLIC + 0x200000
	PLICSPriorityBase = PLIC + 0x201000
)

// PlicSEnable returns the supervisor-mode interrupt-enable register for hart.
func PlicSEnable(hart int) uint64 {
	return PLICSEnableBase + uint64(hart)*0x100
}

// PlicSPriority returns the supervisor-mode priority threshold register for hart.
func PlicSPriority(hart int) uint64 {
	return PLICSPriorityBase + uint64(hart)*0x2000
}

// PlicSClaim returns the supervisor-mode claim/complete register for hart.
func PlicSClaim(hart int) uint64 {
	return PLICSPriorityBase + uint64(hart)*0x2000 + 0x4
}

const (
	// KernBase is where the kernel image and physical memory start.
	KernBase = 0x80000000
	// PhysStop is one past the last byte of simulated physical memory.
	PhysStop = KernBase + 128*1024*1024

	PGSize = 4096
)
