// Package riscv models the handful of CSRs a RISC-V kernel trap path uses:
// sstatus, sepc, scause, stval, stvec, satp. There is no real hardware
// underneath; a CSRFile is the hosted stand-in, one per hart, with
// accessors for the previous-privilege bit and a snapshot/restore pair.
// The trap dispatcher in internal/trap does not read or write it.
package riscv

// sstatus bits that matter to this kernel core.
const (
	SSTATUS_SPP  = 1 << 8 // previous mode: 1 = supervisor, 0 = user
	SSTATUS_SPIE = 1 << 5 // previous interrupt-enable
	SSTATUS_SIE  = 1 << 1 // current interrupt-enable
)

// sie bits.
const (
	SIE_SEIE = 1 << 9 // external
	SIE_STIE = 1 << 5 // timer
	SIE_SSIE = 1 << 1 // software
)

// scause values devintr distinguishes. The high bit marks an interrupt
// (as opposed to an exception); the low bits are the cause code.
const (
	CauseSoftwareEcall   = 8
	CauseSupervisorTimer = 0x8000000000000005
	CauseSupervisorExternal = 0x8000000000000009
)

// CSRFile is the simulated register file for one hart. Every field here
// corresponds to a real CSR a RISC-V trap handler would read with an
// assembly instruction; here they're plain fields, and nothing in the
// hosted trap path (internal/trap) writes them.
type CSRFile struct {
	Sepc    uint64
	Sstatus uint64
	Scause  uint64
	Stval   uint64
	Stvec   uint64
	Satp    uint64
}

// SPP reports whether the previous privilege mode recorded in Sstatus was
// supervisor (true) or user (false).
func (c *CSRFile) SPP() bool {
	return c.Sstatus&SSTATUS_SPP != 0
}

// SetSPP sets or clears the previous-privilege-mode bit.
func (c *CSRFile) SetSPP(supervisor bool) {
	if supervisor {
		c.Sstatus |= SSTATUS_SPP
	} else {
		c.Sstatus &^= SSTATUS_SPP
	}
}

// Snapshot returns a copy suitable for save/restore around a kernel-mode
// yield, mirroring kerneltrap's sepc/sstatus/scause save in trap.c.
func (c *CSRFile) Snapshot() CSRFile {
	return *c
}

// Restore writes back the Sepc, Sstatus and Scause of a snapshot taken by
// Snapshot; the other fields are left as they are.
func (c *CSRFile) Restore(s CSRFile) {
	c.Sepc, c.Sstatus, c.Scause = s.Sepc, s.Sstatus, s.Scause
}
