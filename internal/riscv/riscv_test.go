package riscv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/rv6go/internal/riscv"
)

func TestSPPRoundTrips(t *testing.T) {
	var c riscv.CSRFile
	require.False(t, c.SPP())

	c.SetSPP(true)
	require.True(t, c.SPP())

	c.SetSPP(false)
	require.False(t, c.SPP())
}

func TestSnapshotRestore(t *testing.T) {
	c := riscv.CSRFile{Sepc: 0x1000, Sstatus: riscv.SSTATUS_SPP, Scause: riscv.CauseSoftwareEcall}
	snap := c.Snapshot()

	c.Sepc = 0x2000
	c.Sstatus = 0
	c.Scause = riscv.CauseSupervisorTimer

	c.Restore(snap)
	require.Equal(t, uint64(0x1000), c.Sepc)
	require.Equal(t, uint64(riscv.SSTATUS_SPP), c.Sstatus)
	require.Equal(t, uint64(riscv.CauseSoftwareEcall), c.Scause)
}
