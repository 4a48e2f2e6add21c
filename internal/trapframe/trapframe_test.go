package trapframe_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/rv6go/internal/trapframe"
)

func TestArgReadsA0ThroughA5(t *testing.T) {
	tf := &trapframe.Trapframe{A0: 10, A1: 11, A2: 12, A3: 13, A4: 14, A5: 15}
	for n := 0; n <= 5; n++ {
		require.Equal(t, uint64(10+n), tf.Arg(n))
	}
}

func TestArgPanicsOutOfRange(t *testing.T) {
	tf := &trapframe.Trapframe{}
	require.Panics(t, func() { tf.Arg(6) })
	require.Panics(t, func() { tf.Arg(-1) })
}

func TestSetReturn(t *testing.T) {
	tf := &trapframe.Trapframe{}
	tf.SetReturn(42)
	require.Equal(t, uint64(42), tf.A0)
}

func TestCauseString(t *testing.T) {
	require.Equal(t, "ecall", trapframe.CauseEcall.String())
	require.Equal(t, "timer", trapframe.CauseTimer.String())
	require.Equal(t, "unknown", trapframe.Cause(99).String())
}
