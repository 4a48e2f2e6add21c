package spinlock_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/rv6go/internal/spinlock"
)

// fakeHart is a minimal spinlock.Hart for tests that don't need the real
// nesting bookkeeping in internal/proc.
type fakeHart struct {
	noff int
}

func (h *fakeHart) PushOff() { h.noff++ }
func (h *fakeHart) PopOff() {
	if h.noff < 1 {
		panic("pop_off")
	}
	h.noff--
}

func TestAcquireRelease(t *testing.T) {
	l := spinlock.New("test")
	h := &fakeHart{}

	require.False(t, l.Holding(h))
	l.Acquire(h)
	require.True(t, l.Holding(h))
	require.Equal(t, 1, h.noff)

	l.Release(h)
	require.False(t, l.Holding(h))
	require.Equal(t, 0, h.noff)
}

func TestAcquireTwiceSameHartPanics(t *testing.T) {
	l := spinlock.New("test")
	h := &fakeHart{}
	l.Acquire(h)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic reacquiring a held lock on the same hart")
		}
	}()
	l.Acquire(h)
}

func TestReleaseWithoutHoldingPanics(t *testing.T) {
	l := spinlock.New("test")
	h := &fakeHart{}
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic releasing an unheld lock")
		}
	}()
	l.Release(h)
}

func TestDistinctHartsExcludeEachOther(t *testing.T) {
	l := spinlock.New("test")
	a, b := &fakeHart{}, &fakeHart{}

	l.Acquire(a)
	require.True(t, l.Holding(a))
	require.False(t, l.Holding(b))

	done := make(chan struct{})
	go func() {
		l.Acquire(b)
		close(done)
		l.Release(b)
	}()

	select {
	case <-done:
		t.Fatal("second hart acquired a held lock")
	default:
	}

	l.Release(a)
	<-done
}
