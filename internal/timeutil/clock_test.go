package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock(t *testing.T) {
	t.Parallel()

	var c Clock = RealClock{}
	start := c.Now()
	assert.GreaterOrEqual(t, c.Since(start), time.Duration(0))

	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After did not fire")
	}

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}

func TestMockClock_After(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	ch := c.After(3 * time.Second)
	c.Advance(2 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(3*time.Second), got)
	default:
		t.Fatal("did not fire at deadline")
	}
	assert.Equal(t, []time.Duration{3 * time.Second}, c.Waits())
	assert.Equal(t, 3*time.Second, c.Since(start))
}

func TestMockClock_AutoAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	c.SetAutoAdvance(true)

	got := <-c.After(time.Minute)
	assert.Equal(t, start.Add(time.Minute), got)
	assert.Equal(t, start.Add(time.Minute), c.Now())
}

func TestMockTicker(t *testing.T) {
	t.Parallel()

	c := NewMockClock(time.Unix(0, 0))
	tk := c.NewTicker(time.Second)

	c.Advance(500 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticked early")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-tk.C():
	default:
		t.Fatal("expected tick")
	}

	tk.Stop()
	c.Advance(10 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker ticked")
	default:
	}
	require.NotNil(t, tk)
}
