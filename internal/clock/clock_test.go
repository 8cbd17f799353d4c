package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	c := New()
	assert.False(t, c.Now().IsZero())
	assert.NotPanics(t, func() { c.Sleep(time.Microsecond) })

	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After never fired")
	}

	timer := c.NewTimer(time.Hour)
	assert.True(t, timer.Stop())
}

func TestFakeClockAdvanceFiresWaiters(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	ch := f.After(5 * time.Minute)
	select {
	case <-ch:
		t.Fatal("should not fire before Advance")
	default:
	}

	f.Advance(5 * time.Minute)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(5*time.Minute), got)
	default:
		t.Fatal("expected waiter to fire")
	}
}

func TestFakeTimerResetRestartsDeadline(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	timer := f.NewTimer(time.Minute)
	f.Advance(30 * time.Second)
	assert.True(t, timer.Reset(time.Minute))

	f.Advance(30 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("reset should have pushed the deadline out")
	default:
	}

	f.Advance(30 * time.Second)
	select {
	case <-timer.C():
	default:
		t.Fatal("expected timer to fire after the reset deadline")
	}
}

func TestFakeTimerStop(t *testing.T) {
	f := NewFake(time.Now())
	timer := f.NewTimer(time.Minute)
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
}
