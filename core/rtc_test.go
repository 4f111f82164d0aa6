package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sensorcam/core"
	"sensorcam/internal/hwsim"
)

func bootBoard(t *testing.T, at *core.Instant) *hwsim.Board {
	t.Helper()
	b := hwsim.Boot(core.DefaultClockConfig, at)
	t.Cleanup(b.Close)
	return b
}

func TestRTCColdStart(t *testing.T) {
	b := bootBoard(t, nil)

	require.True(t, b.Tracker.Enabled())
	require.Equal(t, 1, b.RTC.Configured())

	now := b.Tracker.Now()
	require.False(t, now.Absolute())
	require.Equal(t, core.Ticks(0), now.Ticks(), "scrambled retained memory must not leak into now")
}

func TestRTCWarmRestartKeepsTime(t *testing.T) {
	b := bootBoard(t, nil)
	b.Sleep(3000 * time.Second)
	before := b.Tracker.Now()

	b.Restart(nil)

	require.Equal(t, 1, b.RTC.Configured(), "a running RTC must not be reconfigured")
	after := b.Tracker.Now()
	require.False(t, after.Before(before))
	require.LessOrEqual(t, after.Sub(before), core.Ticks(1))
	require.InDelta(t, 3000*16, float64(after.Ticks()), 1)
}

func TestRTCRestartAfterPowerLoss(t *testing.T) {
	b := bootBoard(t, nil)
	b.Sleep(500 * time.Second)

	b.RTC.PowerOff()
	b.Mem.Scramble()
	b.Restart(nil)

	require.Equal(t, 2, b.RTC.Configured())
	require.Equal(t, core.RelativeInstant(0), b.Tracker.Now())
}

func TestRTCInitWithTime(t *testing.T) {
	clk := core.MustClocks(core.DefaultClockConfig)
	wall := clk.InstantFromTime(time.Date(2026, time.October, 19, 6, 0, 0, 0, time.UTC))

	b := bootBoard(t, &wall)
	require.Equal(t, wall, b.Tracker.Now())

	b.Sleep(100 * time.Second)
	require.InDelta(t, 1600, float64(b.Tracker.Now().Sub(wall)), 1)

	// Setting the time on a running RTC keeps the counter and moves now.
	later := wall.Add(clk.TicksFromDuration(time.Hour))
	b.Restart(&later)
	require.Equal(t, 1, b.RTC.Configured())
	require.InDelta(t, float64(later.Ticks()), float64(b.Tracker.Now().Ticks()), 1)
}

func TestRTCOverflowAdvancesAccumulator(t *testing.T) {
	b := bootBoard(t, nil)

	b.Sleep(2048*time.Second + 10*time.Second)
	require.Equal(t, 1, b.IRQ.Taken(hwsim.SourceRTC))
	require.InDelta(t, (2048+10)*16, float64(b.Tracker.Now().Ticks()), 1)

	b.Sleep(2048 * time.Second)
	require.Equal(t, 2, b.IRQ.Taken(hwsim.SourceRTC))
	require.InDelta(t, (4096+10)*16, float64(b.Tracker.Now().Ticks()), 1)
}

func TestRTCNowIsMonotonic(t *testing.T) {
	b := bootBoard(t, nil)

	last := b.Tracker.Now()
	check := func() {
		now := b.Tracker.Now()
		require.False(t, now.Before(last), "now went backwards: %s after %s", now, last)
		last = now
	}

	// Coarse steps over three overflow intervals.
	for b.Elapsed() < 3*2048*time.Second {
		b.Advance(1_000_003)
		check()
	}

	// Fine steps across one overflow boundary.
	b.RTC.SetCounter(65536 - 3)
	last = b.Tracker.Now()
	for i := 0; i < 200; i++ {
		b.Advance(97)
		check()
	}
}

func TestTocksNeverReturnsZero(t *testing.T) {
	cases := map[string]struct {
		counter uint32
		pending bool
		want    uint32
		handled int
	}{
		"zero, flag clear": {counter: 0, pending: false, want: 1, handled: 0},
		"zero, flag set":   {counter: 0, pending: true, want: 1, handled: 1},
		"max, flag clear":  {counter: 65535, pending: false, want: 65535, handled: 0},
		"max, flag set":    {counter: 65535, pending: true, want: 1, handled: 2},
		"mid, flag set":    {counter: 1000, pending: true, want: 1001, handled: 1},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b := bootBoard(t, nil)
			b.RTC.SetCounter(tc.counter)
			taken := b.IRQ.Taken(hwsim.SourceRTC)

			cs := core.Critical(core.IRQDisabled)
			b.IRQ.SetPending(hwsim.SourceRTC, tc.pending)
			got := b.Tracker.Tocks()
			require.False(t, core.InterruptsEnabled(), "Tocks must hand back a masked context")
			cs.Release()

			require.NotZero(t, got)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.handled, b.IRQ.Taken(hwsim.SourceRTC)-taken)
			require.False(t, b.RTC.OverflowPending())
		})
	}
}

func TestNowSeesPendingOverflow(t *testing.T) {
	b := bootBoard(t, nil)
	b.RTC.SetCounter(65535)

	cs := core.Critical(core.IRQDisabled)
	b.Advance(1024) // wraps while masked
	require.True(t, b.RTC.OverflowPending())
	now := b.Tracker.Now()
	cs.Release()

	// The overflow is folded in before the accumulator is read.
	require.Equal(t, core.Ticks(32768), now.Ticks())
}

func TestTimeUntilOverflow(t *testing.T) {
	b := bootBoard(t, nil)
	b.RTC.SetCounter(1000)

	require.Panics(t, func() { b.Tracker.TimeUntilOverflow() })

	cs := core.Critical(core.IRQDisabled)
	until := b.Tracker.TimeUntilOverflow()
	cs.Release()
	require.Equal(t, core.Ticks((65536-1000)/2), until)
}

func TestRTCInitWithTimeAccountsPendingOverflow(t *testing.T) {
	for _, counter := range []uint32{0, 4, 40000} {
		b := bootBoard(t, nil)
		b.Sleep(100 * time.Second)
		b.RTC.SetCounter(counter)
		b.IRQ.SetPending(hwsim.SourceRTC, true)

		set := core.AbsoluteInstant(1_000_000)
		b.Restart(&set)
		require.False(t, b.IRQ.Pending(hwsim.SourceRTC), "handler runs once Init releases")

		now := b.Tracker.Now()
		require.True(t, now.Absolute())
		require.False(t, now.Before(set), "counter=%d now=%s", counter, now)
		require.LessOrEqual(t, now.Sub(set), core.Ticks(1), "counter=%d now=%s", counter, now)
	}
}
