package core_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sensorcam/core"
)

func TestDefaultClocks(t *testing.T) {
	clk, err := core.NewClocks(core.DefaultClockConfig)
	require.NoError(t, err)

	require.Equal(t, uint32(32), clk.TockHz())
	require.Equal(t, uint32(512), clk.TimerHz())
	require.Equal(t, core.Ticks(32768), clk.OverflowTicks(), "2048 s at 16 ticks/s")
	require.Equal(t, 2048*time.Second, clk.Duration(clk.OverflowTicks()))
	require.Equal(t, 128*time.Second, clk.Duration(clk.TimerCountsToTicks(uint64(clk.TimerMaxCounts()))))
	require.Equal(t, 31250*time.Microsecond, clk.TockPeriod())

	// Roughly four years of horizon.
	horizon := clk.Duration(clk.MaxHorizon())
	require.Greater(t, horizon, 4*365*24*time.Hour)
	require.Less(t, horizon, 5*365*24*time.Hour)
}

func TestClockConversions(t *testing.T) {
	clk := core.MustClocks(core.DefaultClockConfig)

	require.Equal(t, core.Ticks(0), clk.TocksToTicks(1))
	require.Equal(t, core.Ticks(1), clk.TocksToTicks(2))
	require.Equal(t, core.Ticks(32767), clk.TocksToTicks(65535))

	require.Equal(t, uint64(32), clk.TicksToTimerCounts(1))
	require.Equal(t, uint64(32768*32), clk.TicksToTimerCounts(clk.OverflowTicks()))
	require.Panics(t, func() { clk.TicksToTimerCounts(clk.OverflowTicks() + 1) })

	require.Equal(t, core.Ticks(80000), clk.TicksFromDuration(5000*time.Second))
	require.Equal(t, core.Ticks(1), clk.TicksFromDuration(100*time.Millisecond))
	require.Equal(t, 62500*time.Microsecond, clk.Duration(1))
}

func TestClockWallTime(t *testing.T) {
	clk := core.MustClocks(core.DefaultClockConfig)
	when := time.Date(2026, time.March, 1, 12, 30, 15, 500_000_000, time.UTC)

	i := clk.InstantFromTime(when)
	require.True(t, i.Absolute())
	require.Equal(t, core.Ticks(when.Unix()*16+8), i.Ticks())
	require.True(t, when.Equal(clk.Time(i)))

	require.Panics(t, func() { clk.Time(core.RelativeInstant(5)) })
	require.Panics(t, func() { clk.InstantFromTime(time.Unix(-1, 0)) })
}

func TestClockConfigValidation(t *testing.T) {
	mutate := func(fn func(*core.ClockConfig)) core.ClockConfig {
		cfg := core.DefaultClockConfig
		fn(&cfg)
		return cfg
	}

	cases := map[string]struct {
		cfg   core.ClockConfig
		field string
	}{
		"zero tick rate":          {mutate(func(c *core.ClockConfig) { c.TickHz = 0 }), "tick_hz"},
		"zero oscillator":         {mutate(func(c *core.ClockConfig) { c.RefOscHz = 0 }), "ref_osc_hz"},
		"zero rtc prescaler":      {mutate(func(c *core.ClockConfig) { c.RTCPrescaler = 0 }), "rtc_prescaler"},
		"uneven rtc prescaler":    {mutate(func(c *core.ClockConfig) { c.RTCPrescaler = 1000 }), "rtc_prescaler"},
		"uneven timer prescaler":  {mutate(func(c *core.ClockConfig) { c.TimerPrescaler = 100 }), "timer_prescaler"},
		"tiny rtc period":         {mutate(func(c *core.ClockConfig) { c.RTCOverflowTocks = 1 }), "rtc_overflow_tocks"},
		"partial overflow tick":   {mutate(func(c *core.ClockConfig) { c.RTCOverflowTocks = 65535 }), "rtc_overflow_tocks"},
		"timer coarser than tick": {mutate(func(c *core.ClockConfig) { c.TimerPrescaler = 4096 }), "timer_prescaler"},
		"timer wider than 16 bit": {mutate(func(c *core.ClockConfig) { c.TimerMaxCounts = 1<<16 + 1 }), "timer_max_counts"},
		"too many timer intervals": {mutate(func(c *core.ClockConfig) {
			c.TimerPrescaler = 1
			c.TimerMaxCounts = 1
		}), "timer_max_counts"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, core.ErrInvalidClockConfig))

			var cfgErr *core.ClockConfigError
			require.True(t, errors.As(err, &cfgErr))
			require.Equal(t, tc.field, cfgErr.Field)

			require.Panics(t, func() { core.MustClocks(tc.cfg) })
		})
	}
}

func TestClockConfigAlternateTree(t *testing.T) {
	// 1 kHz ticks on a 1 MHz timer with a 32-bit RTC period.
	cfg := core.ClockConfig{
		TickHz:           1000,
		RefOscHz:         1_024_000,
		RTCPrescaler:     1024,
		RTCOverflowTocks: 1_000_000,
		TimerPrescaler:   1,
		TimerMaxCounts:   1 << 16,
	}
	clk, err := core.NewClocks(cfg)
	require.NoError(t, err)
	require.Equal(t, core.Ticks(1_000_000), clk.OverflowTicks())
	require.Equal(t, uint64(1024), clk.TicksToTimerCounts(1))
}
