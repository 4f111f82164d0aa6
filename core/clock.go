package core

import (
	"errors"
	"math/bits"
	"time"
)

// Default clock tree: a 32.768kHz reference oscillator feeds both the RTC
// (through a /1024 predivider, one tock = 1/32 s) and the countdown timer
// (through a /64 prescaler, 512 counts per second). Firmware time is kept
// in 1/16 s ticks.
const (
	DefaultTickHz           = 16
	DefaultRefOscHz         = 32768
	DefaultRTCPrescaler     = 1024
	DefaultRTCOverflowTocks = 1 << 16
	DefaultTimerPrescaler   = 64
	DefaultTimerMaxCounts   = 1 << 16

	// MaxRTCIntervals bounds the RTC phase of a schedule; it is the range
	// of the rtcCount field.
	MaxRTCIntervals = 0xFFFF

	// maxTimerCounts is what a 16-bit compare register can express.
	maxTimerCounts = 1 << 16
)

const (
	defaultTockHz        = DefaultRefOscHz / DefaultRTCPrescaler
	defaultTimerHz       = DefaultRefOscHz / DefaultTimerPrescaler
	defaultOverflowTicks = DefaultRTCOverflowTocks * DefaultTickHz / defaultTockHz
	defaultCountsPerTick = defaultTimerHz / DefaultTickHz
	defaultHorizonTicks  = (MaxRTCIntervals - 1) * defaultOverflowTicks
)

// Build-time proofs for the default clock tree. A typed constant that does
// not fit its type is a compile error, and so is a negative uint, which is
// how the exact-division checks are written.
const (
	_ uint = -(DefaultRefOscHz % DefaultRTCPrescaler)
	_ uint = -(DefaultRefOscHz % DefaultTimerPrescaler)
	_ uint = -(DefaultRTCOverflowTocks * DefaultTickHz % defaultTockHz)
	_ uint = -(defaultTimerHz % DefaultTickHz)

	_ uint32 = DefaultRTCOverflowTocks - 1
	_ uint64 = DefaultRTCOverflowTocks * DefaultTickHz
	_ uint16 = DefaultTimerMaxCounts - 1
	_ uint16 = maxTimerCounts - DefaultTimerMaxCounts
	_ uint16 = defaultOverflowTicks * defaultCountsPerTick / DefaultTimerMaxCounts
	_ uint64 = defaultOverflowTicks * defaultCountsPerTick
	_ uint64 = uint64(MaxTicks) - defaultHorizonTicks
)

// ErrInvalidClockConfig is wrapped by every ClockConfig validation failure.
var ErrInvalidClockConfig = errors.New("invalid_clock_config")

// ClockConfigError names the field that failed validation.
type ClockConfigError struct {
	Field  string
	Reason string
}

func (e *ClockConfigError) Error() string {
	return "clock config: " + e.Field + ": " + e.Reason
}

func (e *ClockConfigError) Unwrap() error { return ErrInvalidClockConfig }

// ClockConfig describes the clock tree of a target. The JSON names are the
// ones used by the device configuration file.
type ClockConfig struct {
	TickHz           uint32 `json:"tick_hz"`
	RefOscHz         uint32 `json:"ref_osc_hz"`
	RTCPrescaler     uint32 `json:"rtc_prescaler"`
	RTCOverflowTocks uint32 `json:"rtc_overflow_tocks"`
	TimerPrescaler   uint32 `json:"timer_prescaler"`
	TimerMaxCounts   uint32 `json:"timer_max_counts"`
}

// DefaultClockConfig is the clock tree proven correct at build time above.
var DefaultClockConfig = ClockConfig{
	TickHz:           DefaultTickHz,
	RefOscHz:         DefaultRefOscHz,
	RTCPrescaler:     DefaultRTCPrescaler,
	RTCOverflowTocks: DefaultRTCOverflowTocks,
	TimerPrescaler:   DefaultTimerPrescaler,
	TimerMaxCounts:   DefaultTimerMaxCounts,
}

// Clocks holds the derived conversion factors for a validated ClockConfig.
// Every conversion it offers has been range checked for its largest input.
type Clocks struct {
	cfg           ClockConfig
	tockHz        uint32
	timerHz       uint32
	overflowTicks Ticks
	countsPerTick uint64
	maxHorizon    Ticks
}

// Validate runs the construction-time range proofs for c.
func (c ClockConfig) Validate() error {
	_, err := deriveClocks(c)
	return err
}

// NewClocks validates cfg and derives its conversion factors.
func NewClocks(cfg ClockConfig) (*Clocks, error) {
	return deriveClocks(cfg)
}

// MustClocks is NewClocks for configurations that are firmware constants.
func MustClocks(cfg ClockConfig) *Clocks {
	clk, err := deriveClocks(cfg)
	if err != nil {
		panic(err.Error())
	}
	return clk
}

func deriveClocks(c ClockConfig) (*Clocks, error) {
	switch {
	case c.TickHz == 0:
		return nil, &ClockConfigError{"tick_hz", "must be non-zero"}
	case c.TickHz > uint32(time.Second):
		return nil, &ClockConfigError{"tick_hz", "finer than a nanosecond"}
	case c.RefOscHz == 0:
		return nil, &ClockConfigError{"ref_osc_hz", "must be non-zero"}
	case c.RTCPrescaler == 0:
		return nil, &ClockConfigError{"rtc_prescaler", "must be non-zero"}
	case c.TimerPrescaler == 0:
		return nil, &ClockConfigError{"timer_prescaler", "must be non-zero"}
	case c.RTCOverflowTocks < 2:
		return nil, &ClockConfigError{"rtc_overflow_tocks", "must be at least 2"}
	case c.TimerMaxCounts == 0:
		return nil, &ClockConfigError{"timer_max_counts", "must be non-zero"}
	case c.TimerMaxCounts > maxTimerCounts:
		return nil, &ClockConfigError{"timer_max_counts", "exceeds a 16-bit compare register"}
	}

	if c.RefOscHz%c.RTCPrescaler != 0 {
		return nil, &ClockConfigError{"rtc_prescaler", "does not divide the reference oscillator"}
	}
	if c.RefOscHz%c.TimerPrescaler != 0 {
		return nil, &ClockConfigError{"timer_prescaler", "does not divide the reference oscillator"}
	}

	clk := &Clocks{
		cfg:     c,
		tockHz:  c.RefOscHz / c.RTCPrescaler,
		timerHz: c.RefOscHz / c.TimerPrescaler,
	}

	// Tocks in one overflow interval times TickHz fits easily in 64 bits
	// (both factors are 32-bit), but must land on a whole tick.
	num := uint64(c.RTCOverflowTocks) * uint64(c.TickHz)
	if num%uint64(clk.tockHz) != 0 {
		return nil, &ClockConfigError{"rtc_overflow_tocks", "overflow interval is not a whole number of ticks"}
	}
	clk.overflowTicks = Ticks(num / uint64(clk.tockHz))

	if clk.timerHz%c.TickHz != 0 {
		return nil, &ClockConfigError{"timer_prescaler", "a tick is not a whole number of timer counts"}
	}
	clk.countsPerTick = uint64(clk.timerHz / c.TickHz)

	// The sub-overflow remainder of a schedule is converted to timer
	// counts and split into maximal intervals stored in 16 bits.
	hi, countsPerOverflow := bits.Mul64(uint64(clk.overflowTicks), clk.countsPerTick)
	if hi != 0 {
		return nil, &ClockConfigError{"timer_prescaler", "overflow interval overflows timer counts"}
	}
	if countsPerOverflow/uint64(c.TimerMaxCounts) > 0xFFFF {
		return nil, &ClockConfigError{"timer_max_counts", "too many timer intervals per overflow interval"}
	}

	hi, horizon := bits.Mul64(MaxRTCIntervals-1, uint64(clk.overflowTicks))
	if hi != 0 || horizon > uint64(MaxTicks) {
		return nil, &ClockConfigError{"rtc_overflow_tocks", "schedulable horizon overflows an instant"}
	}
	clk.maxHorizon = Ticks(horizon)

	return clk, nil
}

// Config returns the configuration the clocks were derived from
func (c *Clocks) Config() ClockConfig { return c.cfg }

// TockHz returns the RTC counting rate
func (c *Clocks) TockHz() uint32 { return c.tockHz }

// TimerHz returns the countdown timer counting rate
func (c *Clocks) TimerHz() uint32 { return c.timerHz }

// OverflowTocks returns the RTC counter period N
func (c *Clocks) OverflowTocks() uint32 { return c.cfg.RTCOverflowTocks }

// OverflowTicks returns the duration of one RTC overflow interval
func (c *Clocks) OverflowTicks() Ticks { return c.overflowTicks }

// TimerMaxCounts returns the length of one maximal timer interval in counts
func (c *Clocks) TimerMaxCounts() uint32 { return c.cfg.TimerMaxCounts }

// MaxHorizon returns the furthest a deadline may lie ahead of now
func (c *Clocks) MaxHorizon() Ticks { return c.maxHorizon }

// TocksToTicks converts an RTC counter value, rounding down.
func (c *Clocks) TocksToTicks(tocks uint32) Ticks {
	return Ticks(uint64(tocks) * uint64(c.cfg.TickHz) / uint64(c.tockHz))
}

// TicksToTimerCounts converts a duration no longer than one overflow
// interval into countdown timer counts. The conversion is exact.
func (c *Clocks) TicksToTimerCounts(t Ticks) uint64 {
	if t > c.overflowTicks {
		panic("clock: timer conversion beyond one overflow interval")
	}
	return uint64(t) * c.countsPerTick
}

// TimerCountsToTicks converts timer counts to ticks, rounding down.
func (c *Clocks) TimerCountsToTicks(counts uint64) Ticks {
	return Ticks(counts / c.countsPerTick)
}

// TockPeriod returns the wall duration of one RTC tock
func (c *Clocks) TockPeriod() time.Duration {
	return (time.Second + time.Duration(c.tockHz) - 1) / time.Duration(c.tockHz)
}

// Duration converts ticks to a time.Duration, rounding down.
func (c *Clocks) Duration(t Ticks) time.Duration {
	hz := Ticks(c.cfg.TickHz)
	return time.Duration(t/hz)*time.Second + time.Duration(t%hz)*time.Second/time.Duration(hz)
}

// TicksFromDuration converts a non-negative time.Duration to ticks,
// rounding down.
func (c *Clocks) TicksFromDuration(d time.Duration) Ticks {
	if d < 0 {
		panic("clock: negative duration")
	}
	hz := uint64(c.cfg.TickHz)
	return Ticks(uint64(d/time.Second)*hz + uint64(d%time.Second)*hz/uint64(time.Second))
}

// InstantFromTime converts a wall-clock time to an absolute instant.
// Times before the Unix epoch are rejected.
func (c *Clocks) InstantFromTime(t time.Time) Instant {
	secs := t.Unix()
	if secs < 0 {
		panic("clock: time before the Unix epoch")
	}
	hz := uint64(c.cfg.TickHz)
	frac := uint64(t.Nanosecond()) * hz / uint64(time.Second)
	return AbsoluteInstant(Ticks(uint64(secs)*hz + frac))
}

// Time converts an absolute instant back to wall-clock time in UTC.
func (c *Clocks) Time(i Instant) time.Time {
	if !i.Absolute() {
		panic("clock: relative instant has no wall-clock time")
	}
	hz := uint64(c.cfg.TickHz)
	t := uint64(i.Ticks())
	return time.Unix(int64(t/hz), int64(t%hz*uint64(time.Second)/hz)).UTC()
}
