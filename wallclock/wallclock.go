// Package wallclock seeds the RTC tracker with calendar time from a
// battery-backed external clock chip.
package wallclock

import (
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds3231"

	"sensorcam/core"
)

var (
	// ErrClockRead is returned when the external clock cannot be read.
	ErrClockRead = errors.New("wallclock_read_failed")
	// ErrClockWrite is returned when the external clock cannot be set.
	ErrClockWrite = errors.New("wallclock_write_failed")
)

// Source is a calendar clock that can tell whether its time is trustworthy.
type Source interface {
	ReadTime() (time.Time, error)
	IsTimeValid() bool
}

// Sink is a calendar clock that can be set.
type Sink interface {
	SetTime(t time.Time) error
}

// NewDS3231 returns the DS3231 on bus. The bus must already be configured.
func NewDS3231(bus drivers.I2C) *ds3231.Device {
	dev := ds3231.New(bus)
	dev.Configure()
	return &dev
}

// Seed reads src and returns the absolute instant to start the tracker at.
// It returns nil and no error when src has lost its time, so the tracker
// falls back to relative time.
func Seed(clk *core.Clocks, src Source) (*core.Instant, error) {
	t, err := src.ReadTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClockRead, err)
	}
	if !src.IsTimeValid() {
		core.DebugPrintln("[WALLCLOCK] oscillator stopped, time not valid")
		return nil, nil
	}
	if t.Unix() < 0 {
		return nil, fmt.Errorf("%w: time %s before epoch", ErrClockRead, t.Format(time.RFC3339))
	}

	at := clk.InstantFromTime(t)
	core.DebugPrintln("[WALLCLOCK] seeded " + t.Format(time.RFC3339))
	return &at, nil
}

// Sync writes the tracker's idea of now back to dst. Now must be absolute.
func Sync(clk *core.Clocks, dst Sink, now core.Instant) error {
	if !now.Absolute() {
		return fmt.Errorf("%w: now is relative (%s)", ErrClockWrite, now)
	}
	if err := dst.SetTime(clk.Time(now)); err != nil {
		return fmt.Errorf("%w: %v", ErrClockWrite, err)
	}
	return nil
}
