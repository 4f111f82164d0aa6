// Package capture runs the camera's periodic capture schedule on top of
// the low-power alarm.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sensorcam/core"
)

// ErrInvalidInterval is returned for capture intervals the alarm cannot
// schedule.
var ErrInvalidInterval = errors.New("invalid_capture_interval")

// Trigger takes one capture.
type Trigger interface {
	Capture(at core.Instant) error
}

// Config sets the capture cadence.
type Config struct {
	Interval    time.Duration
	FirstOffset time.Duration
}

// Service wakes the device once per interval and triggers a capture.
type Service struct {
	interval core.Ticks
	offset   core.Ticks

	clk     *core.Clocks
	tracker *core.RTC
	alarm   *core.Alarm
	exec    core.Executor
	trigger Trigger

	captures uint32
	failures uint32
}

// NewService creates a capture service. Both durations must be
// representable as ticks within the alarm's horizon.
func NewService(cfg Config, tracker *core.RTC, alarm *core.Alarm, exec core.Executor, trigger Trigger) (*Service, error) {
	clk := tracker.Clocks()
	if cfg.Interval <= 0 || cfg.FirstOffset < 0 {
		return nil, fmt.Errorf("%w: interval %s, first offset %s", ErrInvalidInterval, cfg.Interval, cfg.FirstOffset)
	}
	interval := clk.TicksFromDuration(cfg.Interval)
	offset := clk.TicksFromDuration(cfg.FirstOffset)
	if interval == 0 {
		return nil, fmt.Errorf("%w: interval %s shorter than a tick", ErrInvalidInterval, cfg.Interval)
	}
	if interval > clk.MaxHorizon() || offset > clk.MaxHorizon() {
		return nil, fmt.Errorf("%w: beyond the %s horizon", ErrInvalidInterval, clk.Duration(clk.MaxHorizon()))
	}

	return &Service{
		interval: interval,
		offset:   offset,
		clk:      clk,
		tracker:  tracker,
		alarm:    alarm,
		exec:     exec,
		trigger:  trigger,
	}, nil
}

// Run captures until ctx is done. Slots missed while a capture was running
// are skipped, not made up; a slot that passes while it is being scheduled
// is captured at once. A failed capture is logged and counted; it does
// not stop the schedule. Run returns ctx.Err() with the alarm reset.
func (s *Service) Run(ctx context.Context) error {
	defer s.alarm.Reset()

	next := s.tracker.Now().Add(s.offset)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// A slot that went by since next was computed leaves the alarm
		// idle; it is due, so capture right away.
		s.alarm.Schedule(next)
		if s.alarm.State() != core.StateIdle {
			s.exec.Wait(func() bool {
				return s.alarm.Fired() || ctx.Err() != nil
			})
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.alarm.Reset()

		now := s.tracker.Now()
		err := s.trigger.Capture(now)
		if err != nil {
			s.failures++
		} else {
			s.captures++
		}
		if core.IsDebugEnabled() {
			if err != nil {
				core.DebugAsync("[CAPTURE] failed at " + s.describe(now) + ": " + err.Error())
			} else {
				core.DebugAsync("[CAPTURE] done at " + s.describe(now))
			}
		}

		next = NextAfter(next, s.tracker.Now(), s.interval)
	}
}

// Stats returns the number of successful and failed captures
func (s *Service) Stats() (captures, failures uint32) {
	return s.captures, s.failures
}

func (s *Service) describe(at core.Instant) string {
	if at.Absolute() {
		return s.clk.Time(at).Format(time.RFC3339)
	}
	return at.String()
}

// NextAfter returns the first slot prev + k*interval, k >= 1, that lies
// strictly after now.
func NextAfter(prev, now core.Instant, interval core.Ticks) core.Instant {
	if interval == 0 {
		panic("capture: zero interval")
	}
	next := prev.Add(interval)
	if now.Before(next) {
		return next
	}
	missed := now.Sub(next)/interval + 1
	return next.Add(missed * interval)
}
