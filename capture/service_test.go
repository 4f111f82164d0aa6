package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sensorcam/core"
	"sensorcam/internal/hwsim"
)

type recorder struct {
	board  *hwsim.Board
	cancel context.CancelFunc
	limit  int
	busy   time.Duration
	fail   func(n int) error

	at []core.Instant
}

func (r *recorder) Capture(at core.Instant) error {
	r.at = append(r.at, at)
	if r.busy > 0 {
		r.board.Sleep(r.busy)
	}
	if len(r.at) >= r.limit {
		r.cancel()
	}
	if r.fail != nil {
		return r.fail(len(r.at))
	}
	return nil
}

func bootBoard(t *testing.T) *hwsim.Board {
	t.Helper()
	b := hwsim.Boot(core.DefaultClockConfig, nil)
	t.Cleanup(b.Close)
	return b
}

func runService(t *testing.T, b *hwsim.Board, cfg Config, rec *recorder) *Service {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.board = b
	rec.cancel = cancel

	svc, err := NewService(cfg, b.Tracker, b.Alarm, b, rec)
	require.NoError(t, err)
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, core.StateIdle, b.Alarm.State())
	return svc
}

func TestServiceCapturesOnSchedule(t *testing.T) {
	b := bootBoard(t)
	b.RTC.SetCounter(2)
	start := b.Tracker.Now()

	rec := &recorder{limit: 5}
	svc := runService(t, b, Config{Interval: 10 * time.Minute, FirstOffset: 30 * time.Second}, rec)

	require.Len(t, rec.at, 5)
	first := start.Add(b.Clocks.TicksFromDuration(30 * time.Second))
	step := b.Clocks.TicksFromDuration(10 * time.Minute)
	for i, at := range rec.at {
		want := first.Add(core.Ticks(i) * step)
		require.False(t, at.Before(want), "capture %d early", i)
		require.LessOrEqual(t, at.Sub(want), core.Ticks(2), "capture %d late", i)
	}

	captures, failures := svc.Stats()
	require.Equal(t, uint32(5), captures)
	require.Zero(t, failures)
}

func TestServiceSpansRTCOverflows(t *testing.T) {
	b := bootBoard(t)
	b.RTC.SetCounter(2)
	start := b.Tracker.Now()

	rec := &recorder{limit: 3}
	runService(t, b, Config{Interval: 3 * time.Hour}, rec)

	step := b.Clocks.TicksFromDuration(3 * time.Hour)
	for i, at := range rec.at {
		want := start.Add(core.Ticks(i) * step)
		require.LessOrEqual(t, at.Sub(want), core.Ticks(2), "capture %d", i)
	}
	require.Greater(t, b.IRQ.Taken(hwsim.SourceRTC), 5)
}

func TestServiceSkipsMissedSlots(t *testing.T) {
	b := bootBoard(t)
	b.RTC.SetCounter(2)
	start := b.Tracker.Now()

	rec := &recorder{limit: 3, busy: 150 * time.Second}
	runService(t, b, Config{Interval: time.Minute, FirstOffset: time.Minute}, rec)

	// A capture takes two and a half intervals, so two slots are skipped.
	step := b.Clocks.TicksFromDuration(time.Minute)
	for i, at := range rec.at {
		want := start.Add(core.Ticks(1+3*i) * step)
		require.LessOrEqual(t, at.Sub(want), core.Ticks(2), "capture %d", i)
	}
}

func TestServiceKeepsGoingAfterFailure(t *testing.T) {
	b := bootBoard(t)
	rec := &recorder{limit: 4, fail: func(n int) error {
		if n%2 == 1 {
			return errors.New("sensor busy")
		}
		return nil
	}}
	svc := runService(t, b, Config{Interval: time.Minute}, rec)

	captures, failures := svc.Stats()
	require.Equal(t, uint32(2), captures)
	require.Equal(t, uint32(2), failures)
}

func TestServiceStopsWhenCanceled(t *testing.T) {
	b := bootBoard(t)
	svc, err := NewService(Config{Interval: time.Minute}, b.Tracker, b.Alarm, b, &recorder{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, core.StateIdle, b.Alarm.State())
	require.False(t, b.Timer.Running())
}

func TestNewServiceRejectsBadIntervals(t *testing.T) {
	b := bootBoard(t)
	for _, cfg := range []Config{
		{},
		{Interval: -time.Second},
		{Interval: time.Millisecond},
		{Interval: time.Minute, FirstOffset: -time.Second},
		{Interval: 10 * 365 * 24 * time.Hour},
	} {
		_, err := NewService(cfg, b.Tracker, b.Alarm, b, &recorder{})
		require.ErrorIs(t, err, ErrInvalidInterval, "%+v", cfg)
	}
}

func TestNextAfter(t *testing.T) {
	at := core.RelativeInstant
	for _, tc := range []struct {
		prev, now, want core.Ticks
	}{
		{prev: 100, now: 105, want: 110},
		{prev: 100, now: 109, want: 110},
		{prev: 100, now: 110, want: 120},
		{prev: 100, now: 135, want: 140},
		{prev: 100, now: 50, want: 110},
	} {
		require.Equal(t, at(tc.want), NextAfter(at(tc.prev), at(tc.now), 10), "prev=%d now=%d", tc.prev, tc.now)
	}
	require.Panics(t, func() { NextAfter(at(0), at(0), 0) })
}

// driftingRTC lets time run on between counter reads, so every Now() is
// later than the previous one.
type driftingRTC struct {
	*hwsim.RTC
	world *hwsim.World
	step  uint64
}

func (d *driftingRTC) Counter() uint32 {
	c := d.RTC.Counter()
	d.world.Advance(d.step)
	return c
}

func TestServiceCapturesSlotThatPassedWhileScheduling(t *testing.T) {
	b := bootBoard(t)
	b.RTC.SetCounter(2)

	// One tick of oscillator cycles per counter read.
	cfg := core.DefaultClockConfig
	drv := &driftingRTC{RTC: b.RTC, world: b.World, step: uint64(cfg.RefOscHz / cfg.TickHz)}
	tracker := core.NewRTC(b.Clocks, drv, b.Mem, b.World)
	alarm := core.NewAlarm(tracker, b.Timer)
	b.Attach(&core.Dispatcher{RTC: tracker, Alarm: alarm, Timer: b.Timer})
	tracker.Init(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{board: b, cancel: cancel, limit: 2}

	svc, err := NewService(Config{Interval: time.Minute}, tracker, alarm, b, rec)
	require.NoError(t, err)
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)

	require.Len(t, rec.at, 2)
	require.Less(t, b.Elapsed(), 2*time.Minute, "the first slot must not wait for a wakeup that never comes")
	captures, _ := svc.Stats()
	require.Equal(t, uint32(2), captures)
}

func TestServiceLogsCaptures(t *testing.T) {
	var lines []string
	core.SetDebugWriter(func(s string) { lines = append(lines, s) })
	core.SetDebugEnabled(true)
	t.Cleanup(func() {
		core.SetDebugEnabled(false)
		core.SetDebugWriter(func(string) {})
	})

	b := bootBoard(t)
	rec := &recorder{limit: 2, fail: func(n int) error {
		if n == 2 {
			return errors.New("sensor busy")
		}
		return nil
	}}
	runService(t, b, Config{Interval: time.Minute}, rec)

	var captureLines []string
	for _, l := range lines {
		if strings.HasPrefix(l, "[CAPTURE]") {
			captureLines = append(captureLines, l)
		}
	}
	require.Len(t, captureLines, 2)
	require.Contains(t, captureLines[0], "done at rel:")
	require.Contains(t, captureLines[1], "failed at rel:")
	require.Contains(t, captureLines[1], "sensor busy")
}
