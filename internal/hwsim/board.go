package hwsim

import "sensorcam/core"

// Board is a simulated board with the tracker and the alarm wired to the
// simulated interrupt lines.
type Board struct {
	*World
	Clocks     *core.Clocks
	Tracker    *core.RTC
	Alarm      *core.Alarm
	Dispatcher *core.Dispatcher

	restore func()
}

// Boot powers a fresh board up and starts the RTC. The simulated interrupt
// controller is installed globally until Close.
func Boot(cfg core.ClockConfig, t *core.Instant) *Board {
	w := New(cfg)
	w.Mem.Scramble()
	b := &Board{World: w, Clocks: core.MustClocks(cfg)}
	b.restore = w.Install()
	b.Restart(t)
	return b
}

// Restart runs the firmware start-up sequence again on the same hardware,
// as after a warm reset: new tracker and alarm objects, same RTC and
// retained memory. The timer does not survive a reset.
func (b *Board) Restart(t *core.Instant) {
	b.Timer.Stop()
	b.Tracker = core.NewRTC(b.Clocks, b.RTC, b.Mem, b.World)
	b.Alarm = core.NewAlarm(b.Tracker, b.Timer)
	b.Dispatcher = &core.Dispatcher{RTC: b.Tracker, Alarm: b.Alarm, Timer: b.Timer}
	b.Attach(b.Dispatcher)
	b.Tracker.Init(t)
}

// Close uninstalls the simulated interrupt controller
func (b *Board) Close() {
	if b.restore != nil {
		b.restore()
		b.restore = nil
	}
}
