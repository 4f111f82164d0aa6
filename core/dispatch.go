package core

// Dispatcher routes the two hardware vectors to the tracker and the alarm.
// Targets call OnRTCOverflow and OnTimerOverflow from their interrupt
// handlers, with interrupts disabled.
type Dispatcher struct {
	RTC   *RTC
	Alarm *Alarm
	Timer TimerDriver
}

// OnRTCOverflow handles the RTC overflow interrupt. The accumulator is
// advanced before the alarm looks at the time.
func (d *Dispatcher) OnRTCOverflow() {
	d.RTC.HandleOverflow()
	if d.Alarm == nil {
		return
	}
	interested := d.Alarm.ISRRTCInterested()
	RecordEvent(EvtRTCOverflow, d.Alarm.rec.state, boolToU32(interested), 0)
	if interested {
		d.Alarm.ISRRTC()
	}
}

// OnTimerOverflow handles the countdown timer interrupt. An interrupt that
// no stage waits for silences the timer.
func (d *Dispatcher) OnTimerOverflow() {
	if d.Alarm != nil && d.Alarm.ISRTimerInterested() {
		RecordEvent(EvtTimerOverflow, d.Alarm.rec.state, 1, 0)
		d.Alarm.ISRTimer()
		return
	}

	var state AlarmState
	if d.Alarm != nil {
		state = d.Alarm.rec.state
	}
	RecordEvent(EvtSpurious, state, 0, 0)
	if d.Timer != nil {
		d.Timer.Stop()
	}
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
