package core

// AlarmState is a stage of the composite alarm. The stages run in a fixed
// order; stages whose phase has nothing to count are skipped.
type AlarmState uint8

const (
	StateIdle AlarmState = iota
	StateRTCPrepare
	StateRTC
	StateTimerIntervalPrepare
	StateTimerInterval
	StateTimerRemainderPrepare
	StateTimerRemainder
	StateFired
	numAlarmStates
)

func (s AlarmState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRTCPrepare:
		return "rtc_prepare"
	case StateRTC:
		return "rtc"
	case StateTimerIntervalPrepare:
		return "timer_interval_prepare"
	case StateTimerInterval:
		return "timer_interval"
	case StateTimerRemainderPrepare:
		return "timer_remainder_prepare"
	case StateTimerRemainder:
		return "timer_remainder"
	case StateFired:
		return "fired"
	}
	return "invalid(" + itoa(int(s)) + ")"
}

// IRQSource identifies the interrupt an active stage waits for.
type IRQSource uint8

const (
	SourceNone IRQSource = iota
	SourceRTC
	SourceTimer
)

type stageKind uint8

const (
	stageIdle stageKind = iota
	stagePrepare
	stageActive
	stageFired
)

type alarmPhase uint8

const (
	phaseNone alarmPhase = iota
	phaseRTC
	phaseTimerInterval
	phaseTimerRemainder
)

// transition describes one stage. A prepare stage arms its phase and moves
// to next, or jumps to skip when the phase has nothing to count. An active
// stage counts one interrupt from source per visit and moves to next when
// its phase counter reaches zero.
type transition struct {
	kind   stageKind
	phase  alarmPhase
	source IRQSource
	next   AlarmState
	skip   AlarmState
}

var transitions = [numAlarmStates]transition{
	StateIdle:                  {kind: stageIdle, next: StateIdle},
	StateRTCPrepare:            {kind: stagePrepare, phase: phaseRTC, next: StateRTC, skip: StateTimerIntervalPrepare},
	StateRTC:                   {kind: stageActive, phase: phaseRTC, source: SourceRTC, next: StateTimerIntervalPrepare},
	StateTimerIntervalPrepare:  {kind: stagePrepare, phase: phaseTimerInterval, next: StateTimerInterval, skip: StateTimerRemainderPrepare},
	StateTimerInterval:         {kind: stageActive, phase: phaseTimerInterval, source: SourceTimer, next: StateTimerRemainderPrepare},
	StateTimerRemainderPrepare: {kind: stagePrepare, phase: phaseTimerRemainder, next: StateTimerRemainder, skip: StateFired},
	StateTimerRemainder:        {kind: stageActive, phase: phaseTimerRemainder, source: SourceTimer, next: StateFired},
	StateFired:                 {kind: stageFired, next: StateFired},
}

// alarmRecord is the single scheduling record. Mainline code replaces it
// wholesale inside a critical section; interrupt handlers advance it in
// place.
type alarmRecord struct {
	rtcCount           uint16
	timerIntervalCount uint16
	timerRemainder     uint16
	state              AlarmState
}

// Alarm is a single-shot wakeup built from the RTC overflow interrupt for
// the coarse part of the wait and the countdown timer for the rest.
type Alarm struct {
	rtc   *RTC
	clk   *Clocks
	timer TimerDriver
	rec   alarmRecord
}

// NewAlarm creates an idle alarm on top of a running RTC tracker.
func NewAlarm(rtc *RTC, timer TimerDriver) *Alarm {
	if rtc == nil || timer == nil {
		panic("alarm: missing dependency")
	}
	return &Alarm{rtc: rtc, clk: rtc.Clocks(), timer: timer}
}

// Schedule arms the alarm for deadline, replacing any previous deadline. A
// deadline in the past cancels the alarm instead of firing it. Deadline
// must be of the same kind as the RTC's notion of now and no further away
// than Clocks.MaxHorizon.
func (a *Alarm) Schedule(deadline Instant) {
	cs := Critical(IRQDisabled)
	defer cs.Release()

	now := a.rtc.Now()
	if deadline.Before(now) {
		a.timer.Stop()
		a.rec = alarmRecord{state: StateIdle}
		RecordEvent(EvtSchedulePast, StateIdle, uint32(now.Sub(deadline)), 0)
		DebugPrintln("[ALARM] deadline " + deadline.String() + " already passed, now " + now.String())
		return
	}

	delta := deadline.Sub(now)
	if delta > a.clk.MaxHorizon() {
		panic("alarm: deadline beyond schedulable horizon")
	}

	rec := a.plan(delta, a.rtc.TimeUntilOverflow())

	a.timer.Stop()
	a.rec = rec
	RecordEvent(EvtSchedule, StateRTCPrepare, uint32(rec.rtcCount), uint32(rec.timerIntervalCount)<<16|uint32(rec.timerRemainder))
	a.advance()
}

// plan splits delta into whole RTC overflow intervals, whole maximal timer
// intervals and a final timer remainder. When delta reaches the next
// overflow, the partial interval up to it counts as the first RTC interval
// so the timer phases start on an overflow boundary. Less than a tick
// before an overflow untilOverflow floors to zero, and even a zero delta
// then waits for that overflow.
func (a *Alarm) plan(delta, untilOverflow Ticks) alarmRecord {
	rec := alarmRecord{state: StateRTCPrepare}

	if delta >= untilOverflow {
		delta -= untilOverflow
		interval := a.clk.OverflowTicks()
		// delta <= MaxHorizon = (MaxRTCIntervals-1) intervals, so the
		// quotient plus one fits 16 bits.
		rec.rtcCount = uint16(1 + delta/interval)
		delta %= interval
	}

	counts := a.clk.TicksToTimerCounts(delta)
	maxCounts := uint64(a.clk.TimerMaxCounts())
	// NewClocks proved counts per overflow interval / maxCounts <= 0xFFFF.
	rec.timerIntervalCount = uint16(counts / maxCounts)
	rec.timerRemainder = uint16(counts % maxCounts)
	return rec
}

// advance runs the FSM until it waits for an interrupt or stops. Each call
// consumes at most one interrupt: the one that caused it.
func (a *Alarm) advance() {
	for {
		tr := &transitions[a.rec.state]
		switch tr.kind {
		case stageIdle:
			return

		case stageFired:
			a.timer.Stop()
			RecordEvent(EvtFired, StateFired, 0, 0)
			return

		case stagePrepare:
			if a.pending(tr.phase) == 0 {
				a.rec.state = tr.skip
				continue
			}
			a.arm(tr.phase)
			a.rec.state = tr.next
			return

		case stageActive:
			if a.consume(tr.phase) > 0 {
				a.arm(tr.phase)
				return
			}
			if tr.phase != phaseRTC {
				a.timer.Stop()
			}
			a.rec.state = tr.next
			// Arm the next phase right away; its prepare stage does not
			// wait for an interrupt.
			continue
		}
	}
}

// pending returns how many interrupts the phase still waits for.
func (a *Alarm) pending(p alarmPhase) uint16 {
	switch p {
	case phaseRTC:
		return a.rec.rtcCount
	case phaseTimerInterval:
		return a.rec.timerIntervalCount
	case phaseTimerRemainder:
		if a.rec.timerRemainder > 0 {
			return 1
		}
	}
	return 0
}

// consume counts one interrupt against the phase and returns what is left.
func (a *Alarm) consume(p alarmPhase) uint16 {
	switch p {
	case phaseRTC:
		a.rec.rtcCount--
		return a.rec.rtcCount
	case phaseTimerInterval:
		a.rec.timerIntervalCount--
		return a.rec.timerIntervalCount
	case phaseTimerRemainder:
		a.rec.timerRemainder = 0
	}
	return 0
}

// arm programs the hardware for one pass of the phase. The RTC is always
// counting, so its phase needs nothing.
func (a *Alarm) arm(p alarmPhase) {
	switch p {
	case phaseTimerInterval:
		a.timer.Start(a.clk.TimerMaxCounts())
	case phaseTimerRemainder:
		a.timer.Start(uint32(a.rec.timerRemainder))
	}
}

// ISRRTCInterested reports whether the current stage waits for the RTC
// overflow interrupt.
func (a *Alarm) ISRRTCInterested() bool {
	return transitions[a.rec.state].source == SourceRTC
}

// ISRTimerInterested reports whether the current stage waits for the
// countdown timer interrupt.
func (a *Alarm) ISRTimerInterested() bool {
	return transitions[a.rec.state].source == SourceTimer
}

// ISRRTC advances the alarm for one RTC overflow. Only call it from the
// RTC interrupt when ISRRTCInterested is true.
func (a *Alarm) ISRRTC() {
	if !a.ISRRTCInterested() {
		panic("alarm: RTC interrupt in state " + a.rec.state.String())
	}
	a.advance()
}

// ISRTimer advances the alarm for one timer overflow. Only call it from
// the timer interrupt when ISRTimerInterested is true.
func (a *Alarm) ISRTimer() {
	if !a.ISRTimerInterested() {
		panic("alarm: timer interrupt in state " + a.rec.state.String())
	}
	a.advance()
}

// State returns the current stage
func (a *Alarm) State() AlarmState {
	cs := Critical(IRQDisabled)
	defer cs.Release()
	return a.rec.state
}

// Fired reports whether the deadline has been reached.
func (a *Alarm) Fired() bool {
	return a.State() == StateFired
}

// Plan returns what is left of the current schedule: RTC overflows, whole
// timer intervals and the final timer remainder in counts.
func (a *Alarm) Plan() (rtcCount, timerIntervals, timerRemainder uint16) {
	cs := Critical(IRQDisabled)
	defer cs.Release()
	return a.rec.rtcCount, a.rec.timerIntervalCount, a.rec.timerRemainder
}

// Reset cancels the alarm from any state. The timer is silenced and its
// pending interrupt cleared, so the old deadline can no longer fire.
func (a *Alarm) Reset() {
	cs := Critical(IRQDisabled)
	defer cs.Release()

	a.timer.Stop()
	a.rec = alarmRecord{state: StateIdle}
	RecordEvent(EvtReset, StateIdle, 0, 0)
}
