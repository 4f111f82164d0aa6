package hwsim

import (
	"time"

	"sensorcam/core"
)

// DefaultWaitLimit bounds a single Wait in simulated time.
const DefaultWaitLimit = 5 * 365 * 24 * time.Hour

// Retained is simulated retained memory.
type Retained struct {
	state core.RTCState
}

// RTCState implements core.RetainedMemory
func (m *Retained) RTCState() *core.RTCState {
	return &m.state
}

// Scramble fills retained memory with garbage, like SRAM after power-up.
func (m *Retained) Scramble() {
	m.state.Base = core.Instant(0x5A5A_A5A5_5A5A_A5A5)
}

// World is the simulated board: one oscillator driving the RTC and the
// timer, the interrupt controller and retained memory. It also implements
// core.Executor by advancing simulated time.
type World struct {
	IRQ   *IRQ
	RTC   *RTC
	Timer *Timer
	Mem   *Retained

	// WaitLimit bounds a single Wait; exceeding it panics.
	WaitLimit time.Duration

	refHz  uint64
	cycles uint64
}

// New builds a powered-off board for the given clock tree.
func New(cfg core.ClockConfig) *World {
	irq := &IRQ{}
	return &World{
		IRQ:       irq,
		RTC:       &RTC{irq: irq},
		Timer:     &Timer{irq: irq, prescaler: cfg.TimerPrescaler, maxCounts: cfg.TimerMaxCounts},
		Mem:       &Retained{},
		WaitLimit: DefaultWaitLimit,
		refHz:     uint64(cfg.RefOscHz),
	}
}

// Install makes the simulated controller the global one and returns a
// function that puts the default back.
func (w *World) Install() func() {
	core.SetIRQController(w.IRQ)
	return func() { core.SetIRQController(nil) }
}

// Attach routes the simulated interrupt lines to d.
func (w *World) Attach(d *core.Dispatcher) {
	w.IRQ.Handle(SourceRTC, d.OnRTCOverflow)
	w.IRQ.Handle(SourceTimer, d.OnTimerOverflow)
}

// Elapsed returns the simulated time since New
func (w *World) Elapsed() time.Duration {
	secs := w.cycles / w.refHz
	rem := w.cycles % w.refHz
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/w.refHz)
}

// cyclesFor converts d to oscillator cycles, rounding up.
func (w *World) cyclesFor(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return secs*w.refHz + (rem*w.refHz+uint64(time.Second)-1)/uint64(time.Second)
}

// Advance runs the oscillator for cycles, raising interrupts at the exact
// cycle they occur.
func (w *World) Advance(cycles uint64) {
	for cycles > 0 {
		step := cycles
		if n := w.RTC.untilEvent(); n > 0 && n < step {
			step = n
		}
		if n := w.Timer.untilEvent(); n > 0 && n < step {
			step = n
		}
		w.cycles += step
		cycles -= step

		// Both peripherals see the same cycles before any handler runs.
		rtcWrapped := w.RTC.tick(step)
		timerWrapped := w.Timer.tick(step)
		if rtcWrapped {
			w.IRQ.Raise(SourceRTC)
		}
		if timerWrapped {
			w.IRQ.Raise(SourceTimer)
		}
	}
}

// Step advances to the next hardware event and returns the elapsed time.
func (w *World) Step() time.Duration {
	next := w.nextEvent()
	if next == 0 {
		panic("hwsim: no hardware running")
	}
	before := w.cycles
	w.Advance(next)
	return time.Duration((w.cycles - before) * uint64(time.Second) / w.refHz)
}

func (w *World) nextEvent() uint64 {
	next := w.RTC.untilEvent()
	if n := w.Timer.untilEvent(); n > 0 && (next == 0 || n < next) {
		next = n
	}
	return next
}

// Delay implements core.Delayer
func (w *World) Delay(d time.Duration) {
	w.Advance(w.cyclesFor(d))
}

// Sleep implements core.Executor
func (w *World) Sleep(d time.Duration) {
	w.Advance(w.cyclesFor(d))
}

// Wait implements core.Executor by jumping from one hardware event to the
// next until cond holds.
func (w *World) Wait(cond func() bool) {
	limit := w.cycles + w.cyclesFor(w.WaitLimit)
	for !cond() {
		if w.cycles >= limit {
			panic("hwsim: wait limit exceeded")
		}
		next := w.nextEvent()
		if next == 0 {
			panic("hwsim: wait with no hardware running")
		}
		w.Advance(next)
	}
}

// RunUntil is Wait bounded by d. It reports whether cond became true.
func (w *World) RunUntil(cond func() bool, d time.Duration) bool {
	limit := w.cycles + w.cyclesFor(d)
	for !cond() {
		next := w.nextEvent()
		if next == 0 || w.cycles+next > limit {
			w.Advance(limit - w.cycles)
			return cond()
		}
		w.Advance(next)
	}
	return true
}
