package core

// RTC keeps a monotonic "now" that survives deep sleep. The low part of the
// time is the hardware counter; the high part is the accumulator in
// retained memory, advanced by one overflow interval per RTC interrupt.
type RTC struct {
	clk   *Clocks
	drv   RTCDriver
	state *RTCState
	delay Delayer
}

// NewRTC binds the tracker to its hardware and retained state. Nothing is
// touched until Init.
func NewRTC(clk *Clocks, drv RTCDriver, mem RetainedMemory, delay Delayer) *RTC {
	if clk == nil || drv == nil || mem == nil || delay == nil {
		panic("rtc: missing dependency")
	}
	return &RTC{
		clk:   clk,
		drv:   drv,
		state: mem.RTCState(),
		delay: delay,
	}
}

// Clocks returns the clock tree the tracker converts with
func (r *RTC) Clocks() *Clocks { return r.clk }

// Enabled reports whether the RTC was already configured (warm start)
func (r *RTC) Enabled() bool {
	return r.drv.Enabled()
}

// Init starts the RTC. On a warm start with t == nil the running counter
// and the retained accumulator are kept, so elapsed time carries over. A
// cold start without t begins at relative instant zero. When t is given,
// time is set so that Now() reports t.
func (r *RTC) Init(t *Instant) {
	cs := Critical(IRQDisabled)
	defer cs.Release()

	warm := r.drv.Enabled()
	if !warm {
		cfg := r.clk.Config()
		r.drv.Configure(cfg.RTCPrescaler, cfg.RTCOverflowTocks)
	}

	switch {
	case t != nil:
		elapsed := r.clk.TocksToTicks(r.drv.Counter())
		// A pending overflow (counter possibly at zero) is added to the
		// base by its handler once interrupts are enabled again.
		if r.drv.OverflowPending() {
			elapsed += r.clk.OverflowTicks()
		}
		if elapsed > t.Ticks() {
			elapsed = t.Ticks()
		}
		r.state.Base = t.Earlier(elapsed)
	case !warm:
		r.state.Base = RelativeInstant(0)
	}

	if warm {
		DebugPrintln("[RTC] warm start, now=" + r.state.Base.String())
	} else {
		DebugPrintln("[RTC] cold start, now=" + r.state.Base.String())
	}
}

// Tocks reads the hardware counter. Two situations are ambiguous: a count
// of exactly zero (the overflow handler may or may not have run) and a set
// overflow flag whose handler is blocked by the caller's critical section.
// Both are resolved by unmasking interrupts for one tock and reading again.
//
// The result is never zero, may be added to the accumulator to get now, and
// N minus the result is the distance to the next overflow.
func (r *RTC) Tocks() uint32 {
	for {
		count := r.drv.Counter()
		if count != 0 && !r.drv.OverflowPending() {
			return count
		}

		RecordEvent(EvtTockHazard, StateIdle, count, 0)
		cs := Critical(IRQEnabled)
		r.delay.Delay(r.clk.TockPeriod())
		cs.Release()
	}
}

// Now returns the current instant.
func (r *RTC) Now() Instant {
	cs := Critical(IRQDisabled)
	defer cs.Release()

	// Tocks may briefly unmask interrupts and let the overflow handler
	// run, so the accumulator is read after it.
	tocks := r.Tocks()
	return r.state.Base.Add(r.clk.TocksToTicks(tocks))
}

// TimeUntilOverflow returns the ticks left before the next overflow
// interrupt. Interrupts must already be disabled.
func (r *RTC) TimeUntilOverflow() Ticks {
	mustHoldCritical("rtc: TimeUntilOverflow")
	tocks := r.Tocks()
	return r.clk.TocksToTicks(r.clk.OverflowTocks() - tocks)
}

// HandleOverflow is the body of the RTC overflow interrupt.
func (r *RTC) HandleOverflow() {
	r.state.Base = r.state.Base.Add(r.clk.OverflowTicks())
}
