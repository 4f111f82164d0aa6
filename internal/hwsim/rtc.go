package hwsim

// RTC simulates a free-running counter clocked by the reference oscillator
// through a predivider. The counter wraps to zero after overflowTocks counts
// and raises SourceRTC.
type RTC struct {
	irq           *IRQ
	prescaler     uint32
	overflowTocks uint32
	phase         uint64 // oscillator cycles into the current period
	configured    int
}

// Configure implements core.RTCDriver
func (r *RTC) Configure(prescaler, overflowTocks uint32) {
	if prescaler == 0 || overflowTocks == 0 {
		panic("hwsim: RTC configured with zero divider")
	}
	r.prescaler = prescaler
	r.overflowTocks = overflowTocks
	r.phase = 0
	r.configured++
}

// Enabled implements core.RTCDriver
func (r *RTC) Enabled() bool {
	return r.prescaler != 0
}

// Counter implements core.RTCDriver
func (r *RTC) Counter() uint32 {
	if !r.Enabled() {
		return 0
	}
	return uint32(r.phase / uint64(r.prescaler))
}

// OverflowPending implements core.RTCDriver
func (r *RTC) OverflowPending() bool {
	return r.irq.Pending(SourceRTC)
}

// Configured returns how many times Configure was called
func (r *RTC) Configured() int {
	return r.configured
}

// SetCounter moves the counter to the start of count.
func (r *RTC) SetCounter(count uint32) {
	if count >= r.overflowTocks {
		panic("hwsim: RTC counter out of range")
	}
	r.phase = uint64(count) * uint64(r.prescaler)
}

// PowerOff stops the RTC, as after a full power loss.
func (r *RTC) PowerOff() {
	r.prescaler = 0
	r.overflowTocks = 0
	r.phase = 0
	r.irq.SetPending(SourceRTC, false)
}

func (r *RTC) periodCycles() uint64 {
	return uint64(r.prescaler) * uint64(r.overflowTocks)
}

// untilEvent returns the oscillator cycles to the next wrap, 0 if stopped.
func (r *RTC) untilEvent() uint64 {
	if !r.Enabled() {
		return 0
	}
	return r.periodCycles() - r.phase
}

// tick advances the counter and reports whether it wrapped.
func (r *RTC) tick(cycles uint64) bool {
	if !r.Enabled() {
		return false
	}
	r.phase += cycles
	if r.phase < r.periodCycles() {
		return false
	}
	r.phase -= r.periodCycles()
	return true
}
