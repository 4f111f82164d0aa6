package hwsim

// Timer simulates a 16-bit timer in match-frequency mode: once started it
// raises SourceTimer every top counts until stopped.
type Timer struct {
	irq       *IRQ
	prescaler uint32
	maxCounts uint32
	top       uint32
	phase     uint64
	running   bool

	// Starts records every Start argument, oldest first.
	Starts []uint32
	stops  int
}

// Start implements core.TimerDriver
func (t *Timer) Start(counts uint32) {
	if counts == 0 || counts > t.maxCounts {
		panic("hwsim: timer started out of range")
	}
	t.irq.SetPending(SourceTimer, false)
	t.top = counts
	t.phase = 0
	t.running = true
	t.Starts = append(t.Starts, counts)
}

// Stop implements core.TimerDriver
func (t *Timer) Stop() {
	t.running = false
	t.phase = 0
	t.irq.SetPending(SourceTimer, false)
	t.stops++
}

// Running reports whether the timer is counting
func (t *Timer) Running() bool {
	return t.running
}

// Stops returns how many times Stop was called
func (t *Timer) Stops() int {
	return t.stops
}

func (t *Timer) periodCycles() uint64 {
	return uint64(t.prescaler) * uint64(t.top)
}

func (t *Timer) untilEvent() uint64 {
	if !t.running {
		return 0
	}
	return t.periodCycles() - t.phase
}

func (t *Timer) tick(cycles uint64) bool {
	if !t.running {
		return false
	}
	t.phase += cycles
	if t.phase < t.periodCycles() {
		return false
	}
	t.phase -= t.periodCycles()
	return true
}
