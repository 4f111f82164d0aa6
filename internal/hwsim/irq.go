// Package hwsim simulates the RTC, the countdown timer, the interrupt
// controller and retained memory of the camera board, so the scheduler can
// be exercised on the host with exact, repeatable timing.
package hwsim

import "sensorcam/core"

// Source is a simulated interrupt line.
type Source uint8

const (
	SourceRTC Source = iota
	SourceTimer
	numSources
)

const (
	stateEnabled  core.IRQState = 0
	stateDisabled core.IRQState = 1
)

// IRQ is a single-priority interrupt controller. A raised line stays
// pending while interrupts are masked and is taken as soon as they are
// unmasked. Handlers run with interrupts masked and never nest.
type IRQ struct {
	disabled  bool
	inHandler bool
	pending   [numSources]bool
	handlers  [numSources]func()
	taken     [numSources]int
}

// Handle installs the handler for src.
func (q *IRQ) Handle(src Source, fn func()) {
	q.handlers[src] = fn
}

// Raise sets the pending flag of src and delivers it if possible.
func (q *IRQ) Raise(src Source) {
	q.pending[src] = true
	q.deliver()
}

// SetPending changes the pending flag of src without delivering it.
func (q *IRQ) SetPending(src Source, pending bool) {
	q.pending[src] = pending
}

// Pending reports whether src is raised but not yet handled
func (q *IRQ) Pending(src Source) bool {
	return q.pending[src]
}

// Taken returns how many times the handler of src has run
func (q *IRQ) Taken(src Source) int {
	return q.taken[src]
}

func (q *IRQ) state() core.IRQState {
	if q.disabled {
		return stateDisabled
	}
	return stateEnabled
}

// Disable masks interrupts
func (q *IRQ) Disable() core.IRQState {
	prev := q.state()
	q.disabled = true
	return prev
}

// Enable unmasks interrupts and takes whatever is pending
func (q *IRQ) Enable() core.IRQState {
	prev := q.state()
	q.disabled = false
	q.deliver()
	return prev
}

// Restore puts back a previous state
func (q *IRQ) Restore(state core.IRQState) {
	q.disabled = state != stateEnabled
	q.deliver()
}

// Enabled reports whether interrupts are unmasked
func (q *IRQ) Enabled() bool {
	return !q.disabled
}

func (q *IRQ) deliver() {
	for !q.disabled && !q.inHandler {
		src, ok := q.next()
		if !ok {
			return
		}
		q.pending[src] = false
		q.taken[src]++

		q.disabled = true
		q.inHandler = true
		if h := q.handlers[src]; h != nil {
			h()
		}
		q.inHandler = false
		q.disabled = false
	}
}

// next picks the pending line with the lowest number.
func (q *IRQ) next() (Source, bool) {
	for src := Source(0); src < numSources; src++ {
		if q.pending[src] {
			return src, true
		}
	}
	return 0, false
}
