//go:build !tinygo

package core

// flagIRQ stands in for the interrupt mask on regular Go. It keeps the
// enable bit so critical sections nest the same way they do on hardware,
// but there are no interrupt sources behind it. Host tests install a
// simulated controller instead.
type flagIRQ struct {
	disabled bool
}

func defaultIRQController() IRQController {
	return &flagIRQ{}
}

func (f *flagIRQ) state() IRQState {
	if f.disabled {
		return irqStateDisabled
	}
	return irqStateEnabled
}

// Disable masks interrupts and returns the previous state
func (f *flagIRQ) Disable() IRQState {
	prev := f.state()
	f.disabled = true
	return prev
}

// Enable unmasks interrupts and returns the previous state
func (f *flagIRQ) Enable() IRQState {
	prev := f.state()
	f.disabled = false
	return prev
}

// Restore puts back a state returned by Disable or Enable
func (f *flagIRQ) Restore(state IRQState) {
	f.disabled = state != irqStateEnabled
}

// Enabled reports whether interrupts are currently unmasked
func (f *flagIRQ) Enabled() bool {
	return !f.disabled
}
