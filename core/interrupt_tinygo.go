//go:build tinygo

package core

import "runtime/interrupt"

// runtimeIRQ drives the global interrupt mask through TinyGo's runtime.
// On Cortex-M the state is the PRIMASK value, so zero means enabled.
type runtimeIRQ struct{}

func defaultIRQController() IRQController {
	return runtimeIRQ{}
}

// Disable masks interrupts and returns the previous state
func (runtimeIRQ) Disable() IRQState {
	return IRQState(interrupt.Disable())
}

// Enable unmasks interrupts and returns the previous state
func (runtimeIRQ) Enable() IRQState {
	prev := interrupt.Disable()
	interrupt.Restore(interrupt.State(irqStateEnabled))
	return IRQState(prev)
}

// Restore puts back a state returned by Disable or Enable
func (runtimeIRQ) Restore(state IRQState) {
	interrupt.Restore(interrupt.State(state))
}

// Enabled reports whether interrupts are currently unmasked
func (runtimeIRQ) Enabled() bool {
	state := interrupt.Disable()
	interrupt.Restore(state)
	return IRQState(state) == irqStateEnabled
}
