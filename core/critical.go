package core

// IRQState is the opaque global interrupt state captured by a controller.
// The encoding follows Cortex-M PRIMASK: zero means interrupts are enabled.
type IRQState uintptr

const (
	irqStateEnabled  IRQState = 0
	irqStateDisabled IRQState = 1
)

// IRQController abstracts the global interrupt enable bit.
type IRQController interface {
	// Disable masks interrupts and returns the state before the call.
	Disable() IRQState

	// Enable unmasks interrupts and returns the state before the call.
	// Pending interrupts are taken as soon as they are unmasked.
	Enable() IRQState

	// Restore puts back a state previously returned by Disable or Enable.
	Restore(state IRQState)

	// Enabled reports whether interrupts are currently unmasked.
	Enabled() bool
}

// Global controller used by every critical section.
var irqController = defaultIRQController()

// SetIRQController is called by target or test code to replace the
// interrupt controller. Passing nil restores the build default.
func SetIRQController(c IRQController) {
	if c == nil {
		c = defaultIRQController()
	}
	irqController = c
}

// InterruptsEnabled reports the current global interrupt state
func InterruptsEnabled() bool {
	return irqController.Enabled()
}

// IRQMode is the interrupt state forced by a critical section.
type IRQMode uint8

const (
	IRQDisabled IRQMode = iota
	IRQEnabled
)

// CriticalSection is a scoped interrupt guard. It records the state found
// on entry and puts exactly that state back on Release, so guards nest:
//
//	cs := Critical(IRQDisabled)
//	defer cs.Release()
type CriticalSection struct {
	prev IRQState
	held bool
}

// Critical captures the current interrupt state and forces mode.
func Critical(mode IRQMode) CriticalSection {
	var prev IRQState
	if mode == IRQEnabled {
		prev = irqController.Enable()
	} else {
		prev = irqController.Disable()
	}
	return CriticalSection{prev: prev, held: true}
}

// Release restores the state captured by Critical. Only the first call
// has an effect, so an early Release followed by a deferred one is safe.
func (cs *CriticalSection) Release() {
	if !cs.held {
		return
	}
	cs.held = false
	irqController.Restore(cs.prev)
}

// mustHoldCritical panics when called with interrupts enabled.
func mustHoldCritical(who string) {
	if irqController.Enabled() {
		panic(who + ": called with interrupts enabled")
	}
}
