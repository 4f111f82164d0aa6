package core

import "time"

// Delayer busy-waits with interrupts enabled.
type Delayer interface {
	Delay(d time.Duration)
}

// Executor is the cooperative task executor the firmware runs on.
type Executor interface {
	Delayer

	// Sleep suspends the current task for d, yielding the CPU.
	Sleep(d time.Duration)

	// Wait suspends the current task until cond returns true.
	Wait(cond func() bool)
}
