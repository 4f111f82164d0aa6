//go:build samd51

package main

import (
	"device/arm"
	"runtime/interrupt"
	"time"
)

// Executor runs the firmware's single task on top of TinyGo's scheduler.
type Executor struct{}

// Delay implements core.Delayer. It spins with interrupts enabled.
func (Executor) Delay(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

// Sleep implements core.Executor
func (Executor) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Wait implements core.Executor. The condition is checked with interrupts
// masked so that a wakeup between the check and WFI is not lost: WFI
// returns on a pending interrupt even while PRIMASK is set.
func (Executor) Wait(cond func() bool) {
	for {
		state := interrupt.Disable()
		if cond() {
			interrupt.Restore(state)
			return
		}
		arm.Asm("wfi")
		interrupt.Restore(state)
	}
}
