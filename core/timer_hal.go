package core

// TimerDriver is the abstract countdown timer used for the fine phases of
// an alarm. One Start covers between 1 and TimerMaxCounts counts.
type TimerDriver interface {
	// Start (re)arms the timer to raise its overflow interrupt after
	// counts timer counts. A pending overflow flag is cleared first.
	Start(counts uint32)

	// Stop halts the timer, disables its interrupt and clears any
	// pending overflow flag.
	Stop()
}
