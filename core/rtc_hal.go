package core

// RTCDriver is the abstract RTC counter peripheral that the time tracker
// uses. The counter is free running in [0, N-1]; on reaching N it wraps
// to zero and raises the overflow interrupt.
type RTCDriver interface {
	// Configure programs the predivider and the counter period N and
	// starts counting from zero. The overflow interrupt is left enabled.
	Configure(prescaler, overflowTocks uint32)

	// Enabled reports whether the control register already holds a
	// non-zero configuration, i.e. the RTC survived a warm restart.
	Enabled() bool

	// Counter reads the current count
	Counter() uint32

	// OverflowPending reports whether the overflow interrupt flag is set
	// and its handler has not run yet.
	OverflowPending() bool
}

// RTCState is the part of "now" that lives outside the counter. It must be
// placed in memory that is retained across deep sleep and that the runtime
// does not zero on a warm start.
type RTCState struct {
	Base Instant
}

// RetainedMemory hands out the retained RTCState of the current power domain.
type RetainedMemory interface {
	RTCState() *RTCState
}
