package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a scheduler event for post-mortem analysis
type Event struct {
	Kind   uint8  // Event kind code
	State  uint8  // Alarm state after the event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event kind codes
const (
	EvtSchedule      = 1 // Schedule armed a deadline
	EvtSchedulePast  = 2 // Schedule got a deadline in the past
	EvtRTCOverflow   = 3 // RTC overflow interrupt
	EvtTimerOverflow = 4 // Countdown timer interrupt
	EvtFired         = 5 // Alarm reached Fired
	EvtReset         = 6 // Alarm reset
	EvtTockHazard    = 7 // Tocks() had to wait out an overflow
	EvtSpurious      = 8 // Timer interrupt nobody was waiting for
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	eventRing     [EventRingSize]Event
	eventRingHead uint8

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking).
// Falls back to DebugPrintln when the async worker was never started.
func DebugAsync(msg string) {
	if !debugEnabled {
		return
	}
	if debugChan == nil {
		DebugPrintln(msg)
		return
	}
	select {
	case debugChan <- msg:
	default:
		// Channel full, drop message
	}
}

// RecordEvent stores an event in the ring buffer. It does not allocate and
// is safe to call from interrupt handlers.
func RecordEvent(kind uint8, state AlarmState, value1, value2 uint32) {
	cs := Critical(IRQDisabled)
	idx := eventRingHead
	eventRing[idx] = Event{
		Kind:   kind,
		State:  uint8(state),
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
	cs.Release()
}

// Events copies the ring buffer, oldest first, into dst and returns the
// number of events copied.
func Events(dst []Event) int {
	cs := Critical(IRQDisabled)
	defer cs.Release()

	n := 0
	start := eventRingHead
	for i := uint8(0); i < EventRingSize && n < len(dst); i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Kind == 0 {
			continue // Empty slot
		}
		dst[n] = evt
		n++
	}
	return n
}

func eventName(kind uint8) string {
	switch kind {
	case EvtSchedule:
		return "SCHEDULE"
	case EvtSchedulePast:
		return "SCHEDULE_PAST"
	case EvtRTCOverflow:
		return "RTC_OVF"
	case EvtTimerOverflow:
		return "TIMER_OVF"
	case EvtFired:
		return "FIRED"
	case EvtReset:
		return "RESET"
	case EvtTockHazard:
		return "TOCK_HAZARD"
	case EvtSpurious:
		return "SPURIOUS!"
	}
	return "UNKNOWN"
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	var events [EventRingSize]Event
	n := Events(events[:])

	debugPrintln("[ALARM] === Event Ring Dump ===")
	for _, evt := range events[:n] {
		debugPrintln("[ALARM] " + eventName(evt.Kind) +
			" state=" + AlarmState(evt.State).String() +
			" v1=" + utoa64(uint64(evt.Value1)) +
			" v2=" + utoa64(uint64(evt.Value2)))
	}
	debugPrintln("[ALARM] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	cs := Critical(IRQDisabled)
	defer cs.Release()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
