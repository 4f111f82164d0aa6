package core

// Ticks is a duration in the canonical time unit (1/TickHz seconds).
type Ticks uint64

// Instant is a point in time counted in ticks. The top bit marks an
// absolute (wall-clock referenced, Unix epoch) instant; without it the
// instant is relative to boot.
type Instant uint64

const (
	absoluteFlag Instant = 1 << 63
	ticksMask    Instant = absoluteFlag - 1

	// MaxTicks is the largest tick count an Instant can carry.
	MaxTicks = Ticks(ticksMask)
)

// RelativeInstant returns the boot-referenced instant t ticks after boot.
func RelativeInstant(t Ticks) Instant {
	if t > MaxTicks {
		panic("instant: tick count overflows")
	}
	return Instant(t)
}

// AbsoluteInstant returns the wall-clock instant t ticks after the Unix epoch.
func AbsoluteInstant(t Ticks) Instant {
	if t > MaxTicks {
		panic("instant: tick count overflows")
	}
	return Instant(t) | absoluteFlag
}

// Absolute reports whether the instant is wall-clock referenced
func (i Instant) Absolute() bool {
	return i&absoluteFlag != 0
}

// Ticks returns the tick count without the kind flag
func (i Instant) Ticks() Ticks {
	return Ticks(i & ticksMask)
}

// Add returns the instant d ticks later, keeping the kind.
func (i Instant) Add(d Ticks) Instant {
	t := i.Ticks()
	if d > MaxTicks-t {
		panic("instant: add overflows")
	}
	return (i & absoluteFlag) | Instant(t+d)
}

// Earlier returns the instant d ticks before i, keeping the kind.
func (i Instant) Earlier(d Ticks) Instant {
	t := i.Ticks()
	if d > t {
		panic("instant: subtract underflows")
	}
	return (i & absoluteFlag) | Instant(t-d)
}

// Sub returns i - earlier. Both instants must be of the same kind and
// earlier must not be after i.
func (i Instant) Sub(earlier Instant) Ticks {
	mustSameKind(i, earlier)
	if earlier.Ticks() > i.Ticks() {
		panic("instant: negative delta")
	}
	return i.Ticks() - earlier.Ticks()
}

// Before reports whether i is strictly earlier than o
func (i Instant) Before(o Instant) bool {
	mustSameKind(i, o)
	return i.Ticks() < o.Ticks()
}

func (i Instant) String() string {
	if i.Absolute() {
		return "abs:" + utoa64(uint64(i.Ticks()))
	}
	return "rel:" + utoa64(uint64(i.Ticks()))
}

func mustSameKind(a, b Instant) {
	if a.Absolute() != b.Absolute() {
		panic("instant: mixing absolute and relative instants")
	}
}
