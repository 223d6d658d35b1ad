// Package clock provides the monotonic microsecond and cycle-counter
// primitives the core loop governor phase-locks against.
//
// Both counters wrap at their bit width; every comparison in this
// repository uses signed subtraction of the raw unsigned values
// (intcmp below) so wraparound is handled uniformly, mirroring
// board.h's getCycleCounter()/intcmp pattern in the original source.
package clock

import "time"

// Clock exposes monotonic time in both microseconds and cycle counts.
// Cycles are a hardware-rate counter (e.g. a free-running timer);
// us_to_cycles lets callers convert a microsecond duration into the
// same units the core governor schedules against.
type Clock interface {
	NowUs() uint32
	NowCycles() uint32
	UsToCycles(us uint32) uint32
}

// SystemClock derives both counters from time.Now, scaled so that
// NowCycles advances at cyclesPerSecond. On real hardware this would
// instead read a timer peripheral register; in the core loop governor
// and in tests, only the two invariants above matter: monotonic
// (mod wraparound) and a fixed, known cycles-per-microsecond ratio.
type SystemClock struct {
	epoch          time.Time
	cyclesPerSecond uint64
}

// NewSystemClock returns a Clock anchored at the current time, ticking
// cycles at the given rate (e.g. a CPU or timer frequency in Hz).
func NewSystemClock(cyclesPerSecond uint64) *SystemClock {
	return &SystemClock{epoch: time.Now(), cyclesPerSecond: cyclesPerSecond}
}

func (c *SystemClock) NowUs() uint32 {
	return uint32(time.Since(c.epoch).Microseconds())
}

func (c *SystemClock) NowCycles() uint32 {
	elapsed := time.Since(c.epoch)
	cycles := uint64(elapsed.Seconds() * float64(c.cyclesPerSecond))
	return uint32(cycles)
}

func (c *SystemClock) UsToCycles(us uint32) uint32 {
	return uint32(uint64(us) * c.cyclesPerSecond / 1_000_000)
}

// Intcmp returns the signed difference a-b, treating both as points on
// a wrapping uint32 timeline. A positive result means a is ahead of b.
// Backwards jumps beyond half the range are clamped to zero elapsed by
// callers that care (the governor does not rewind its targets).
func Intcmp(a, b uint32) int32 {
	return int32(a - b)
}
