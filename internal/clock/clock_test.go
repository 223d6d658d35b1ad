package clock

import "testing"

func TestIntcmpOrdering(t *testing.T) {
	if Intcmp(10, 5) <= 0 {
		t.Errorf("expected 10 to compare ahead of 5")
	}
	if Intcmp(5, 10) >= 0 {
		t.Errorf("expected 5 to compare behind 10")
	}
	if Intcmp(5, 5) != 0 {
		t.Errorf("expected equal values to compare as zero")
	}
}

func TestIntcmpHandlesWraparound(t *testing.T) {
	// A counter that has just wrapped past max-uint32 is still "ahead"
	// of a value just before the wrap, by signed-subtraction math.
	justBeforeWrap := uint32(0xFFFFFFF0)
	justAfterWrap := uint32(5)

	if Intcmp(justAfterWrap, justBeforeWrap) <= 0 {
		t.Errorf("expected a wrapped counter to compare ahead of its pre-wrap value")
	}
}

func TestUsToCyclesScalesLinearly(t *testing.T) {
	c := NewSystemClock(1_000_000) // 1 cycle per microsecond
	if got := c.UsToCycles(100); got != 100 {
		t.Errorf("expected 100us to be 100 cycles at 1MHz, got %d", got)
	}

	c2 := NewSystemClock(2_000_000) // 2 cycles per microsecond
	if got := c2.UsToCycles(100); got != 200 {
		t.Errorf("expected 100us to be 200 cycles at 2MHz, got %d", got)
	}
}
