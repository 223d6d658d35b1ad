package scheduler

import (
	"testing"
	"time"
)

// fakeClock is a trivial clock.Clock with a configurable cycle rate,
// enough for the guard-cycle admission math Table.RunDue exercises.
type fakeClock struct {
	cycles uint32
}

func (c *fakeClock) NowUs() uint32      { return c.cycles }
func (c *fakeClock) NowCycles() uint32  { return c.cycles }
func (c *fakeClock) UsToCycles(us uint32) uint32 { return us }

func TestTaskEligibleOnceAgeReachesOne(t *testing.T) {
	task := &Task{Name: "t", Period: 10 * time.Millisecond}
	now := time.Now()

	// A never-run task's lastRun is the zero time, so its age at "now"
	// is enormous and it is immediately eligible: expected cold-start
	// behavior, asserted directly below instead of discarded here.
	if !task.Eligible(now) {
		t.Errorf("a never-run task should be eligible immediately")
	}

	task.lastRun = now
	if task.Eligible(now.Add(5 * time.Millisecond)) {
		t.Errorf("task should not be eligible before one full period elapses")
	}
	if !task.Eligible(now.Add(10 * time.Millisecond)) {
		t.Errorf("task should be eligible once its age reaches 1")
	}
}

func TestPickEligiblePrefersOldestAgeThenTableOrder(t *testing.T) {
	table := NewTable(10, 5)
	now := time.Now()

	fast := &Task{Name: "fast", Period: 10 * time.Millisecond}
	slow := &Task{Name: "slow", Period: 10 * time.Millisecond}
	fast.lastRun = now.Add(-20 * time.Millisecond)
	slow.lastRun = now.Add(-50 * time.Millisecond)

	table.Add(fast)
	table.Add(slow)

	got := table.pickEligible(now)
	if got != slow {
		t.Errorf("expected the older (higher-age) task to win, got %v", got.Name)
	}
}

func TestRunDueSkipsWhenDeadlineTooClose(t *testing.T) {
	table := NewTable(10, 5)
	task := &Task{
		Name:   "t",
		Period: time.Millisecond,
		Run:    func(now time.Time) {},
	}
	table.Add(task)

	clk := &fakeClock{cycles: 1000}
	ran := table.RunDue(time.Now(), clk, 1005) // deadline too close given guard=10
	if ran != nil {
		t.Errorf("expected RunDue to skip a task with insufficient slack before the deadline")
	}
}

func TestRunDueRunsWhenSlackIsSufficient(t *testing.T) {
	table := NewTable(10, 5)
	ran := false
	task := &Task{
		Name:   "t",
		Period: time.Millisecond,
		Run:    func(now time.Time) { ran = true },
	}
	table.Add(task)

	clk := &fakeClock{cycles: 1000}
	got := table.RunDue(time.Now(), clk, 10_000)
	if got == nil || !ran {
		t.Errorf("expected the task to run given ample slack before the deadline")
	}
}

func TestGuardRaisesOnLateFinishAndLowersAfterCleanStreak(t *testing.T) {
	table := NewTable(10, 5)
	cyclesNow := uint32(0)
	task := &Task{
		Name:   "t",
		Period: time.Microsecond,
		Run:    func(now time.Time) { cyclesNow += 200 }, // simulate a slow run
	}
	table.Add(task)

	clk := &lateClock{fakeClock: &fakeClock{cycles: 0}, advanceOnRead: &cyclesNow}
	startGuard := table.GuardCycles()

	table.RunDue(time.Now(), clk, 100) // deadline-guardMin is tiny: run finishes late
	if table.GuardCycles() <= startGuard {
		t.Errorf("expected guard cycles to rise after a run that finished past the deadline margin")
	}
}

// lateClock lets a test control NowCycles() growth across the single
// RunDue call, simulating a task whose Run() consumed real cycles.
type lateClock struct {
	*fakeClock
	advanceOnRead *uint32
	reads         int
}

func (c *lateClock) NowCycles() uint32 {
	c.reads++
	if c.reads > 1 {
		return *c.advanceOnRead
	}
	return c.fakeClock.cycles
}
