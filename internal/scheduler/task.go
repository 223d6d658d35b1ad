// Package scheduler implements the outer task table and prioritizer,
// plus the core loop governor. Both are ported from board.h's
// checkCoreTasks/checkDynamicTasks and its age-weighted task
// eligibility rule; the task guard-cycle raise-fast/lower-slow
// asymmetry is restored here from the original source.
package scheduler

import (
	"time"

	"github.com/wingfc/firmware/internal/clock"
)

// TaskState is a task's current lifecycle state.
type TaskState int

const (
	TaskIdle TaskState = iota
	TaskReady
	TaskRunning
)

// Task is one outer task's schedule and execution-time history.
type Task struct {
	Name   string
	Period time.Duration

	// Run executes the task and returns how long it took. Run must
	// never block: the scheduler relies on its own worst-case
	// tracking, not on Run itself enforcing the budget.
	Run func(now time.Time)

	lastRun  time.Time
	avgExec  time.Duration
	maxExec  time.Duration
	state    TaskState
}

// Age returns (now - lastRun) / Period; a task is eligible when Age >= 1.
func (t *Task) Age(now time.Time) float64 {
	if t.Period <= 0 {
		return 0
	}
	return float64(now.Sub(t.lastRun)) / float64(t.Period)
}

// Eligible reports whether the task is due to run.
func (t *Task) Eligible(now time.Time) bool {
	return t.state != TaskRunning && t.Age(now) >= 1
}

// WorstCaseExec returns the task's observed worst-case execution time,
// used by the governor's admission check.
func (t *Task) WorstCaseExec() time.Duration { return t.maxExec }

func (t *Task) markRun(now time.Time, dur time.Duration) {
	t.lastRun = now
	t.state = TaskIdle
	if dur > t.maxExec {
		t.maxExec = dur
	}
	if t.avgExec == 0 {
		t.avgExec = dur
	} else {
		t.avgExec = (t.avgExec*7 + dur) / 8
	}
}

// Table is the ordered set of outer tasks; ties in the prioritizer are
// broken by table order.
type Table struct {
	tasks []*Task

	guardCycles    int32
	guardMin       int32
	guardStep      int32
	cleanRunStreak int
}

// NewTable returns an empty task table with the given guard-cycle floor/step.
func NewTable(guardMin, guardStep int32) *Table {
	return &Table{guardCycles: guardMin, guardMin: guardMin, guardStep: guardStep}
}

// Add registers a task in prioritizer order.
func (s *Table) Add(t *Task) { s.tasks = append(s.tasks, t) }

// GuardCycles returns the current dynamic guard margin.
func (s *Table) GuardCycles() int32 { return s.guardCycles }

// pickEligible returns the maximum-age eligible task, ties broken by
// table order, or nil if none are due.
func (s *Table) pickEligible(now time.Time) *Task {
	var best *Task
	var bestAge float64
	for _, t := range s.tasks {
		if !t.Eligible(now) {
			continue
		}
		age := t.Age(now)
		if best == nil || age > bestAge {
			best, bestAge = t, age
		}
	}
	return best
}

// RunDue picks the highest-priority eligible task and runs it if its
// anticipated end, in cycles, would not exceed deadlineCycles minus
// the current guard. Returns the task that ran, or nil if none was
// eligible or none could be admitted this round.
func (s *Table) RunDue(now time.Time, clk clock.Clock, deadlineCycles uint32) *Task {
	t := s.pickEligible(now)
	if t == nil {
		return nil
	}

	nowCycles := clk.NowCycles()
	worstCaseCycles := clk.UsToCycles(uint32(t.WorstCaseExec().Microseconds()))
	anticipatedEnd := nowCycles + worstCaseCycles + uint32(s.guardCycles)

	if clock.Intcmp(anticipatedEnd, deadlineCycles) > 0 {
		// Not enough slack before the next inner-loop deadline; skip
		// this round, task eligibility is recomputed next round.
		return nil
	}

	t.state = TaskRunning
	start := now
	t.Run(now)
	dur := time.Since(start)
	t.markRun(now, dur)

	actualEndCycles := clk.NowCycles()
	if clock.Intcmp(actualEndCycles, deadlineCycles-uint32(s.guardMin)) > 0 {
		s.raiseGuard()
	} else {
		s.noteCleanRun()
	}

	return t
}

func (s *Table) raiseGuard() {
	s.guardCycles += s.guardStep
	s.cleanRunStreak = 0
}

// cleanRunsBeforeLowering is the streak length required before the
// guard margin is allowed to shrink back toward its floor.
const cleanRunsBeforeLowering = 50

func (s *Table) noteCleanRun() {
	s.cleanRunStreak++
	if s.cleanRunStreak >= cleanRunsBeforeLowering && s.guardCycles > s.guardMin {
		s.guardCycles -= s.guardStep
		if s.guardCycles < s.guardMin {
			s.guardCycles = s.guardMin
		}
		s.cleanRunStreak = 0
	}
}
