package arming

import (
	"testing"
	"time"

	"github.com/wingfc/firmware/internal/config"
)

type stubEsc struct {
	ready    bool
	stopped  int
}

func (e *stubEsc) IsReady(now time.Time) bool { return e.ready }
func (e *stubEsc) Stop()                      { e.stopped++ }

func testConfig() config.ArmingConfig {
	return config.ArmingConfig{MaxArmingAngleDeg: 25}
}

func readyMachine() (*Machine, *stubEsc) {
	esc := &stubEsc{ready: true}
	m := New(testConfig(), esc)
	m.SetCalibration(true, true)
	m.UpdateImuStatus(true)
	now := time.Now()
	// SwitchOkay one-shot latch requires an observed aux1=false cycle
	// before arming is permitted, board.h's boot-safety behavior.
	m.UpdateFromReceiver(now, true, false, true)
	return m, esc
}

func TestReadyToArmRequiresAllPreconditions(t *testing.T) {
	m, _ := readyMachine()
	if !m.ReadyToArm() {
		t.Fatalf("expected ReadyToArm once every precondition is satisfied, got record %+v", m.Record())
	}
}

func TestArmSwitchAtBootDoesNotArm(t *testing.T) {
	esc := &stubEsc{ready: true}
	m := New(testConfig(), esc)
	m.SetCalibration(true, true)
	m.UpdateImuStatus(true)

	now := time.Now()
	// Switch already on at first observation: switchOkay latch must
	// never have been set, so arming is refused even though every
	// other precondition is true.
	m.UpdateFromReceiver(now, true, true, true)
	m.AttemptToArm(now, true)

	if m.Record().IsArmed {
		t.Errorf("must not arm when the switch was already on at first observation")
	}
}

func TestAttemptToArmSucceedsWhenReady(t *testing.T) {
	m, esc := readyMachine()
	now := time.Now()

	m.AttemptToArm(now, true)

	if !m.Record().IsArmed {
		t.Fatalf("expected arming to succeed, record: %+v", m.Record())
	}
	if esc.stopped != 0 {
		t.Errorf("arming must not call Stop()")
	}
}

func TestAttemptToArmRefusedWhenEscNotReady(t *testing.T) {
	m, esc := readyMachine()
	esc.ready = false
	now := time.Now()

	m.AttemptToArm(now, true)

	if m.Record().IsArmed {
		t.Errorf("must not arm while the ESC reports not ready")
	}
}

func TestDisarmOnSwitchOff(t *testing.T) {
	m, esc := readyMachine()
	now := time.Now()
	m.AttemptToArm(now, true)
	if !m.Record().IsArmed {
		t.Fatalf("setup failed: expected armed before testing disarm")
	}

	m.AttemptToArm(now, false)

	if m.Record().IsArmed {
		t.Errorf("expected disarm when the switch goes off")
	}
	if esc.stopped != 1 {
		t.Errorf("expected exactly one Stop() call on disarm, got %d", esc.stopped)
	}
}

func TestSignalLossWhileArmedSetsFailsafeAndDisarms(t *testing.T) {
	m, esc := readyMachine()
	now := time.Now()
	m.AttemptToArm(now, true)
	if !m.Record().IsArmed {
		t.Fatalf("setup failed: expected armed before testing failsafe")
	}

	m.UpdateFromReceiver(now, true, true, false) // haveSignal=false

	if m.Record().IsArmed {
		t.Errorf("expected disarm on signal loss while armed")
	}
	if !m.Record().GotFailsafe {
		t.Errorf("expected GotFailsafe latched on signal loss while armed")
	}
	if esc.stopped != 1 {
		t.Errorf("expected exactly one Stop() call, got %d", esc.stopped)
	}
}

func TestClearFailsafeOnlyClearsTheFlag(t *testing.T) {
	m, _ := readyMachine()
	now := time.Now()
	m.AttemptToArm(now, true)
	m.UpdateFromReceiver(now, true, true, false)
	if !m.Record().GotFailsafe {
		t.Fatalf("setup failed: expected GotFailsafe set")
	}

	m.ClearFailsafe()
	if m.Record().GotFailsafe {
		t.Errorf("expected ClearFailsafe to clear GotFailsafe")
	}
}

func TestArmingStillSucceedsAfterExhaustedLatchSets(t *testing.T) {
	// The exhausted latch (board.h's _doNotRepeat) sets itself once
	// ready-to-arm is true while unarmed with the switch off, but is
	// never consulted anywhere else in attemptToArm: ported faithfully,
	// it does not itself block a later, switch-raised arm attempt.
	m, _ := readyMachine()
	now := time.Now()

	m.AttemptToArm(now, false) // switch still off: latch sets, no arm attempted
	if m.Record().IsArmed {
		t.Fatalf("must not arm while the switch is off")
	}

	m.AttemptToArm(now, true)
	if !m.Record().IsArmed {
		t.Errorf("expected arming to still succeed once the switch is raised")
	}
}
