// Package arming implements the arming/failsafe state machine: the
// safety preconditions gating DISARMED->ARMED, and the unconditional
// paths back to DISARMED. Ported from board.h's
// readyToArm/attemptToArm/disarm/updateFromReceiver, including the
// switchOkay one-shot latch and the _doNotRepeat latch (see
// DESIGN.md's Open Questions decision).
package arming

import (
	"time"

	"github.com/wingfc/firmware/internal/config"
)

// Esc is the narrow capability record the arming state machine needs
// from the ESC layer: whether it has finished its warmup window, and
// how to force the motors to a stop. Passed in at construction so
// arming never holds a reference to the full orchestrator, inverting
// the board-pointer callbacks the original code used.
type Esc interface {
	IsReady(now time.Time) bool
	Stop()
}

// WarningState is the LED warning policy driven while unarmed and not
// ready-to-arm, ported from board.h's Warning struct.
type WarningState int

const (
	WarningOff WarningState = iota
	WarningOn
	WarningBlink
)

// Record is the arming record: every boolean the ready-to-arm
// predicate and the testable safety properties reference.
type Record struct {
	IsArmed              bool
	HaveSignal           bool
	GotFailsafe          bool
	ThrottleIsDown       bool
	SwitchOkay           bool
	AngleOkay            bool
	GyroDoneCalibrating  bool
	AccDoneCalibrating   bool
}

// Machine owns the arming record and its transition logic.
type Machine struct {
	cfg config.ArmingConfig
	esc Esc

	record Record

	// armAttemptExhausted is the ported _doNotRepeat latch: once
	// readyToArm() has gone false while unarmed, it locks out further
	// automatic re-evaluation of the arm-switch-raised path for the
	// rest of this boot.
	armAttemptExhausted bool

	warning      WarningState
	warningTimer time.Time
}

// New returns a Machine with every boolean false, matching a
// cold-boot reset.
func New(cfg config.ArmingConfig, esc Esc) *Machine {
	return &Machine{cfg: cfg, esc: esc}
}

// Record returns a snapshot of the current arming state.
func (m *Machine) Record() Record { return m.record }

// ReadyToArm is the safety precondition predicate.
func (m *Machine) ReadyToArm() bool {
	r := m.record
	return r.AccDoneCalibrating &&
		r.AngleOkay &&
		!r.GotFailsafe &&
		r.HaveSignal &&
		r.GyroDoneCalibrating &&
		r.SwitchOkay &&
		r.ThrottleIsDown
}

// Disarm unconditionally issues a motor stop (if armed) and clears
// IsArmed. Transitions true->false are unconditional from any path.
func (m *Machine) Disarm() {
	if m.record.IsArmed {
		m.esc.Stop()
	}
	m.record.IsArmed = false
}

// AttemptToArm is the DISARMED->ARMED edge: called once per receiver
// cycle with the current arm-switch position. Ported verbatim from
// board.h's attemptToArm, including the _doNotRepeat latch.
func (m *Machine) AttemptToArm(now time.Time, aux1IsSet bool) {
	if aux1IsSet {
		if m.ReadyToArm() {
			if m.record.IsArmed {
				return
			}
			if !m.esc.IsReady(now) {
				return
			}
			m.record.IsArmed = true
		}
	} else if m.record.IsArmed {
		m.Disarm()
	}

	if !(m.record.IsArmed || m.armAttemptExhausted || !m.ReadyToArm()) {
		m.armAttemptExhausted = true
	}
}

// UpdateFromReceiver folds the latest receiver-observed throttle,
// arm-switch, and signal state into the arming record, ported from
// board.h's updateFromReceiver. Loss of signal while armed sets
// GotFailsafe and disarms; while unarmed, it maintains the
// switchOkay one-shot latch that prevents arm-at-boot-with-switch-on.
func (m *Machine) UpdateFromReceiver(now time.Time, throttleIsDown, aux1IsSet, haveSignal bool) {
	if m.record.IsArmed {
		if !haveSignal && m.record.HaveSignal {
			m.record.GotFailsafe = true
			m.Disarm()
		} else {
			m.warning = WarningOff
		}
	} else {
		m.record.ThrottleIsDown = throttleIsDown

		if !m.ReadyToArm() && aux1IsSet {
			m.record.SwitchOkay = false
		} else if !aux1IsSet {
			m.record.SwitchOkay = true
		}

		if !m.ReadyToArm() {
			m.warning = WarningBlink
		} else {
			m.warning = WarningOff
		}
	}

	m.record.HaveSignal = haveSignal
}

// UpdateImuStatus sets AngleOkay from the attitude task's is_level
// flag, the link original_source's tasks/attitude.h makes explicit
// via arming.updateImuStatus.
func (m *Machine) UpdateImuStatus(isLevel bool) { m.record.AngleOkay = isLevel }

// SetCalibration records whether gyro/accel calibration has completed.
func (m *Machine) SetCalibration(gyroDone, accDone bool) {
	m.record.GyroDoneCalibrating = gyroDone
	m.record.AccDoneCalibrating = accDone
}

// ClearFailsafe is called once the failsafe monitor has both seen a
// fresh frame and observed the arm switch cycle off: only then does
// GotFailsafe clear.
func (m *Machine) ClearFailsafe() { m.record.GotFailsafe = false }

// Warning returns the current LED warning policy (on/off/blink),
// ported from board.h's Warning state without the GPIO write itself,
// which stays in the driver layer.
func (m *Machine) Warning() WarningState { return m.warning }
