// Package failsafe implements the staleness watchdog: a boot-delayed
// monitor that trips to a latched safe state on signal loss and only
// clears once both a fresh frame has arrived and the arm switch has
// been cycled off. Ported from the Failsafe
// interface calls in the original receiver.h/board.h
// (onValidDataReceived/onValidDataFailed/startMonitoring/isMonitoring).
package failsafe

import (
	"time"

	"github.com/wingfc/firmware/internal/config"
)

// State is one of the five failsafe monitor states.
type State int

const (
	Idle State = iota
	Monitoring
	Tripped
	Recovering
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Monitoring:
		return "monitoring"
	case Tripped:
		return "tripped"
	case Recovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Monitor tracks receiver staleness and drives the latched
// got_failsafe condition the arming state machine consumes.
type Monitor struct {
	cfg config.FailsafeConfig

	bootTime time.Time
	state    State

	lastValidAt time.Time
}

// NewMonitor returns a monitor in Idle, anchored at bootTime.
func NewMonitor(cfg config.FailsafeConfig, bootTime time.Time) *Monitor {
	return &Monitor{cfg: cfg, bootTime: bootTime, state: Idle}
}

// Tick advances the boot-delay gate; call once per outer cycle before
// OnValidData*. No-op once monitoring has started.
func (m *Monitor) Tick(now time.Time) {
	if m.state == Idle && now.Sub(m.bootTime) >= m.cfg.BootDelay {
		m.state = Monitoring
		m.lastValidAt = now
	}
}

// IsMonitoring reports whether the boot delay has elapsed and the
// monitor is actively watching for staleness.
func (m *Monitor) IsMonitoring() bool {
	return m.state == Monitoring || m.state == Tripped || m.state == Recovering
}

// OnValidDataReceived resets the staleness timer. If the monitor was
// Tripped, this begins recovery; recovery completes (clearing
// got_failsafe) only once OnSwitchCycledOff is also observed.
func (m *Monitor) OnValidDataReceived(now time.Time) {
	m.lastValidAt = now
	if m.state == Tripped {
		m.state = Recovering
	}
}

// OnSwitchCycledOff signals the arm switch has been observed off, the
// second of the two conditions required to leave Recovering and
// resume normal Monitoring.
func (m *Monitor) OnSwitchCycledOff() {
	if m.state == Recovering {
		m.state = Monitoring
	}
}

// OnValidDataFailed advances the staleness check. Once the elapsed
// time since the last valid frame exceeds the configured window, the
// monitor trips: motors must be cut and got_failsafe latched by the
// caller (board.h's updateFromReceiver does this via the arming
// component, kept as a separate concern here).
func (m *Monitor) OnValidDataFailed(now time.Time) {
	if !m.IsMonitoring() {
		return
	}
	if now.Sub(m.lastValidAt) >= m.cfg.NoSignalWindow {
		m.state = Tripped
	}
}

// Tripped reports whether the monitor is currently in the latched
// failsafe state.
func (m *Monitor) Tripped() bool { return m.state == Tripped }

// State returns the current monitor state, chiefly for telemetry/tests.
func (m *Monitor) StateValue() State { return m.state }
