// Package mixer implements the mixer and ESC output front end: a pure
// function from demands, vehicle state, and PID controllers to a
// per-motor command array in [0,1]. PID control-law internals and the
// mixing matrix values themselves are treated as pure-function black
// boxes; what matters is the function's shape, ported from an
// elevon-mixing block and generalized to an arbitrary row table so the
// same Mixer serves both a flying-wing layout and a conventional
// multirotor layout.
package mixer

import (
	"github.com/wingfc/firmware/internal/config"
	"github.com/wingfc/firmware/internal/flightstate"
	"github.com/wingfc/firmware/internal/numeric"
)

// Row is one output channel's contribution weights. Bias centers a
// control-surface-style output at neutral (0.5); Scale normalizes the
// PID-corrected rate terms (which can span the configured demand rate
// limit) down into the [0,1] output range.
type Row struct {
	Bias                     float64
	Scale                    float64
	Throttle, Roll, Pitch, Yaw float64
}

// Mixer owns one PID controller per rotational axis and a row table
// mapping corrected roll/pitch/yaw plus raw throttle to motor values.
type Mixer struct {
	rows  []Row
	roll  *PID
	pitch *PID
	yaw   *PID

	rateLimit float64
	lastUs    uint32
	haveLast  bool
}

// New returns a Mixer with the given row table and PID gains.
func New(rows []Row, rateLimit float64, rollPID, pitchPID, yawPID *PID) *Mixer {
	return &Mixer{rows: rows, roll: rollPID, pitch: pitchPID, yaw: yawPID, rateLimit: rateLimit}
}

// NewWingMixer returns a flying-wing layout: channel 0 is the throttle
// ESC passthrough, channels 1/2 are the left/right elevon servos
// combining pitch+roll the way leftElevonOutput/rightElevonOutput did.
func NewWingMixer(cfg config.MixerConfig, kp, ki, kd float64) *Mixer {
	rows := []Row{
		{Throttle: 1},
		{Bias: 0.5, Scale: 0.5, Pitch: 1, Roll: 1},
		{Bias: 0.5, Scale: 0.5, Pitch: 1, Roll: -1},
	}
	return New(rows, cfg.DemandRateLimit, NewPID(kp, ki, kd), NewPID(kp, ki, kd), NewPID(kp, ki, kd))
}

// NewQuadMixer returns a conventional X-quad motor layout: four ESC
// channels, each a throttle passthrough plus a signed combination of
// roll/pitch/yaw correction.
func NewQuadMixer(cfg config.MixerConfig, kp, ki, kd float64) *Mixer {
	rows := []Row{
		{Throttle: 1, Roll: -1, Pitch: 1, Yaw: -1},
		{Throttle: 1, Roll: -1, Pitch: -1, Yaw: 1},
		{Throttle: 1, Roll: 1, Pitch: 1, Yaw: 1},
		{Throttle: 1, Roll: 1, Pitch: -1, Yaw: -1},
	}
	return New(rows, cfg.DemandRateLimit, NewPID(kp, ki, kd), NewPID(kp, ki, kd), NewPID(kp, ki, kd))
}

// Step is the pure mixing function: (demands, state, pid_list implied
// by the receiver, reset_flag, now_us) -> motor_values[].
func (m *Mixer) Step(demands flightstate.Demands, state flightstate.VehicleState, resetFlag bool, nowUs uint32) []float64 {
	if resetFlag {
		m.roll.Reset()
		m.pitch.Reset()
		m.yaw.Reset()
	}

	dt := 0.0
	if m.haveLast {
		dt = float64(int32(nowUs-m.lastUs)) / 1e6
	}
	m.lastUs = nowUs
	m.haveLast = true
	if dt < 0 {
		dt = 0
	}

	rollError := demands.Roll - state.DPhi
	pitchError := demands.Pitch - state.DTheta
	yawError := demands.Yaw - state.DPsi

	rollCorrection := m.roll.Update(rollError, dt)
	pitchCorrection := m.pitch.Update(pitchError, dt)
	yawCorrection := m.yaw.Update(yawError, dt)

	if m.rateLimit > 0 {
		rollCorrection /= m.rateLimit
		pitchCorrection /= m.rateLimit
		yawCorrection /= m.rateLimit
	}

	out := make([]float64, len(m.rows))
	for i, row := range m.rows {
		v := row.Bias + row.Scale*(row.Throttle*demands.Throttle+row.Roll*rollCorrection+row.Pitch*pitchCorrection+row.Yaw*yawCorrection)
		// A zero Scale (the default for a pure-throttle row) leaves the
		// throttle term unscaled, matching the ESC's direct passthrough.
		if row.Scale == 0 {
			v = row.Bias + row.Throttle*demands.Throttle + row.Roll*rollCorrection + row.Pitch*pitchCorrection + row.Yaw*yawCorrection
		}
		out[i] = numeric.Clamp(v, 0, 1)
	}
	return out
}
