// Package flightstate holds the data-model types shared across
// components: VehicleState (written by the IMU/attitude task, read by
// the mixer and telemetry) and Demands (written by the receiver
// pipeline, read by the mixer). Neither type owns any behavior beyond
// the clamping invariants every Demands value must satisfy; this keeps the mixer
// and telemetry packages from importing the receiver or IMU packages
// just to share a struct definition.
package flightstate

import "github.com/wingfc/firmware/internal/numeric"

// DemandRateLimit is the clamp applied to roll/pitch/yaw setpoints.
const DemandRateLimit = 1998

// VehicleState is the current attitude/angular-rate estimate. At most
// one writer touches it per inner tick; readers may observe values up
// to one inner-loop period stale.
type VehicleState struct {
	Phi, Theta, Psi    float64 // Euler angles, radians
	DPhi, DTheta, DPsi float64 // body angular velocities, degrees/second
	AccelX, AccelY, AccelZ float64
}

// Demands are the pilot-commanded setpoints after receiver shaping and
// smoothing. Reset indicates the receiver just returned from failsafe,
// used by the mixer/PID stack to suppress integral windup on resume.
type Demands struct {
	Throttle         float64 // [0, 1]
	Roll, Pitch, Yaw float64 // deg/s, clamped to +/-DemandRateLimit
	Reset            bool
}

// Clamp constrains roll/pitch/yaw to +/-DemandRateLimit and throttle
// to [0,1], the invariant every Demands value must satisfy before
// the mixer observes it.
func (d Demands) Clamp() Demands {
	d.Roll = numeric.Clamp(d.Roll, -DemandRateLimit, DemandRateLimit)
	d.Pitch = numeric.Clamp(d.Pitch, -DemandRateLimit, DemandRateLimit)
	d.Yaw = numeric.Clamp(d.Yaw, -DemandRateLimit, DemandRateLimit)
	d.Throttle = numeric.Clamp(d.Throttle, 0, 1)
	return d
}
