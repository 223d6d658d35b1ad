// Package imu exposes the IMU adapter contract: a gyro-ready flag,
// angular velocity samples, the gyro interrupt
// count and skew the core governor phase-locks against, and a
// black-box Euler-angle attitude estimate.
package imu

import "math"

// Vec3 is a simple angular-velocity or acceleration triple.
type Vec3 struct {
	X, Y, Z float64
}

// Euler holds a vehicle attitude estimate in radians.
type Euler struct {
	Phi, Theta, Psi float64
}

// Imu is the narrow capability set the core governor and attitude task
// consume. Concrete implementations bind to a real sensor (see
// Lsm6ds3trDevice) or, in tests, a fake.
type Imu interface {
	// GyroReady reports whether a fresh gyro sample is pending.
	GyroReady() bool
	// ReadGyroDps consumes the pending sample and returns angular
	// velocity in degrees/second.
	ReadGyroDps() Vec3
	// GyroInterruptCount is a monotonic, wrapping count of gyro
	// hardware interrupts observed since boot.
	GyroInterruptCount() uint32
	// GyroSkew is the signed difference (in cycles) between the cycle
	// the most recent sample was latched and the scheduler's
	// predicted latch time.
	GyroSkew(targetCycles, periodCycles uint32) int32
	// EulerAngles returns the current attitude estimate.
	EulerAngles() Euler
	// IsLevel reports whether the current attitude is within
	// maxAngleDeg of level on both pitch and roll.
	IsLevel(maxAngleDeg float64) bool
}

const (
	microGToMS2    = 9.80665 / 1e6
	microDPSToRadS = math.Pi / (180 * 1e6)
	radToDeg       = 180 / math.Pi
)

// EulerEstimator is an accelerometer-arctangent plus 2-state Kalman
// fusion, generalized into a black-box attitude-estimator contract. It
// consumes raw accel/gyro samples (already unit-converted) and
// produces a fused Euler estimate on demand.
type EulerEstimator struct {
	kf *KalmanFilter

	accel Vec3 // m/s^2, bias-corrected
	gyro  Vec3 // rad/s, bias-corrected
}

// NewEulerEstimator creates an estimator sampling at period dt seconds.
func NewEulerEstimator(dt float64) *EulerEstimator {
	return &EulerEstimator{kf: NewKalmanFilter(dt)}
}

// Ingest folds one accel+gyro sample into the filter. Yaw is left at
// zero: this estimator has no magnetometer and cannot observe
// absolute heading.
func (e *EulerEstimator) Ingest(accel, gyro Vec3) {
	e.accel = accel
	e.gyro = gyro

	pitchAccel := math.Atan2(-accel.X, math.Sqrt(accel.Y*accel.Y+accel.Z*accel.Z))
	rollAccel := math.Atan2(accel.Y, accel.Z)

	e.kf.Predict(gyro.X, gyro.Y)
	e.kf.Update(pitchAccel, rollAccel)
}

// Euler returns the fused attitude estimate.
func (e *EulerEstimator) Euler() Euler {
	return Euler{Phi: e.kf.Roll(), Theta: e.kf.Pitch(), Psi: 0}
}

// IsLevel reports whether the fused pitch/roll are within maxAngleDeg
// of level, the predicate AttitudeTask feeds into arming.angleOkay in
// the original source.
func (e *EulerEstimator) IsLevel(maxAngleDeg float64) bool {
	eu := e.Euler()
	limit := maxAngleDeg * math.Pi / 180
	return math.Abs(eu.Phi) < limit && math.Abs(eu.Theta) < limit
}
