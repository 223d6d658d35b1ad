package imu

import "math"

// QhatNormToleranceSquared guards against normalizing a near-zero
// quaternion, as the original attitude estimator does.
const qhatNormToleranceSquared = 1e-9

// QuaternionEstimator is an alternate black-box attitude estimator
// that integrates gyro rate into a quaternion instead of fusing
// accelerometer tilt, following the update/normalize/extract-Euler
// structure of a quaternion attitude estimator rather than the
// accelerometer-arctangent approach EulerEstimator uses. Useful where
// accelerometer noise during aggressive maneuvers would otherwise
// corrupt the tilt estimate.
type QuaternionEstimator struct {
	w, x, y, z float64
	dt         float64
}

// NewQuaternionEstimator returns an estimator initialized to the
// identity orientation, integrating at period dt seconds.
func NewQuaternionEstimator(dt float64) *QuaternionEstimator {
	return &QuaternionEstimator{w: 1, dt: dt}
}

// SetEuler resets the orientation to a particular set of ZYX Euler angles.
func (e *QuaternionEstimator) SetEuler(yaw, pitch, roll float64) {
	yaw *= 0.5
	pitch *= 0.5
	roll *= 0.5

	cpsi, spsi := math.Cos(yaw), math.Sin(yaw)
	cth, sth := math.Cos(pitch), math.Sin(pitch)
	cphi, sphi := math.Cos(roll), math.Sin(roll)

	e.setQuaternion(
		cpsi*cth*cphi+spsi*sth*sphi,
		cpsi*cth*sphi-spsi*sth*cphi,
		cpsi*sth*cphi+spsi*cth*sphi,
		spsi*cth*cphi-cpsi*sth*sphi,
	)
}

func (e *QuaternionEstimator) setQuaternion(w, x, y, z float64) {
	scale := w*w + x*x + y*y + z*z
	if scale < qhatNormToleranceSquared {
		e.w, e.x, e.y, e.z = 1, 0, 0, 0
		return
	}
	scale = 1.0 / math.Sqrt(scale)
	e.w, e.x, e.y, e.z = scale*w, scale*x, scale*y, scale*z
}

// Ingest integrates one gyro sample (rad/s) into the quaternion via
// the standard first-order exponential-map update.
func (e *QuaternionEstimator) Ingest(gyro Vec3) {
	halfDt := 0.5 * e.dt

	dw := -halfDt * (gyro.X*e.x + gyro.Y*e.y + gyro.Z*e.z)
	dx := halfDt * (gyro.X*e.w + gyro.Z*e.y - gyro.Y*e.z)
	dy := halfDt * (gyro.Y*e.w - gyro.Z*e.x + gyro.X*e.z)
	dz := halfDt * (gyro.Z*e.w + gyro.Y*e.x - gyro.X*e.y)

	e.setQuaternion(e.w+dw, e.x+dx, e.y+dy, e.z+dz)
}

// Euler extracts ZYX Euler angles from the current quaternion.
// Yaw = psi is in (-pi,pi]; pitch = theta is in [-pi/2,pi/2]; roll =
// phi is in (-pi,pi].
func (e *QuaternionEstimator) Euler() Euler {
	stheta := 2.0 * (e.w*e.y - e.z*e.x)
	if stheta >= 1 {
		stheta = 1
	} else if stheta <= -1 {
		stheta = -1
	}
	theta := math.Asin(stheta)

	ysq := e.y * e.y
	psi := math.Atan2(e.w*e.z+e.x*e.y, 0.5-(ysq+e.z*e.z))
	phi := math.Atan2(e.w*e.x+e.y*e.z, 0.5-(ysq+e.x*e.x))

	return Euler{Phi: phi, Theta: theta, Psi: psi}
}

// IsLevel reports whether pitch/roll are within maxAngleDeg of level.
func (e *QuaternionEstimator) IsLevel(maxAngleDeg float64) bool {
	eu := e.Euler()
	limit := maxAngleDeg * math.Pi / 180
	return math.Abs(eu.Phi) < limit && math.Abs(eu.Theta) < limit
}
