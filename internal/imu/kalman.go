package imu

// KalmanFilter fuses gyro rate (prediction) with accelerometer-derived
// tilt (correction) into a pitch/roll state estimate. State vector X:
// [pitch, roll]; measurement vector Z: [pitch_accel, roll_accel].
type KalmanFilter struct {
	X *Matrix // (2x1) estimated state [pitch, roll]

	P *Matrix // (2x2) estimate error covariance
	Q *Matrix // (2x2) process noise covariance
	R *Matrix // (2x2) measurement noise covariance

	F *Matrix // (2x2) state transition matrix
	H *Matrix // (2x2) observation matrix

	dt float64
}

// NewKalmanFilter creates a filter with a fixed sample period dt (seconds).
func NewKalmanFilter(dt float64) *KalmanFilter {
	q := Identity(2)
	q.Set(0, 0, 0.01)
	q.Set(1, 1, 0.01)

	r := Identity(2)
	r.Set(0, 0, 0.5)
	r.Set(1, 1, 0.5)

	return &KalmanFilter{
		X:  NewMatrix(2, 1),
		P:  Identity(2),
		Q:  q,
		R:  r,
		F:  Identity(2),
		H:  Identity(2),
		dt: dt,
	}
}

// Predict advances the state estimate using the latest gyro rates.
func (kf *KalmanFilter) Predict(gyroX, gyroY float64) {
	gyroVector := NewMatrix(2, 1)
	gyroVector.Set(0, 0, gyroY*kf.dt)
	gyroVector.Set(1, 0, gyroX*kf.dt)
	kf.X = kf.X.Add(gyroVector)

	fT := kf.F.Transpose()
	kf.P = kf.F.Multiply(kf.P).Multiply(fT).Add(kf.Q)
}

// Update corrects the state estimate with a new accelerometer-derived
// pitch/roll measurement.
func (kf *KalmanFilter) Update(accelPitch, accelRoll float64) {
	z := NewMatrix(2, 1)
	z.Set(0, 0, accelPitch)
	z.Set(1, 0, accelRoll)

	y := z.Subtract(kf.H.Multiply(kf.X))

	hT := kf.H.Transpose()
	s := kf.H.Multiply(kf.P).Multiply(hT).Add(kf.R)
	sInv := s.Inverse()

	k := kf.P.Multiply(hT).Multiply(sInv)

	kf.X = kf.X.Add(k.Multiply(y))

	i := Identity(2)
	kf.P = i.Subtract(k.Multiply(kf.H)).Multiply(kf.P)
}

// Pitch returns the filtered pitch estimate in radians.
func (kf *KalmanFilter) Pitch() float64 { return kf.X.At(0, 0) }

// Roll returns the filtered roll estimate in radians.
func (kf *KalmanFilter) Roll() float64 { return kf.X.At(1, 0) }
