package mixer

// PID holds one axis's proportional-integral-derivative controller
// state, carried over unchanged in algorithm: control-law internals
// are a pure-function black box, so no behavioral change belongs here.
type PID struct {
	Kp, Ki, Kd float64
	prevError  float64
	integral   float64
}

// NewPID returns an initialized controller.
func NewPID(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

// Update computes one control-output sample for the given error and
// time step.
func (p *PID) Update(currentError, dt float64) float64 {
	proportional := p.Kp * currentError

	p.integral += currentError * dt
	integral := p.Ki * p.integral

	derivative := 0.0
	if dt > 0 {
		derivative = p.Kd * (currentError - p.prevError) / dt
	}
	p.prevError = currentError

	return proportional + integral + derivative
}

// Reset clears accumulated integral/derivative history, called by the
// mixer when Demands.Reset indicates the receiver just returned from
// failsafe (prevents integral windup carried across a signal loss).
func (p *PID) Reset() {
	p.prevError = 0
	p.integral = 0
}
