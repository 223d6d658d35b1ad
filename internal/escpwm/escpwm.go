// Package escpwm implements the analog PWM fallback for the motor
// output stage, adapted from a setServo/setESC pairing that drove two
// hardcoded pwm0/pwm1 package-level PWM groups with fixed pwmCh1-3
// channel constants. Generalized here into a Bank of arbitrary
// Channel count so the same code serves the flying-wing's two servos
// plus one ESC, or a multirotor's N ESC channels.
package escpwm

import (
	"machine"
	"time"
)

// Channel is one PWM output: a configured hardware group, the channel
// within it, and the pulse period it was configured for.
type Channel struct {
	group    *machine.PWM
	channel  uint8
	periodNs uint64
}

// NewChannel configures pin on group for the given pulse period (the
// servo/ESC refresh rate, typically 20ms for analog servos or as low
// as 2.5ms for OneShot125) and returns the resulting output channel.
func NewChannel(group *machine.PWM, pin machine.Pin, periodNs uint64) (Channel, error) {
	if err := group.Configure(machine.PWMConfig{Period: periodNs}); err != nil {
		return Channel{}, err
	}
	ch, err := group.Channel(pin)
	if err != nil {
		return Channel{}, err
	}
	return Channel{group: group, channel: ch, periodNs: periodNs}, nil
}

// SetPulse drives the channel to the given pulse width, in microseconds.
func (c Channel) SetPulse(pulseUs uint32) {
	top := c.group.Top()
	duty := uint32(uint64(pulseUs) * 1000 * uint64(top) / c.periodNs)
	c.group.Set(c.channel, duty)
}

// Bank maps a set of motor values in [0,1] onto a set of PWM channels,
// each with its own pulse range: [MinPulseUs, MaxPulseUs] for an ESC
// channel, or [MinPulseUs, MaxPulseUs] centered at the servo's
// CenterPulseUs-equivalent 50% point for a control-surface channel.
type Bank struct {
	channels   []Channel
	minPulseUs uint32
	maxPulseUs uint32
}

// NewBank returns a Bank driving channels with pulses linearly mapped
// from [0,1] into [minPulseUs, maxPulseUs], matching both setServo's
// and setESC's pulse-width convention.
func NewBank(channels []Channel, minPulseUs, maxPulseUs uint32) *Bank {
	return &Bank{channels: channels, minPulseUs: minPulseUs, maxPulseUs: maxPulseUs}
}

// Write satisfies scheduler.MotorWriter. When disarmed, every channel
// is driven to its neutral (minimum) pulse rather than left floating.
func (b *Bank) Write(values []float64, armed bool) {
	for i, ch := range b.channels {
		v := 0.0
		if armed && i < len(values) {
			v = values[i]
		}
		ch.SetPulse(b.scale(v))
	}
}

// Stop satisfies arming.Esc: drives every channel to its minimum pulse.
func (b *Bank) Stop() {
	for _, ch := range b.channels {
		ch.SetPulse(b.minPulseUs)
	}
}

// IsReady satisfies arming.Esc: analog PWM ESCs need no settling
// window beyond the receiver/IMU preconditions arming already checks.
func (b *Bank) IsReady(_ time.Time) bool { return true }

func (b *Bank) scale(v float64) uint32 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	span := float64(b.maxPulseUs - b.minPulseUs)
	return b.minPulseUs + uint32(v*span)
}
