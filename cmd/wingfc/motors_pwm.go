//go:build !dshot

package main

import (
	"machine"
	"time"

	"github.com/wingfc/firmware/internal/config"
	"github.com/wingfc/firmware/internal/escpwm"
	"github.com/wingfc/firmware/internal/mixer"
)

const (
	pidKp = 0.5
	pidKi = 0.1
	pidKd = 0.2
)

// newMixer wires the two-elevon flying-wing layout.
func newMixer(cfg config.MixerConfig) *mixer.Mixer {
	return mixer.NewWingMixer(cfg, pidKp, pidKi, pidKd)
}

// idleOutput is what the motor bank is driven to while disarmed:
// ESC off, both elevons centered.
func idleOutput() []float64 { return []float64{0, 0.5, 0.5} }

// motorBank is the capability the orchestrator needs from whichever
// ESC output driver is build-selected: scheduler.MotorWriter plus
// arming.Esc.
type motorBank interface {
	Write(values []float64, armed bool)
	Stop()
	IsReady(now time.Time) bool
}

// newMotorBank wires the default analog-PWM output stage: two servo
// channels (elevons) on pwm0 and one ESC channel on pwm1, matching an
// earlier hardware mapping in config.go/main.go.
func newMotorBank(cfg config.MixerConfig) motorBank {
	const servoPeriodNs = uint64(1e9 / 200)
	const escPeriodNs = uint64(1e9 / 500)

	left, err := escpwm.NewChannel(machine.PWM0, machine.D0, servoPeriodNs)
	if err != nil {
		panic(err)
	}
	right, err := escpwm.NewChannel(machine.PWM0, machine.D1, servoPeriodNs)
	if err != nil {
		panic(err)
	}
	esc, err := escpwm.NewChannel(machine.PWM1, machine.D2, escPeriodNs)
	if err != nil {
		panic(err)
	}

	bank := escpwm.NewBank([]escpwm.Channel{esc, left, right}, 1000, 2000)
	return bank
}
