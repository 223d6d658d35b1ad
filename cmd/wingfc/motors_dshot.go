//go:build dshot

package main

import (
	"machine"
	"time"

	"github.com/wingfc/firmware/internal/config"
	"github.com/wingfc/firmware/internal/dshot"
	"github.com/wingfc/firmware/internal/mixer"
)

const (
	pidKp = 0.5
	pidKi = 0.1
	pidKd = 0.2
)

// newMixer wires a conventional X-quad layout.
func newMixer(cfg config.MixerConfig) *mixer.Mixer {
	return mixer.NewQuadMixer(cfg, pidKp, pidKi, pidKd)
}

// idleOutput is what the motor bank is driven to while disarmed: every motor off.
func idleOutput() []float64 { return []float64{0, 0, 0, 0} }

type motorBank interface {
	Write(values []float64, armed bool)
	Stop()
	IsReady(now time.Time) bool
}

// dshotBank adapts dshot.Bank's Arm(now) lifecycle onto the
// lazily-initialized IsReady the arming state machine expects: the
// first IsReady call arms the bank and starts its ready window.
type dshotBank struct {
	*dshot.Bank
	armTriggered bool
}

func (d *dshotBank) IsReady(now time.Time) bool {
	if !d.armTriggered {
		d.Arm(now)
		d.armTriggered = true
	}
	return d.Bank.IsReady(now)
}

// newMotorBank wires the DShot output stage: one ESC channel per motor
// pin, 600kbit/s, the configured digital idle offset.
func newMotorBank(cfg config.MixerConfig) motorBank {
	proto := dshot.NewProtocol(600)
	pins := []machine.Pin{machine.D2, machine.D3, machine.D4, machine.D5}
	return &dshotBank{Bank: dshot.NewBank(proto, pins, cfg.DigitalIdleOffset, 500*time.Millisecond)}
}
