// Package led drives the single status LED through the vehicle's
// lifecycle phases, built around a pattern-table state machine and
// generalized to react to the arming component's WarningState plus
// the top-level boot phases.
package led

import (
	"machine"
	"time"
)

// Pattern is one blink behavior.
type Pattern int

const (
	Off Pattern = iota
	On
	SlowFlash
	FastFlash
	Alternate
)

// State drives one GPIO pin through a Pattern.
type State struct {
	pin        machine.Pin
	pattern    Pattern
	lastToggle time.Time
	isOn       bool
}

// New configures pin as an output and returns an off State.
func New(pin machine.Pin) *State {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &State{pin: pin, lastToggle: time.Now()}
}

// Set changes the active pattern.
func (s *State) Set(p Pattern) { s.pattern = p }

// Update advances the pattern's blink timing; call once per outer cycle.
func (s *State) Update(now time.Time) {
	switch s.pattern {
	case Off:
		s.pin.Low()
		s.isOn = false
	case On:
		s.pin.High()
		s.isOn = true
	case SlowFlash:
		s.toggleEvery(now, 250*time.Millisecond)
	case FastFlash:
		s.toggleEvery(now, 50*time.Millisecond)
	case Alternate:
		s.toggleEvery(now, 500*time.Millisecond)
	}
}

func (s *State) toggleEvery(now time.Time, period time.Duration) {
	if now.Sub(s.lastToggle) < period {
		return
	}
	if s.isOn {
		s.pin.Low()
	} else {
		s.pin.High()
	}
	s.isOn = !s.isOn
	s.lastToggle = now
}
