// Package receiver implements the RC link front end: a wire-protocol
// decoder behind a narrow interface, the 300ms invalid-pulse hold
// window, per-channel failsafe fallback, and the pulse->demand
// conversion the mixer consumes. Ported from an earlier
// channels.go/ibus.go/crsf.go/elrs.go split, generalized from
// package-level globals into an explicit Pipeline, promoting global
// mutable module state into explicit fields on the owning component.
package receiver

import (
	"time"

	"github.com/wingfc/firmware/internal/config"
	"github.com/wingfc/firmware/internal/flightstate"
	"github.com/wingfc/firmware/internal/numeric"
)

// ChannelFrame is one decoded set of raw channel pulses plus the
// frame-validity flag the decoder produced it with.
type ChannelFrame struct {
	Channels [config.NumChannels]uint16
	Valid    bool

	// ProcessingRequired mirrors the original source's
	// auxiliaryProcessingRequired flag: set by a decoder that observed
	// an auxiliary frame type worth a future extension hook, but not
	// consumed by any pipeline path today (see DESIGN.md's Open
	// Questions).
	ProcessingRequired bool
}

// Decoder is the narrow capability the pipeline needs from a wire
// protocol: feed it bytes, get back complete frames. Concrete
// protocols (iBus, CRSF, ELRS) live in their own build-tagged files
// and are selected at compile time via NewDecoder.
type Decoder interface {
	Feed(b byte) (ChannelFrame, bool)
}

// channelHistory tracks one channel's last-valid pulse and the time
// it was last refreshed, backing the 300ms hold window.
type channelHistory struct {
	lastValid uint16
	lastGood  time.Time
	holding   bool
}

// Pipeline owns a Decoder, the per-channel hold/fallback state, and
// the last packet's arrival time, replacing an earlier channels.go's
// package-level Channels/LastPacketTime/PacketReady globals with
// explicit fields.
type Pipeline struct {
	decoder Decoder
	cfg     config.ReceiverConfig

	history        [config.NumChannels]channelHistory
	lastPacketTime time.Time
	haveSignal     bool
	justRecovered  bool
}

// NewPipeline returns a Pipeline around the given decoder.
func NewPipeline(decoder Decoder, cfg config.ReceiverConfig) *Pipeline {
	return &Pipeline{decoder: decoder, cfg: cfg}
}

// Feed processes one inbound byte, updating hold/fallback state
// whenever a complete frame assembles. now is the caller's sample
// clock (not wall time necessarily, but monotonic for hold-window math).
func (p *Pipeline) Feed(b byte, now time.Time) {
	frame, ok := p.decoder.Feed(b)
	if !ok {
		return
	}
	p.applyFrame(frame, now)
}

func (p *Pipeline) applyFrame(frame ChannelFrame, now time.Time) {
	if !frame.Valid {
		return
	}

	wasSignalLost := !p.haveSignal
	p.haveSignal = true
	p.justRecovered = wasSignalLost
	p.lastPacketTime = now

	for i, raw := range frame.Channels {
		h := &p.history[i]
		if isPulseValid(raw, p.cfg.PulseMin, p.cfg.PulseMax) {
			h.lastValid = raw
			h.lastGood = now
			h.holding = false
		}
	}
}

func isPulseValid(raw, min, max uint16) bool {
	return raw >= min && raw <= max
}

// HaveSignal reports whether a valid frame has been observed recently
// enough that the receiver is not considered silent. Callers combine
// this with the failsafe monitor's own staleness window.
func (p *Pipeline) HaveSignal() bool { return p.haveSignal }

// SetSignalLost is called by the failsafe monitor once it trips, so
// the next recovered frame is visible as a fresh recovery edge.
func (p *Pipeline) SetSignalLost() { p.haveSignal = false }

// resolvedChannel returns channel i's pulse after applying the 300ms
// hold window and, past that, the configured per-channel fallback.
func (p *Pipeline) resolvedChannel(i int, now time.Time) uint16 {
	h := &p.history[i]
	if now.Sub(h.lastGood) <= p.cfg.MaxInvalidHold {
		return h.lastValid
	}

	fc := p.cfg.ChannelFailsafe[i]
	switch fc.Mode {
	case config.FailsafeModeHold:
		return h.lastValid
	case config.FailsafeModeSet:
		return 885 + 25*uint16(fc.Step)
	case config.FailsafeModeInvalid:
		return 0
	default: // FailsafeModeAuto: throttle drops to 885, everything else centers at 1500
		if i == 0 {
			return 885
		}
		return 1500
	}
}

// Demands converts the resolved channel buffer into pilot demands: the
// first four slots are throttle, roll, pitch, yaw, scaled from
// [PulseMin,PulseMax] into throttle's [0,1] and roll/pitch/yaw's
// +/-DemandRateLimit ranges, then clamped to the demand-clamp
// invariant.
func (p *Pipeline) Demands(now time.Time) flightstate.Demands {
	throttle := numeric.MapRange(float64(p.resolvedChannel(0, now)), float64(p.cfg.PulseMin), float64(p.cfg.PulseMax), 0, 1)
	roll := numeric.MapRange(float64(p.resolvedChannel(1, now)), float64(p.cfg.PulseMin), float64(p.cfg.PulseMax), -flightstate.DemandRateLimit, flightstate.DemandRateLimit)
	pitch := numeric.MapRange(float64(p.resolvedChannel(2, now)), float64(p.cfg.PulseMin), float64(p.cfg.PulseMax), -flightstate.DemandRateLimit, flightstate.DemandRateLimit)
	yaw := numeric.MapRange(float64(p.resolvedChannel(3, now)), float64(p.cfg.PulseMin), float64(p.cfg.PulseMax), -flightstate.DemandRateLimit, flightstate.DemandRateLimit)

	d := flightstate.Demands{Throttle: throttle, Roll: roll, Pitch: pitch, Yaw: yaw, Reset: p.justRecovered}
	p.justRecovered = false
	return d.Clamp()
}

// AuxIsSet reports whether the arm switch (aux1, channel index 4) is
// above its midpoint, matching board.h's arm-switch threshold convention.
func (p *Pipeline) AuxIsSet(now time.Time) bool {
	return p.resolvedChannel(4, now) > (p.cfg.PulseMin+p.cfg.PulseMax)/2
}

// ThrottleIsDown reports whether the throttle channel is at or below
// its configured floor, one of the arming preconditions.
func (p *Pipeline) ThrottleIsDown(now time.Time) bool {
	return p.resolvedChannel(0, now) <= p.cfg.PulseMin+50
}

// ChannelsAsFloats exposes the resolved channel buffer for the
// telemetry task's type-121 response.
func (p *Pipeline) ChannelsAsFloats(now time.Time) []float64 {
	out := make([]float64, config.NumChannels)
	for i := range out {
		out[i] = float64(p.resolvedChannel(i, now))
	}
	return out
}
