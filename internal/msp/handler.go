package msp

import "github.com/wingfc/firmware/internal/flightstate"

// MotorOverride is one decoded type-215 request: force motor Index to
// Percent throttle, honored only while disarmed.
type MotorOverride struct {
	Index   byte
	Percent byte
}

// EncodeChannels builds a type-121 response: each receiver channel as
// an MSP-encoded float, in wire order.
func EncodeChannels(channels []float64) []byte {
	payload := make([]byte, 0, 4*len(channels))
	for _, c := range channels {
		b := EncodeFloat(c)
		payload = append(payload, b[:]...)
	}
	return Encode(DirResponse, TypeChannels, payload)
}

// EncodeAttitude builds a type-122 response: φ, θ, ψ as three
// MSP-encoded floats ($M> 12 122 <12 bytes> <checksum>).
func EncodeAttitude(state flightstate.VehicleState) []byte {
	payload := make([]byte, 0, 12)
	for _, v := range []float64{state.Phi, state.Theta, state.Psi} {
		b := EncodeFloat(v)
		payload = append(payload, b[:]...)
	}
	return Encode(DirResponse, TypeAttitude, payload)
}

// DecodeChannels reverses EncodeChannels, the ground-station side's
// counterpart for type-121 responses.
func DecodeChannels(payload []byte) []float64 {
	out := make([]float64, 0, len(payload)/4)
	for i := 0; i+4 <= len(payload); i += 4 {
		var b [4]byte
		copy(b[:], payload[i:i+4])
		out = append(out, DecodeFloat(b))
	}
	return out
}

// DecodeAttitude reverses EncodeAttitude.
func DecodeAttitude(payload []byte) (flightstate.VehicleState, bool) {
	if len(payload) != 12 {
		return flightstate.VehicleState{}, false
	}
	var vals [3]float64
	for i := 0; i < 3; i++ {
		var b [4]byte
		copy(b[:], payload[i*4:i*4+4])
		vals[i] = DecodeFloat(b)
	}
	return flightstate.VehicleState{Phi: vals[0], Theta: vals[1], Psi: vals[2]}, true
}

// DecodeMotorOverride parses a type-215 payload.
func DecodeMotorOverride(payload []byte) (MotorOverride, bool) {
	if len(payload) != 2 {
		return MotorOverride{}, false
	}
	return MotorOverride{Index: payload[0], Percent: payload[1]}, true
}

// Handler ties the byte-level Parser to the rest of the system: it
// turns inbound request frames into outbound response bytes, and
// inbound type-215 frames into override callbacks. It owns no serial
// transport itself; the orchestrator feeds bytes in and writes bytes
// out.
type Handler struct {
	parser *Parser

	channelsFn func() []float64
	stateFn    func() flightstate.VehicleState
	overrideFn func(MotorOverride)
	armedFn    func() bool
}

// NewHandler wires the capability record the telemetry task needs:
// the current channel buffer, the current attitude estimate, whether
// the vehicle is armed, and a sink for accepted motor overrides.
func NewHandler(channelsFn func() []float64, stateFn func() flightstate.VehicleState, armedFn func() bool, overrideFn func(MotorOverride)) *Handler {
	return &Handler{parser: NewParser(), channelsFn: channelsFn, stateFn: stateFn, armedFn: armedFn, overrideFn: overrideFn}
}

// Feed processes one inbound byte and returns the bytes to write back
// on the wire, if any. A malformed frame yields nothing, matching the
// parser's idle-reset-on-checksum-mismatch policy.
func (h *Handler) Feed(b byte) []byte {
	frame, ok := h.parser.Feed(b)
	if !ok {
		return nil
	}

	if frame.Dir != DirRequest {
		// The telemetry task never receives its own responses on the
		// same link; a response frame inbound is unexpected and ignored.
		return nil
	}

	switch frame.Type {
	case TypeChannels:
		return EncodeChannels(h.channelsFn())
	case TypeAttitude:
		return EncodeAttitude(h.stateFn())
	case TypeMotorOverride:
		h.handleOverride(frame.Payload)
		return nil
	default:
		return nil
	}
}

func (h *Handler) handleOverride(payload []byte) {
	override, ok := DecodeMotorOverride(payload)
	if !ok {
		return
	}
	if h.armedFn() {
		return
	}
	h.overrideFn(override)
}
