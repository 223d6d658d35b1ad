package msp

import (
	"testing"

	"github.com/wingfc/firmware/internal/flightstate"
)

func TestEncodeDecodeFloatRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 1.234, -1.999, 0.001} {
		buf := EncodeFloat(v)
		got := DecodeFloat(buf)
		if diff := got - v; diff > 0.001 || diff < -0.001 {
			t.Errorf("EncodeFloat/DecodeFloat(%v) round-tripped to %v", v, got)
		}
	}
}

func TestEncodeAttitudeWireForm(t *testing.T) {
	payload := []byte{}
	for _, v := range []float64{0, 0, 0} {
		b := EncodeFloat(v)
		payload = append(payload, b[:]...)
	}
	frame := Encode(DirResponse, TypeAttitude, payload)

	if frame[0] != '$' || frame[1] != 'M' || frame[2] != byte(DirResponse) {
		t.Fatalf("unexpected header: %v", frame[:3])
	}
	if frame[3] != 12 {
		t.Fatalf("expected length 12, got %d", frame[3])
	}
	if frame[4] != TypeAttitude {
		t.Fatalf("expected type %d, got %d", TypeAttitude, frame[4])
	}
}

func feedAll(p *Parser, bytes []byte) (Frame, bool) {
	var frame Frame
	var ok bool
	for _, b := range bytes {
		frame, ok = p.Feed(b)
	}
	return frame, ok
}

func TestParserRoundTripsRequestFrame(t *testing.T) {
	encoded := Encode(DirRequest, TypeChannels, nil)

	p := NewParser()
	frame, ok := feedAll(p, encoded)
	if !ok {
		t.Fatalf("parser did not complete on valid frame: %v", encoded)
	}
	if frame.Dir != DirRequest || frame.Type != TypeChannels || len(frame.Payload) != 0 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestParserRoundTripsPayloadFrame(t *testing.T) {
	override := []byte{3, 50}
	encoded := Encode(DirRequest, TypeMotorOverride, override)

	p := NewParser()
	frame, ok := feedAll(p, encoded)
	if !ok {
		t.Fatalf("parser did not complete: %v", encoded)
	}
	if frame.Type != TypeMotorOverride || len(frame.Payload) != 2 || frame.Payload[0] != 3 || frame.Payload[1] != 50 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestParserRejectsBadChecksum(t *testing.T) {
	encoded := Encode(DirResponse, TypeAttitude, []byte{1, 2, 3, 4})
	encoded[len(encoded)-1] ^= 0xFF // corrupt the checksum byte

	p := NewParser()
	_, ok := feedAll(p, encoded)
	if ok {
		t.Fatalf("expected checksum mismatch to be rejected")
	}
}

func TestParserResyncsAfterGarbage(t *testing.T) {
	p := NewParser()
	for _, b := range []byte{0xAA, 0xBB, 0xCC} {
		if _, ok := p.Feed(b); ok {
			t.Fatalf("garbage byte 0x%x unexpectedly completed a frame", b)
		}
	}

	encoded := Encode(DirRequest, TypeChannels, nil)
	frame, ok := feedAll(p, encoded)
	if !ok {
		t.Fatalf("parser failed to resync after garbage bytes")
	}
	if frame.Type != TypeChannels {
		t.Fatalf("unexpected frame after resync: %+v", frame)
	}
}

func TestHandlerRespondsToChannelsRequest(t *testing.T) {
	channels := []float64{1500, 1500, 1500, 1500}
	h := NewHandler(
		func() []float64 { return channels },
		func() flightstate.VehicleState { return flightstate.VehicleState{} },
		func() bool { return false },
		func(MotorOverride) {},
	)

	request := Encode(DirRequest, TypeChannels, nil)
	var out []byte
	for _, b := range request {
		if resp := h.Feed(b); resp != nil {
			out = resp
		}
	}
	if out == nil {
		t.Fatalf("handler produced no response to a type-121 request")
	}

	decoded := DecodeChannels(out[5 : len(out)-1])
	if len(decoded) != len(channels) {
		t.Fatalf("expected %d decoded channels, got %d", len(channels), len(decoded))
	}
	for i, v := range decoded {
		if diff := v - channels[i]; diff > 0.001 || diff < -0.001 {
			t.Errorf("channel %d round-tripped to %v, want %v", i, v, channels[i])
		}
	}
}

func TestHandlerIgnoresOverrideWhileArmed(t *testing.T) {
	var captured *MotorOverride
	h := NewHandler(
		func() []float64 { return nil },
		func() flightstate.VehicleState { return flightstate.VehicleState{} },
		func() bool { return true }, // armed
		func(o MotorOverride) { captured = &o },
	)

	request := Encode(DirRequest, TypeMotorOverride, []byte{0, 75})
	for _, b := range request {
		h.Feed(b)
	}
	if captured != nil {
		t.Fatalf("override accepted while armed: %+v", captured)
	}
}

func TestHandlerAcceptsOverrideWhileDisarmed(t *testing.T) {
	var captured *MotorOverride
	h := NewHandler(
		func() []float64 { return nil },
		func() flightstate.VehicleState { return flightstate.VehicleState{} },
		func() bool { return false },
		func(o MotorOverride) { captured = &o },
	)

	request := Encode(DirRequest, TypeMotorOverride, []byte{2, 60})
	for _, b := range request {
		h.Feed(b)
	}
	if captured == nil {
		t.Fatalf("override not accepted while disarmed")
	}
	if captured.Index != 2 || captured.Percent != 60 {
		t.Fatalf("unexpected override: %+v", captured)
	}
}
