// Package msp implements the telemetry task: a byte-oriented MSP
// parser and its outbound/inbound frame types. No earlier telemetry
// channel exists to build from here, so this package is grounded
// directly on original_source/parser.hpp's request/response framing,
// written in a terse, comment-sparse style and using stdlib
// encoding/binary for the wire encoding (no MSP/Betaflight-protocol
// library exists to wire in here instead; see DESIGN.md).
package msp

import "encoding/binary"

// Direction distinguishes a request frame ($M<) from a response ($M>).
type Direction byte

const (
	DirRequest  Direction = '<'
	DirResponse Direction = '>'
)

// Outbound/inbound message types in scope.
const (
	TypeChannels      = 121
	TypeAttitude      = 122
	TypeMotorOverride = 215
)

// floatScale/floatOffset implement the wire encoding:
// round((v+2)*1000) as a little-endian int32.
const (
	floatOffset = 2.0
	floatScale  = 1000.0
)

// EncodeFloat converts one MSP-encoded float field to its 4-byte
// little-endian wire form.
func EncodeFloat(v float64) [4]byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32((v+floatOffset)*floatScale+0.5)))
	return buf
}

// DecodeFloat reverses EncodeFloat.
func DecodeFloat(buf [4]byte) float64 {
	raw := int32(binary.LittleEndian.Uint32(buf[:]))
	return float64(raw)/floatScale - floatOffset
}

// Frame is one parsed MSP frame: direction, payload length, type, and
// payload. The checksum is verified during parsing, never carried here.
type Frame struct {
	Dir     Direction
	Type    byte
	Payload []byte
}

func checksum(length, typ byte, payload []byte) byte {
	c := length ^ typ
	for _, b := range payload {
		c ^= b
	}
	return c
}

// Encode serializes a frame to its wire form: '$' 'M' dir length type
// payload checksum.
func Encode(dir Direction, typ byte, payload []byte) []byte {
	out := make([]byte, 0, 6+len(payload))
	out = append(out, '$', 'M', byte(dir), byte(len(payload)), typ)
	out = append(out, payload...)
	out = append(out, checksum(byte(len(payload)), typ, payload))
	return out
}

// parseState is the five-state frame-parsing DFA.
type parseState int

const (
	stateIdle parseState = iota
	stateM
	stateDirection
	stateLength
	stateType
	statePayload
)

// Parser is a byte-at-a-time MSP frame decoder. Malformed frames
// (bad checksum, garbage bytes) reset to stateIdle without side
// effect, discarding the frame rather than propagating an error.
type Parser struct {
	state   parseState
	dir     Direction
	length  byte
	typ     byte
	payload []byte
}

// NewParser returns an idle parser.
func NewParser() *Parser { return &Parser{} }

// Feed processes one byte and returns a completed, checksum-verified
// frame when the trailing checksum byte lands, or ok=false otherwise.
func (p *Parser) Feed(b byte) (Frame, bool) {
	switch p.state {
	case stateIdle:
		if b == '$' {
			p.state = stateM
		}
	case stateM:
		if b == 'M' {
			p.state = stateDirection
		} else {
			p.state = stateIdle
		}
	case stateDirection:
		switch Direction(b) {
		case DirRequest, DirResponse:
			p.dir = Direction(b)
			p.state = stateLength
		default:
			p.state = stateIdle
		}
	case stateLength:
		p.length = b
		p.payload = make([]byte, 0, p.length)
		p.state = stateType
	case stateType:
		p.typ = b
		p.state = statePayload
	case statePayload:
		if byte(len(p.payload)) < p.length {
			p.payload = append(p.payload, b)
			return Frame{}, false
		}
		return p.finish(b)
	}
	return Frame{}, false
}

// finish validates the trailing checksum byte against length/type/payload.
func (p *Parser) finish(checksumByte byte) (Frame, bool) {
	want := checksum(p.length, p.typ, p.payload)
	p.state = stateIdle
	if checksumByte != want {
		return Frame{}, false
	}
	return Frame{Dir: p.dir, Type: p.typ, Payload: p.payload}, true
}
