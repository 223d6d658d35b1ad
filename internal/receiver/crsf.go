//go:build crsf

package receiver

import "github.com/wingfc/firmware/internal/config"

// CRSF/ELRS framing constants, ported from an earlier crsf.go.
const (
	crsfFlightController    = 0xC8
	crsfFrameTypeRCChannels = 0x16
	crsfPacketSize          = 26
)

type crsfState int

const (
	crsfDestination crsfState = iota
	crsfLength
	crsfType
	crsfPayload
	crsfChecksum
)

// CRSFDecoder decodes CRSF/ELRS RC-channels frames: sync byte, length,
// frame type, 22-byte bitpacked payload, CRC8-DVB-S2 trailer.
type CRSFDecoder struct {
	state crsfState
	packet [crsfPacketSize]byte
	index  uint8
	length uint8
}

// NewDecoder returns the build-selected Decoder for this target.
func NewDecoder() Decoder { return &CRSFDecoder{state: crsfDestination} }

// Feed implements Decoder.
func (d *CRSFDecoder) Feed(b byte) (ChannelFrame, bool) {
	switch d.state {
	case crsfDestination:
		if b == crsfFlightController {
			d.packet[0] = b
			d.index = 1
			d.state = crsfLength
		}
	case crsfLength:
		if b >= 2 && b <= 64 {
			d.length = b
			d.packet[d.index] = b
			d.index++
			d.state = crsfType
		} else {
			d.reset()
		}
	case crsfType:
		if b == crsfFrameTypeRCChannels {
			d.packet[d.index] = b
			d.index++
			d.state = crsfPayload
		} else {
			d.reset()
		}
	case crsfPayload:
		d.packet[d.index] = b
		d.index++
		if d.index >= d.length+1 {
			d.state = crsfChecksum
		}
	case crsfChecksum:
		defer d.reset()
		if crc8DVBS2(d.packet[2:d.index]) != b {
			return ChannelFrame{}, false
		}
		return d.decode(), true
	}
	return ChannelFrame{}, false
}

func (d *CRSFDecoder) reset() {
	d.packet = [crsfPacketSize]byte{}
	d.index = 0
	d.state = crsfDestination
}

// decode unpacks the 11-bit channel values from the payload bitstream,
// ported from an earlier processReceiverPacket.
func (d *CRSFDecoder) decode() ChannelFrame {
	const payloadStart = 3
	bitstream := d.packet[payloadStart : crsfPacketSize-1]

	var frame ChannelFrame
	var bitsMerged uint
	var readValue uint32
	var readIndex int

	for n := 0; n < config.NumChannels; n++ {
		for bitsMerged < 11 {
			if readIndex >= len(bitstream) {
				frame.Valid = true
				return frame
			}
			readValue |= uint32(bitstream[readIndex]) << bitsMerged
			readIndex++
			bitsMerged += 8
		}
		frame.Channels[n] = uint16(readValue & 0x07FF)
		readValue >>= 11
		bitsMerged -= 11
	}
	frame.Valid = true
	return frame
}

// crc8DVBS2 computes the CRC8-DVB-S2 checksum CRSF frames use.
func crc8DVBS2(data []byte) byte {
	crc := byte(0)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0xD5
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
