//go:build linux && ppm

package receiver

import (
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/wingfc/firmware/internal/config"
)

// PpmLine is a Linux GPIO-cdev alternate receiver driver: a single
// PPM pulse-train input decoded into a ChannelFrame, for host-side
// testing and Linux-SBC targets that lack a UART-framed protocol.
// Ported from an earlier PpmLineInput, generalized from that driver's
// direct channel-array writes into a Decoder that feeds a
// receiver.Pipeline the same way the UART-framed protocols do.
type PpmLine struct {
	line *gpiocdev.Line

	syncThreshold time.Duration
	lastEdge      time.Time
	pulseIndex    int
	rawPulses     [config.NumChannels]time.Duration

	frames chan ChannelFrame
}

// NewPpmLine requests the given chip/line as a pull-up, rising-edge
// input and starts decoding PPM frames from it.
func NewPpmLine(chipName string, lineNum int, syncThreshold time.Duration) (*PpmLine, error) {
	p := &PpmLine{syncThreshold: syncThreshold, pulseIndex: -1, frames: make(chan ChannelFrame, 1)}

	line, err := gpiocdev.RequestLine(chipName, lineNum,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(p.onEdge))
	if err != nil {
		return nil, err
	}
	p.line = line
	return p, nil
}

// Close releases the GPIO line.
func (p *PpmLine) Close() error { return p.line.Close() }

func (p *PpmLine) onEdge(evt gpiocdev.LineEvent) {
	now := time.Now()
	width := now.Sub(p.lastEdge)
	p.lastEdge = now

	if evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}

	if width > p.syncThreshold || p.pulseIndex == config.NumChannels-1 {
		if p.pulseIndex == config.NumChannels-1 {
			p.emit()
		}
		p.pulseIndex = -1
		return
	}

	p.pulseIndex++
	p.rawPulses[p.pulseIndex] = width
}

func (p *PpmLine) emit() {
	var frame ChannelFrame
	for i, d := range p.rawPulses {
		frame.Channels[i] = uint16(d.Microseconds())
	}
	frame.Valid = true

	select {
	case p.frames <- frame:
	default:
		// A frame is already pending; drop this one rather than block
		// the GPIO event-handler goroutine.
	}
}

// Frames returns the channel the pipeline should drain decoded frames
// from; PpmLine has no byte-oriented Feed since it decodes whole
// frames directly from GPIO edge timing.
func (p *PpmLine) Frames() <-chan ChannelFrame { return p.frames }

// Drain is a convenience loop applying every decoded frame from a
// PpmLine onto a Pipeline until the channel closes.
func Drain(p *PpmLine, pipeline *Pipeline) {
	for frame := range p.frames {
		pipeline.applyFrame(frame, time.Now())
	}
}
