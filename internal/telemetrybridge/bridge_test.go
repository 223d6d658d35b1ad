package telemetrybridge

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/wingfc/firmware/internal/flightstate"
	"github.com/wingfc/firmware/internal/msp"
)

func TestRunBroadcastsDecodedChannelsFrame(t *testing.T) {
	b := NewBridge(Config{MQTTTopic: "wingfc/telemetry"})
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	wire := msp.EncodeChannels([]float64{1500, 1500, 1500, 1500})
	src := bytes.NewReader(wire)

	err := b.Run(context.Background(), src)
	if err != io.EOF {
		t.Fatalf("expected io.EOF once the source is exhausted, got %v", err)
	}

	select {
	case reading := <-sub:
		if len(reading.Channels) != 4 {
			t.Fatalf("expected 4 decoded channels, got %d", len(reading.Channels))
		}
		if reading.Channels[0] != 1500 {
			t.Errorf("channel 0 decoded to %v, want 1500", reading.Channels[0])
		}
	default:
		t.Fatalf("expected a broadcast reading after decoding a valid frame")
	}
}

func TestRunBroadcastsDecodedAttitudeFrame(t *testing.T) {
	b := NewBridge(Config{MQTTTopic: "wingfc/telemetry"})
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	state := flightstate.VehicleState{Phi: 0.1, Theta: -0.2, Psi: 0}
	wire := msp.EncodeAttitude(state)

	b.Run(context.Background(), bytes.NewReader(wire))

	select {
	case reading := <-sub:
		if reading.Attitude == nil {
			t.Fatalf("expected a decoded attitude reading")
		}
		if diff := reading.Attitude.Phi - state.Phi; diff > 0.001 || diff < -0.001 {
			t.Errorf("phi decoded to %v, want %v", reading.Attitude.Phi, state.Phi)
		}
	default:
		t.Fatalf("expected a broadcast reading after decoding a valid attitude frame")
	}
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	b := NewBridge(Config{})
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	wire := msp.EncodeChannels([]float64{1500})
	b.Run(context.Background(), bytes.NewReader(wire))

	_, open := <-sub
	if open {
		t.Errorf("expected the unsubscribed channel to be closed")
	}
}
