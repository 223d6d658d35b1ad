// Package telemetrybridge relays decoded MSP telemetry from a
// serial/TCP link into an MQTT broker and a set of websocket clients,
// grounded on an earlier collector.go's MQTT publish loop (broker
// connect, client options, publish-on-decode). The fan-out to
// multiple live websocket clients uses a subscriber-set broadcast
// instead of that collector's per-sensor ring buffers, since nothing
// here needs historical replay, only the latest decoded frame.
package telemetrybridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/wingfc/firmware/internal/flightstate"
	"github.com/wingfc/firmware/internal/msp"
)

// Reading is one decoded telemetry frame, tagged with its arrival time.
type Reading struct {
	At       time.Time                `json:"at"`
	Channels []float64                `json:"channels,omitempty"`
	Attitude *flightstate.VehicleState `json:"attitude,omitempty"`
}

// Config configures the bridge's MQTT connection.
type Config struct {
	MQTTBroker string
	MQTTPort   int
	MQTTTopic  string
	ClientID   string
}

// Bridge owns the MQTT client, the decoder state, and the set of
// subscribed websocket broadcasters.
type Bridge struct {
	cfg    Config
	client mqtt.Client

	mu   sync.RWMutex
	subs map[chan Reading]struct{}
}

// NewBridge returns a Bridge not yet connected to its broker.
func NewBridge(cfg Config) *Bridge {
	return &Bridge{cfg: cfg, subs: make(map[chan Reading]struct{})}
}

// Connect opens the MQTT connection, following the familiar
// options/OnConnect/OnConnectionLost wiring.
func (b *Bridge) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", b.cfg.MQTTBroker, b.cfg.MQTTPort))
	clientID := b.cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("wingfc-groundstation-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("[mqtt] connection lost: %v", err)
	}

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect timeout")
	}
	return token.Error()
}

// Subscribe registers a channel that receives every decoded Reading,
// the broadcast-hub side a websocket handler drains from.
func (b *Bridge) Subscribe() chan Reading {
	ch := make(chan Reading, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (b *Bridge) Unsubscribe(ch chan Reading) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

func (b *Bridge) broadcast(r Reading) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- r:
		default:
			// Slow consumer: drop rather than block the decode loop.
		}
	}
}

func (b *Bridge) publish(r Reading) {
	if b.client == nil {
		return
	}
	payload, err := json.Marshal(r)
	if err != nil {
		log.Printf("[mqtt] marshal failed: %v", err)
		return
	}
	token := b.client.Publish(b.cfg.MQTTTopic, 0, false, payload)
	token.WaitTimeout(time.Second)
}

// Run decodes MSP frames from src until ctx is cancelled or src
// returns an error, publishing each to MQTT and the subscriber hub.
// The errgroup here carries exactly one goroutine today, the same
// shape a decode-worker pool would use, so adding a second concurrent
// source later is a one-line change.
func (b *Bridge) Run(ctx context.Context, src io.Reader) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.decodeLoop(ctx, src)
	})

	return g.Wait()
}

func (b *Bridge) decodeLoop(ctx context.Context, src io.Reader) error {
	parser := msp.NewParser()
	buf := make([]byte, 256)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := src.Read(buf)
		if err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			frame, ok := parser.Feed(buf[i])
			if !ok {
				continue
			}
			b.handleFrame(frame)
		}
	}
}

func (b *Bridge) handleFrame(frame msp.Frame) {
	if frame.Dir != msp.DirResponse {
		return
	}

	reading := Reading{At: time.Now()}
	switch frame.Type {
	case msp.TypeChannels:
		reading.Channels = msp.DecodeChannels(frame.Payload)
	case msp.TypeAttitude:
		state, ok := msp.DecodeAttitude(frame.Payload)
		if !ok {
			return
		}
		reading.Attitude = &state
	default:
		return
	}

	b.publish(reading)
	b.broadcast(reading)
}
