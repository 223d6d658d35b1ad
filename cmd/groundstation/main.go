// Command groundstation is the host-side companion to wingfc: it
// opens a serial or TCP link to a flight controller, decodes its MSP
// telemetry responses, republishes them to an MQTT broker, and serves
// them to browser dashboards over a websocket. Grounded on
// an earlier Collector's MQTT connect/publish loop, with the
// read/publish/serve concerns run as concurrent goroutines coordinated
// by golang.org/x/sync/errgroup rather than that collector's own
// goroutine wiring.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingfc/firmware/internal/telemetrybridge"
)

func main() {
	var (
		linkAddr   = flag.String("link", "tcp://localhost:5760", "MSP source: tcp://host:port or a serial device path")
		mqttBroker = flag.String("mqtt-broker", "localhost", "MQTT broker host")
		mqttPort   = flag.Int("mqtt-port", 1883, "MQTT broker port")
		mqttTopic  = flag.String("mqtt-topic", "wingfc/telemetry", "MQTT publish topic")
		httpAddr   = flag.String("http", ":8089", "websocket listen address")
	)
	flag.Parse()

	bridge := telemetrybridge.NewBridge(telemetrybridge.Config{
		MQTTBroker: *mqttBroker,
		MQTTPort:   *mqttPort,
		MQTTTopic:  *mqttTopic,
	})

	if err := bridge.Connect(); err != nil {
		log.Fatalf("mqtt connect: %v", err)
	}
	log.Printf("connected to mqtt broker %s:%d, topic %s", *mqttBroker, *mqttPort, *mqttTopic)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dialAndRun(ctx, bridge, *linkAddr)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", bridge.ServeWS)
	server := &http.Server{Addr: *httpAddr, Handler: mux}

	g.Go(func() error {
		log.Printf("serving websocket on %s/ws", *httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("groundstation: %v", err)
	}
}

// dialAndRun opens the MSP source and runs the bridge's decode loop
// against it, reconnecting with a backoff if the link drops, since a
// ground-station session usually outlives any single radio/USB link.
func dialAndRun(ctx context.Context, bridge *telemetrybridge.Bridge, addr string) error {
	backoff := time.Second
	for ctx.Err() == nil {
		link, err := dialLink(ctx, addr)
		if err != nil {
			log.Printf("link dial failed: %v, retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		log.Printf("link connected: %s", addr)

		err = bridge.Run(ctx, link)
		link.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("link closed: %v, reconnecting", err)
	}
	return ctx.Err()
}

// dialLink opens the MSP source, either a TCP endpoint (the usual
// case against a simulator or a network-attached link) or a tty
// device path. The tty path is a plain file open: no host-side
// serial-port library appears anywhere in this codebase's dependency
// stack, so line discipline (baud, parity) is left to the operator via
// stty before launch rather than pulling in an unrelated dependency.
func dialLink(ctx context.Context, addr string) (io.ReadCloser, error) {
	if rest, ok := strings.CutPrefix(addr, "tcp://"); ok {
		d := net.Dialer{Timeout: 5 * time.Second}
		return d.DialContext(ctx, "tcp", rest)
	}
	return os.OpenFile(addr, os.O_RDWR, 0)
}
