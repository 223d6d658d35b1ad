package telemetrybridge

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades r to a websocket and streams every Reading the
// bridge decodes to it until the connection closes, the browser-facing
// counterpart to the MQTT publish side of Run.
func (b *Bridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	conn.SetReadDeadline(time.Now().Add(time.Minute))
	go b.drainClientReads(conn)

	for reading := range ch {
		payload, err := json.Marshal(reading)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// drainClientReads discards inbound frames from the browser, only
// watching for the close handshake so the write loop above notices a
// dead peer instead of blocking forever.
func (b *Bridge) drainClientReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}
