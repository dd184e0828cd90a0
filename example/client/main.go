// Connects to a running control server, reads the variable catalog,
// adjusts one variable, then starts a stream and prints decoded sample
// chunks until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"

	wscontrol "github.com/jocoteles/ESP32WebSocketControl"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "Control server WebSocket URL")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", *url, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	commands := []string{
		`{"action":"get_all_vars_config"}`,
		`{"action":"set","variable":"led_intensity","value":200}`,
		`{"action":"start_stream"}`,
	}
	for _, cmd := range commands {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatalf("read: %v", err)
		}

		switch messageType {
		case websocket.TextMessage:
			fmt.Printf("message: %s\n", data)
		case websocket.BinaryMessage:
			records, err := wscontrol.DecodeChunk(data)
			if err != nil {
				log.Printf("bad chunk: %v", err)
				continue
			}
			first, last := records[0], records[len(records)-1]
			fmt.Printf("chunk: %d samples, t=%dms..%dms, ch0=%d..%d\n",
				len(records), first.TimeMs, last.TimeMs,
				first.Readings[0], last.Readings[0])
		}
	}
}
