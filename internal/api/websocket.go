package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsSender adapts a gorilla/websocket connection to stream.Sender. Callers
// must serialize writes through this type; gorilla/websocket allows only
// one writer goroutine per connection.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// handleStream upgrades the connection, waits for the client's readiness
// frame ("1"), then hands the session to the broadcaster. A background
// goroutine keeps reading so the handler notices when the client
// disconnects; it otherwise discards everything the client sends.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("stream: upgrade error:", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ready := make(chan struct{})
	var readyOnce sync.Once
	go func() {
		defer cancel()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "1" {
				readyOnce.Do(func() { close(ready) })
			}
		}
	}()

	select {
	case <-ready:
	case <-ctx.Done():
		return
	}

	s.broadcaster.ServeSession(ctx, &wsSender{conn: conn})
}
