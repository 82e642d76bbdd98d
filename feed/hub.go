// Package feed pushes engine snapshots to display clients over WebSocket.
package feed

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/sim"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Hub fans snapshots out to every connected client. A client that falls
// behind skips snapshots rather than blocking the engine.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	latest  []byte
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log: log.Named("feed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[chan []byte]struct{}),
	}
}

// Publish encodes s and queues it for every client. It has the signature of
// an engine subscriber.
func (h *Hub) Publish(s sim.Snapshot) {
	msg, err := sonic.Marshal(s)
	if err != nil {
		h.log.Error("encode snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = msg
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Latest returns the last published snapshot as JSON, nil before the first.
func (h *Hub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() (chan []byte, []byte) {
	ch := make(chan []byte, sendBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ch] = struct{}{}
	return ch, h.latest
}

func (h *Hub) unregister(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}

// ServeWS upgrades the request and streams snapshots until the client goes
// away. The latest snapshot, if any, is sent first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, first := h.register()
	defer h.unregister(ch)
	h.log.Debug("client connected", zap.String("remote", r.RemoteAddr))

	// Reads only serve control frames and detect the close.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if first != nil {
		if err := h.write(conn, websocket.TextMessage, first); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			h.log.Debug("client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case msg := <-ch:
			if err := h.write(conn, websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, kind int, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(kind, msg); err != nil {
		h.log.Debug("write failed", zap.Error(err))
		return err
	}
	return nil
}

// ServeSnapshot answers with the latest snapshot, 204 before the first.
func (h *Hub) ServeSnapshot(w http.ResponseWriter, r *http.Request) {
	msg := h.Latest()
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(msg)
}

// Handler mounts /ws and /snapshot on mux.
func (h *Hub) Handler(mux *http.ServeMux) *http.ServeMux {
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /snapshot", h.ServeSnapshot)
	return mux
}
