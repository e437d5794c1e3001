// Package preview mirrors shown frames to websocket clients.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

const writeWait = 200 * time.Millisecond

// Topology is sent to every client once, on connect.
type Topology struct {
	Count  int    `json:"count"`
	Panes  int    `json:"panes"`
	Strips int    `json:"strips"`
	Length int    `json:"length"`
	Sink   string `json:"sink"`
}

// Frame is one shown frame. GRB holds three bytes per LED in wire order.
type Frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	GRB     []byte `json:"grb"`
}

type Hub struct {
	mu        sync.Mutex
	top       Topology
	clients   map[*websocket.Conn]bool
	frameID   uint64
	startTime time.Time
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

func NewHub(top Topology, log zerolog.Logger) *Hub {
	return &Hub{
		top:       top,
		clients:   map[*websocket.Conn]bool{},
		startTime: time.Now(),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:       log,
	}
}

// Handler serves /ws and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return withCORS(mux)
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Observe broadcasts leds to every connected client. Clients that fail a
// write are dropped.
func (h *Hub) Observe(leds []ws2812b.LED) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.frameID++
	if len(h.clients) == 0 {
		return
	}

	grb := make([]byte, 0, len(leds)*3)
	for _, l := range leds {
		grb = append(grb, l.Green, l.Red, l.Blue)
	}
	b, err := json.Marshal(Frame{T: time.Now().UnixNano(), FrameID: h.frameID, GRB: grb})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal frame")
		return
	}

	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Str("remote", c.RemoteAddr().String()).Msg("write frame")
			delete(h.clients, c)
			c.Close()
		}
	}
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade")
		return
	}

	h.mu.Lock()
	b, _ := json.Marshal(h.top)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = true
	h.mu.Unlock()
	h.log.Info().Str("remote", r.RemoteAddr).Msg("preview client connected")

	go func() {
		defer func() {
			h.mu.Lock()
			if h.clients[conn] {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	resp := map[string]any{
		"frame_id": h.frameID,
		"uptime_s": time.Since(h.startTime).Seconds(),
		"count":    h.top.Count,
		"sink":     h.top.Sink,
		"clients":  len(h.clients),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("write health")
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
