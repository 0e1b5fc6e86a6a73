package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// SpectatorMessage is what spectators receive for every public event.
type SpectatorMessage struct {
	Type  string `json:"type"` // "event"
	Event Event  `json:"event"`
}

// Client represents a spectator websocket connection
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

func (c *Client) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Hub broadcasts public game events to all connected spectators. It only
// ever sees public events, so it can't leak a secret channel.
type Hub struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	history    [][]byte // public messages of the current game, replayed on connect
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// start runs the hub goroutine until stop is called
func (h *Hub) start() {
	h.wg.Add(1)
	go h.run()
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

// OnEvent queues public events for broadcast. It never blocks the game: when
// spectators fall too far behind, messages are dropped for them.
func (h *Hub) OnEvent(e Event) {
	if e.Visibility != VisibilityPublic {
		return
	}
	message, err := json.Marshal(SpectatorMessage{Type: "event", Event: e})
	if err != nil {
		logError("hub.OnEvent: marshal", err)
		return
	}
	h.mu.Lock()
	if e.Seq == 1 {
		h.history = nil
	}
	h.history = append(h.history, message)
	h.mu.Unlock()

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Spectator hub: broadcast queue full, dropped event %d", e.Seq)
	}
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			backlog := make([][]byte, len(h.history))
			copy(backlog, h.history)
			h.mu.Unlock()
			for _, message := range backlog {
				if err := client.write(message); err != nil {
					log.Printf("WebSocket backlog write error: %v", err)
					break
				}
			}
			log.Printf("Spectator connected. Total: %d", h.count())
			DebugLog("hub.register", "spectator %s connected, replayed %d events", client.conn.RemoteAddr(), len(backlog))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
			log.Printf("Spectator disconnected. Total: %d", h.count())

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn, client := range h.clients {
				if err := client.write(message); err != nil {
					log.Printf("WebSocket write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades a spectator connection. Spectators only listen;
// anything they send is discarded.
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // read-only public feed
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error from %s: %v", r.RemoteAddr, err)
		return
	}
	DebugLog("handleWebSocket", "WebSocket upgraded for %s", r.RemoteAddr)

	select {
	case h.register <- &Client{conn: conn}:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// handleTranscript serves the public transcript of the current game as JSON.
func (h *Hub) handleTranscript(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	messages := make([]json.RawMessage, len(h.history))
	for i, m := range h.history {
		messages[i] = m
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(messages); err != nil {
		logError("handleTranscript: encode", err)
	}
}

// newSpectatorMux wires the spectator endpoints.
func newSpectatorMux(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/transcript", h.handleTranscript)
	return mux
}
