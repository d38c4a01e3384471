package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/doge48/game/engine"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
	maxMessageSize  = 512
	outboxSize      = 256
	broadcastBuffer = 64
)

// Event names sent to clients
const (
	EventStateUpdate = "state_update"
	EventMove        = "move"
	EventBulkMove    = "bulk_move"
	EventReset       = "reset"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Boards are public; any origin may watch a session.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is one JSON frame pushed to the watchers of a session
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// frame is an encoded Message waiting for fan-out
type frame struct {
	sessionID string
	data      []byte
}

// watcher is one WebSocket connection following a session
type watcher struct {
	hub       *Hub
	conn      *websocket.Conn
	outbox    chan []byte
	sessionID string
}

// Hub fans encoded frames out to the watchers of each session.
// The watcher sets change only on the Run goroutine; mu lets ClientCount read them.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*watcher]struct{}

	frames chan frame
	joins  chan *watcher
	leaves chan *watcher
}

// NewHub creates a hub; start it with go hub.Run()
func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string]map[*watcher]struct{}),
		frames:   make(chan frame, broadcastBuffer),
		joins:    make(chan *watcher),
		leaves:   make(chan *watcher),
	}
}

// Run serves joins, leaves and frames until the process exits
func (h *Hub) Run() {
	for {
		select {
		case w := <-h.joins:
			h.join(w)
		case w := <-h.leaves:
			h.leave(w)
		case f := <-h.frames:
			h.fanOut(f)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to sessionID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed session=%s: %v", sessionID, err)
		return
	}

	wt := &watcher{
		hub:       h,
		conn:      conn,
		outbox:    make(chan []byte, outboxSize),
		sessionID: sessionID,
	}
	h.joins <- wt

	go wt.writeLoop()
	go wt.readLoop()
}

// BroadcastToSession pushes a state_update frame. The state is encoded before
// returning, so callers may keep using it.
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.publish(&Message{SessionID: sessionID, GameState: state, Event: EventStateUpdate})
}

// BroadcastEvent pushes a named event with an optional payload
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.publish(&Message{SessionID: sessionID, Event: event, Data: data})
}

// ClientCount returns the number of watchers of a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[sessionID])
}

func (h *Hub) publish(m *Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("[WS] encode %s for session=%s: %v", m.Event, m.SessionID, err)
		return
	}
	h.frames <- frame{sessionID: m.SessionID, data: data}
}

func (h *Hub) join(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.watchers[w.sessionID]
	if set == nil {
		set = make(map[*watcher]struct{})
		h.watchers[w.sessionID] = set
	}
	set[w] = struct{}{}
	log.Printf("[WS] join session=%s watchers=%d", w.sessionID, len(set))
}

func (h *Hub) leave(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(w)
}

// drop detaches w and closes its outbox; h.mu must be held
func (h *Hub) drop(w *watcher) {
	set, ok := h.watchers[w.sessionID]
	if !ok {
		return
	}
	if _, ok := set[w]; !ok {
		return
	}
	delete(set, w)
	close(w.outbox)
	if len(set) == 0 {
		delete(h.watchers, w.sessionID)
	}
	log.Printf("[WS] leave session=%s watchers=%d", w.sessionID, len(set))
}

// fanOut queues f on every watcher of its session. A watcher whose outbox is full is dropped.
func (h *Hub) fanOut(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for w := range h.watchers[f.sessionID] {
		select {
		case w.outbox <- f.data:
		default:
			h.drop(w)
		}
	}
}

// readLoop discards client input and keeps the read deadline fresh on pongs
func (w *watcher) readLoop() {
	defer func() {
		w.hub.leaves <- w
		w.conn.Close()
	}()

	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read session=%s: %v", w.sessionID, err)
			}
			return
		}
	}
}

// writeLoop sends queued frames, batching whatever is pending into one
// newline-separated text message, and pings on idle
func (w *watcher) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case data, ok := <-w.outbox:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.writeBatch(data); err != nil {
				return
			}

		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (w *watcher) writeBatch(first []byte) error {
	out, err := w.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	out.Write(first)
	for range len(w.outbox) {
		out.Write([]byte{'\n'})
		out.Write(<-w.outbox)
	}
	return out.Close()
}
