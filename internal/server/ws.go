package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hodlflow/logger"
	"hodlflow/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	clientBuffer   = 8
	broadcastDepth = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The feed is read-only public data; cross-origin dashboards may
	// subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsUpdate is the frame pushed to subscribers after each successful merge.
type wsUpdate struct {
	Type      string    `json:"type"`
	RangeKey  string    `json:"range_key"`
	FetchedAt time.Time `json:"fetched_at"`
	Snapshots int       `json:"snapshots"`
	Events    int       `json:"events"`
}

// Hub fans dataset refresh notifications out to websocket subscribers. Slow
// clients are dropped rather than allowed to stall the broadcast loop.
type Hub struct {
	log *logger.Entry

	mu      sync.Mutex
	clients map[*client]struct{}

	broadcast chan wsUpdate
	cancel    context.CancelFunc
	done      chan struct{}
}

type client struct {
	conn *websocket.Conn
	send chan wsUpdate
}

// NewHub builds an idle hub; Start launches its broadcast loop.
func NewHub() *Hub {
	return &Hub{
		log:       logger.GetLogger().WithComponent("ws"),
		clients:   make(map[*client]struct{}),
		broadcast: make(chan wsUpdate, broadcastDepth),
	}
}

// Start launches the broadcast loop.
func (h *Hub) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.run(ctx)
}

// Stop halts the loop and closes every client connection.
func (h *Hub) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

// BroadcastDataset queues a refresh notification. Dropped when the queue is
// full; subscribers only care about the freshest state.
func (h *Hub) BroadcastDataset(ds *models.CachedDataset) {
	update := wsUpdate{
		Type:      "dataset_refreshed",
		RangeKey:  ds.RangeKey,
		FetchedAt: ds.FetchedAt,
		Snapshots: len(ds.Snapshots),
		Events:    len(ds.ChangeEvents) + len(ds.RemovalEvents),
	}
	select {
	case h.broadcast <- update:
	default:
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case update := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- update:
				default:
					// Client cannot keep up; detach it.
					delete(h.clients, c)
					close(c.send)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.WithFields(logger.Fields{"subscribers": n, "range_key": update.RangeKey}).Debug("update broadcast")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// handleWebsocket upgrades the connection and serves the refresh feed until
// the client disconnects.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithComponent("ws").WithError(err).Warn("websocket upgrade failed")
		return
	}

	cl := &client{conn: conn, send: make(chan wsUpdate, clientBuffer)}
	s.hub.register(cl)

	go cl.writeLoop()
	go cl.readLoop(s.hub)
}

// readLoop discards inbound frames and detects disconnects.
func (c *client) readLoop(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case update, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(update); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
