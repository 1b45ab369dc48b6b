package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const maxWSConnections = 200

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveSnapshot is the periodic payload pushed to every connected client:
// dead-letter size, node health counts, and aggregate worker throughput.
// collectSnapshot does not fill in QueueDepth, so it is always sent as 0.
type liveSnapshot struct {
	QueueDepth      int            `json:"queue_depth"`
	DeadLetterSize  int            `json:"dead_letter_size"`
	HealthyNodes    int            `json:"healthy_nodes"`
	DegradedNodes   int            `json:"degraded_nodes"`
	OfflineNodes    int            `json:"offline_nodes"`
	WorkersActive   int            `json:"workers_active"`
	TasksProcessed  int64          `json:"tasks_processed"`
	TasksCompleted  int64          `json:"tasks_completed"`
	TasksRetried    int64          `json:"tasks_retried"`
	Timestamp       int64          `json:"timestamp"`
}

// MetricsHub fans one periodic snapshot out to every connected client.
// A single broadcaster goroutine avoids one ticker per connection.
type MetricsHub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	api        *API
}

func NewMetricsHub(a *API) *MetricsHub {
	return &MetricsHub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		api:        a,
	}
}

// Run drives the hub's registration and broadcast loop until ctx is
// cancelled.
func (h *MetricsHub) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxWSConnections {
				h.mu.Unlock()
				conn.Close()
				log.Printf("websocket connection rejected: max connections (%d) reached", maxWSConnections)
				continue
			}
			h.clients[conn] = struct{}{}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.broadcast(ctx)
		}
	}
}

func (h *MetricsHub) broadcast(ctx context.Context) {
	snapshot := h.api.collectSnapshot(ctx)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snapshot); err != nil {
			log.Printf("websocket write error: %v", err)
			go h.Unregister(conn)
		}
	}
}

func (h *MetricsHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

// Register adds a new client connection to the broadcast set.
func (h *MetricsHub) Register(conn *websocket.Conn) { h.register <- conn }

// Unregister removes a client connection.
func (h *MetricsHub) Unregister(conn *websocket.Conn) { h.unregister <- conn }

// ClientCount returns the number of connected clients.
func (h *MetricsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// collectSnapshot gathers the live feed payload from the node registry
// and the locally-running workers.
func (a *API) collectSnapshot(ctx context.Context) liveSnapshot {
	snapshot := liveSnapshot{Timestamp: time.Now().Unix()}

	nodes, err := a.store.ListProxyNodes(ctx)
	if err == nil {
		for _, n := range nodes {
			switch n.Health {
			case "HEALTHY":
				snapshot.HealthyNodes++
			case "DEGRADED":
				snapshot.DegradedNodes++
			default:
				snapshot.OfflineNodes++
			}
		}
	}

	deadLetter, err := a.store.ListDeadLetterTasks(ctx, deadLetterLimit)
	if err == nil {
		snapshot.DeadLetterSize = len(deadLetter)
	}

	snapshot.WorkersActive = len(a.workers)
	for _, wk := range a.workers {
		m := wk.Metrics()
		snapshot.TasksProcessed += m.Processed()
		snapshot.TasksCompleted += m.Completed()
		snapshot.TasksRetried += m.Retried()
	}

	return snapshot
}

// handleWebSocket upgrades the connection and registers it with the hub.
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	a.hub.Register(conn)
}
