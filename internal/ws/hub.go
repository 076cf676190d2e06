package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/service"
)

// AllTables is the room of clients that follow every table.
const AllTables = 0

// EventTableUpdated is sent whenever a table record changes.
const EventTableUpdated = "table.updated"

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// tableEvent routes an event to one table's room
type tableEvent struct {
	TableID int
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by table ID, AllTables for dashboard-wide clients
	rooms map[int]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *tableEvent

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *tableEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.tableID] == nil {
				h.rooms[client.tableID] = make(map[*Client]bool)
			}
			h.rooms[client.tableID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal ws event: %v", err)
				continue
			}
			h.mu.Lock()
			h.deliverLocked(event.TableID, message)
			if event.TableID != AllTables {
				h.deliverLocked(AllTables, message)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) deliverLocked(room int, message []byte) {
	for client := range h.rooms[room] {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, drop it
			h.removeLocked(client)
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.tableID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.tableID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}

// BroadcastToTable sends an event to the clients following tableID and to
// the dashboard-wide room. It does nothing once the hub has stopped.
func (h *Hub) BroadcastToTable(tableID int, event Event) {
	select {
	case h.broadcast <- &tableEvent{TableID: tableID, Event: event}:
	case <-h.done:
	}
}

// HandleChange publishes the table view carried by a store change.
func (h *Hub) HandleChange(ctx context.Context, c service.Change) {
	payload, err := json.Marshal(api.TableUpdate{
		Change: string(c.Kind),
		Table:  c.Table.Dashboard(),
	})
	if err != nil {
		log.Printf("ERROR: marshal table update: %v", err)
		return
	}
	h.BroadcastToTable(c.TableID, Event{Type: EventTableUpdated, Payload: payload})
}
