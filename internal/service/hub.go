package service

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"
)

// Client is one live WebSocket connection with its authenticated identity.
type Client struct {
	Conn        *websocket.Conn
	ConnID      string
	UserID      string
	DisplayName string
	Send        chan []byte
}

// TrySend queues payload for delivery without blocking. Slow or dead clients
// simply miss the frame; durability is the store's job, not the socket's.
func (c *Client) TrySend(payload []byte) bool {
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Hub owns the set of live connections and the (connection, room) membership
// set. Disconnects run through a channel serialized by Run; registration and
// room membership are mutated directly under the lock.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]bool
	rooms       map[string]map[*Client]bool
	clientRooms map[*Client]map[string]bool

	presence   *Presence
	unregister chan *Client
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(presence *Presence, log zerolog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		clientRooms: make(map[*Client]map[string]bool),
		presence:    presence,
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Run serializes disconnect handling. Disconnects close the client's Send
// channel, so they must not interleave with each other.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.dropMembershipLocked(client)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.presence.Remove(client)
			h.log.Info().
				Str("user_id", client.UserID).
				Str("conn_id", client.ConnID).
				Int("total", total).
				Msg("client disconnected")

		case <-h.done:
			return
		}
	}
}

func (h *Hub) Shutdown() {
	close(h.done)
}

// Register adds the connection and establishes presence for its user. It is
// synchronous: when it returns, the client is eligible to join rooms.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.presence.Register(client)
	h.log.Info().
		Str("user_id", client.UserID).
		Str("conn_id", client.ConnID).
		Int("total", total).
		Msg("client connected")
}

// Unregister removes the connection, its room memberships and, if it still
// owns the entry, its presence registration.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join subscribes the connection to a room's broadcasts. Membership is
// independent of presence.
func (h *Hub) Join(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	if h.clientRooms[client] == nil {
		h.clientRooms[client] = make(map[string]bool)
	}
	h.clientRooms[client][roomID] = true
}

func (h *Hub) Leave(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if rooms, ok := h.clientRooms[client]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.clientRooms, client)
		}
	}
}

// InRoom reports whether the connection is currently subscribed to the room.
func (h *Hub) InRoom(client *Client, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientRooms[client][roomID]
}

// BroadcastRoom delivers payload to every connection subscribed to the room.
// The read lock is held across the sends so a concurrent disconnect cannot
// close a Send channel mid-fanout.
func (h *Hub) BroadcastRoom(roomID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		if !client.TrySend(payload) {
			h.log.Warn().
				Str("user_id", client.UserID).
				Str("room_id", roomID).
				Msg("dropped frame for slow client")
		}
	}
}

// SendToClient delivers payload to one live connection. Returns false when
// the connection has already been unregistered or its buffer is full.
func (h *Hub) SendToClient(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	return client.TrySend(payload)
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// caller holds h.mu
func (h *Hub) dropMembershipLocked(client *Client) {
	for roomID := range h.clientRooms[client] {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.clientRooms, client)
}
