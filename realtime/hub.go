// Package realtime рассылает события матчей подключённым websocket-клиентам.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Dosada05/inmatch/metrics"
)

// События, которые сервер отправляет клиентам.
const (
	EventNewMatch     = "newMatch"
	EventStatusUpdate = "statusUpdate"
	EventMatchDeleted = "matchDeleted"
	EventMatchUpdate  = "matchUpdate"
)

// Кадры, которые присылает клиент.
const (
	frameJoinMatch  = "joinMatch"
	frameLeaveMatch = "leaveMatch"
	frameSendUpdate = "sendUpdate"
)

const sendBufferSize = 256

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// RoomForMatch returns the room name for a match.
func RoomForMatch(matchID int) string {
	return "match_" + strconv.Itoa(matchID)
}

type membership struct {
	client *Client
	room   string
	join   bool
}

type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	membership chan membership
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		membership: make(chan membership),
		done:       make(chan struct{}),
		logger:     logger.With("component", "realtime_hub"),
	}
}

// Run processes registrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for room := range client.initialRooms {
				h.addToRoomLocked(client, room)
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			h.logger.Debug("client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for room, members := range h.rooms {
					if members[client] {
						h.removeFromRoomLocked(client, room)
					}
				}
				client.closeSend()
				metrics.WebSocketConnections.Dec()
			}
			h.mu.Unlock()

		case m := <-h.membership:
			h.mu.Lock()
			if h.clients[m.client] {
				if m.join {
					h.addToRoomLocked(m.client, m.room)
				} else {
					h.removeFromRoomLocked(m.client, m.room)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) addToRoomLocked(c *Client, room string) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	h.logger.Debug("client joined room", "room", room, "room_clients", len(h.rooms[room]))
}

func (h *Hub) removeFromRoomLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
		h.logger.Debug("room closed as it's empty", "room", room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.closeSend()
		metrics.WebSocketConnections.Dec()
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

// Attach registers a client; it returns false once the hub has stopped.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Join(c *Client, room string) {
	h.send(membership{client: c, room: room, join: true})
}

func (h *Hub) Leave(c *Client, room string) {
	h.send(membership{client: c, room: room, join: false})
}

func (h *Hub) send(m membership) {
	select {
	case h.membership <- m:
	case <-h.done:
	}
}

// BroadcastToRoom отправляет сообщение всем клиентам в комнате. Медленные
// клиенты с заполненным буфером кадр пропускают.
func (h *Hub) BroadcastToRoom(roomID string, message Message) {
	message.RoomID = roomID
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal room message", "room", roomID, "type", message.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		h.deliver(client, data)
	}
}

// Broadcast отправляет сообщение всем подключённым клиентам.
func (h *Hub) Broadcast(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal global message", "type", message.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		h.deliver(client, data)
	}
}

func (h *Hub) deliver(c *Client, data []byte) {
	if !c.trySend(data) {
		h.logger.Warn("client send buffer full, dropping frame")
	}
}

func (h *Hub) PublishToMatch(matchID int, event string, payload interface{}) {
	h.BroadcastToRoom(RoomForMatch(matchID), Message{Type: event, Payload: payload})
}

func (h *Hub) PublishGlobal(event string, payload interface{}) {
	h.Broadcast(Message{Type: event, Payload: payload})
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
