package realtime

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	initialRooms map[string]bool
	isClosed     bool
	mu           sync.Mutex
}

// NewClient creates a client that joins rooms as soon as the hub registers it.
func NewClient(hub *Hub, conn *websocket.Conn, rooms ...string) *Client {
	initial := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		initial[r] = true
	}
	return &Client{
		Hub:          hub,
		Conn:         conn,
		Send:         make(chan []byte, sendBufferSize),
		initialRooms: initial,
	}
}

func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.Send)
		c.isClosed = true
	}
}

type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleFrame applies one client frame. Unknown or malformed frames are ignored.
func (c *Client) handleFrame(raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.Hub.logger.Debug("ignoring malformed client frame", "error", err)
		return
	}

	switch frame.Type {
	case frameJoinMatch, frameLeaveMatch:
		matchID, ok := parseMatchID(frame.Payload)
		if !ok {
			return
		}
		if frame.Type == frameJoinMatch {
			c.Hub.Join(c, RoomForMatch(matchID))
		} else {
			c.Hub.Leave(c, RoomForMatch(matchID))
		}

	case frameSendUpdate:
		var body struct {
			MatchID json.RawMessage `json:"matchId"`
		}
		if err := json.Unmarshal(frame.Payload, &body); err != nil {
			return
		}
		matchID, ok := parseMatchID(body.MatchID)
		if !ok {
			return
		}
		c.Hub.PublishToMatch(matchID, EventMatchUpdate, frame.Payload)

	default:
		c.Hub.logger.Debug("ignoring unknown client frame", "type", frame.Type)
	}
}

// parseMatchID accepts 12, "12" and {"matchId": 12}.
func parseMatchID(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, n > 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil && n > 0
	}
	var obj struct {
		MatchID json.RawMessage `json:"matchId"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj.MatchID) > 0 {
		return parseMatchID(obj.MatchID)
	}
	return 0, false
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Detach(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handleFrame(message)
	}
}

// WritePump пишет по одному сообщению на кадр, чтобы клиент мог разбирать каждый JSON отдельно.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
