// Package flytant provides a Go client for the real-time messaging backend:
// a WebSocket connection with presence, room sessions and an in-process
// notification router.
package flytant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/room"
)

const joinTimeout = 10 * time.Second

// Client is one authenticated connection to the messaging backend. Connecting
// establishes presence; room subscriptions are managed per Session.
type Client struct {
	BaseURL    string
	Token      string
	SelfID     string
	HTTPClient *http.Client

	Router *NotificationRouter

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.Mutex
	sessions   map[string]*Session
	activeRoom string
	joinAcks   chan model.RoomJoined

	closed chan struct{}
}

func NewClient(baseURL, token, selfID string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		SelfID:     selfID,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Router:     NewNotificationRouter(selfID),
		sessions:   make(map[string]*Session),
		joinAcks:   make(chan model.RoomJoined, 4),
		closed:     make(chan struct{}),
	}
}

// Connect dials the WebSocket endpoint and starts the read loop. The server
// registers presence for the token's user as part of the upgrade.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", wsURL, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	c.conn = conn

	go c.readLoop()
	return nil
}

// Close drops the connection. Presence on the server is cleaned up by the
// transport-level disconnect.
func (c *Client) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SetActiveRoom marks the room the user is currently viewing. Broadcasts for
// the active room go straight to the transcript; broadcasts for other joined
// rooms surface through the NotificationRouter.
func (c *Client) SetActiveRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeRoom = roomID
}

// JoinRoom subscribes to the conversation with peerID under scope, waits for
// the server's confirmation, preloads history and returns the live session.
// The joined room becomes the active one.
func (c *Client) JoinRoom(ctx context.Context, scope, peerID string) (*Session, error) {
	roomID, err := room.Derive(scope, c.SelfID, peerID)
	if err != nil {
		return nil, err
	}

	if err := c.writeEvent(model.EventJoinRoom, model.JoinRoomRequest{Scope: scope, PeerID: peerID}); err != nil {
		return nil, err
	}

	if err := c.awaitJoin(ctx, roomID); err != nil {
		return nil, err
	}

	history, err := c.fetchHistory(ctx, scope, peerID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		client:   c,
		RoomID:   roomID,
		Scope:    scope,
		PeerID:   peerID,
		messages: history,
	}

	c.mu.Lock()
	c.sessions[roomID] = s
	c.activeRoom = roomID
	c.mu.Unlock()

	// Entering the room acknowledges pending pings from this peer.
	c.Router.ClearUnread(peerID)

	return s, nil
}

func (c *Client) awaitJoin(ctx context.Context, roomID string) error {
	timer := time.NewTimer(joinTimeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.joinAcks:
			if ack.RoomID == roomID {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("join %s: no confirmation from server", roomID)
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return fmt.Errorf("join %s: connection closed", roomID)
		}
	}
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var event model.WSEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}

		switch event.Type {
		case model.EventMessageReceived:
			var msg model.Message
			if err := json.Unmarshal(event.Data, &msg); err != nil {
				continue
			}
			c.dispatchMessage(msg)

		case model.EventInboxPing:
			var ping model.InboxPing
			if err := json.Unmarshal(event.Data, &ping); err != nil {
				continue
			}
			c.Router.OnInboxPing(ping)

		case model.EventRoomJoined:
			var ack model.RoomJoined
			if err := json.Unmarshal(event.Data, &ack); err != nil {
				continue
			}
			select {
			case c.joinAcks <- ack:
			default:
			}
		}
	}
}

func (c *Client) dispatchMessage(msg model.Message) {
	c.mu.Lock()
	s, joined := c.sessions[msg.RoomID]
	active := c.activeRoom == msg.RoomID
	c.mu.Unlock()

	if !joined {
		return
	}
	s.append(msg)
	if !active {
		c.Router.OnRoomMessage(msg)
	}
}

func (c *Client) fetchHistory(ctx context.Context, scope, peerID string) ([]model.Message, error) {
	u, err := url.Parse(c.BaseURL + "/api/v1/chat/history")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("scope", scope)
	q.Set("peer_id", peerID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request failed: status %d", resp.StatusCode)
	}

	var body struct {
		Messages []model.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Messages, nil
}

func (c *Client) writeEvent(eventType string, payload interface{}) error {
	data, err := model.MarshalEvent(eventType, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {c.Token}}.Encode()
	return u.String(), nil
}
