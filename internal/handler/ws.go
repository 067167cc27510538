package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/metrics"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/middleware"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/room"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/service"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/store"
)

const (
	readDeadline = 60 * time.Second
	sendTimeout  = 5 * time.Second
)

type WSHandler struct {
	hub       *service.Hub
	messaging *service.Messaging
	jwtSecret string
	log       zerolog.Logger
}

func NewWSHandler(hub *service.Hub, messaging *service.Messaging, jwtSecret string, log zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, messaging: messaging, jwtSecret: jwtSecret, log: log}
}

// Upgrade validates the access token from the query string and promotes the
// request to a WebSocket connection. Identity comes from the token, never
// from a client event; a successful upgrade establishes presence.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return c.Status(401).JSON(fiber.Map{"error": "token required"})
	}

	userID, displayName, err := middleware.ParseAccessToken(h.jwtSecret, token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
	}

	c.Locals("user_id", userID)
	c.Locals("display_name", displayName)
	return websocket.New(h.handleConnection)(c)
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	displayName, _ := c.Locals("display_name").(string)

	client := &service.Client{
		Conn:        c,
		ConnID:      uuid.NewString(),
		UserID:      userID,
		DisplayName: displayName,
		Send:        make(chan []byte, 256),
	}

	h.hub.Register(client)
	metrics.WSConnections.Inc()
	defer func() {
		h.hub.Unregister(client)
		metrics.WSConnections.Dec()
	}()

	// Writer goroutine
	go func() {
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader loop
	c.SetReadDeadline(time.Now().Add(readDeadline))
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			break
		}
		c.SetReadDeadline(time.Now().Add(readDeadline))

		var event model.WSEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			h.sendError(client, "bad_event", "malformed event")
			continue
		}

		switch event.Type {
		case model.EventPing:
			if pong, err := model.MarshalEvent(model.EventPong, nil); err == nil {
				client.TrySend(pong)
			}

		case model.EventJoinRoom:
			h.handleJoin(client, event.Data)

		case model.EventLeaveRoom:
			h.handleLeave(client, event.Data)

		case model.EventSendMessage:
			h.handleSend(client, event.Data)

		default:
			h.log.Debug().Str("type", event.Type).Str("user_id", userID).Msg("unknown ws event")
			h.sendError(client, "unknown_event", "unknown event type "+event.Type)
		}
	}
}

func (h *WSHandler) handleJoin(client *service.Client, data json.RawMessage) {
	var req model.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendError(client, "bad_event", "malformed join_room payload")
		return
	}

	roomID, err := room.Derive(req.Scope, client.UserID, req.PeerID)
	if err != nil {
		h.sendError(client, "validation", err.Error())
		return
	}
	if req.RoomID != "" && req.RoomID != roomID {
		h.sendError(client, "validation", service.ErrRoomMismatch.Error())
		return
	}

	h.hub.Join(client, roomID)
	if ack, err := model.MarshalEvent(model.EventRoomJoined, model.RoomJoined{RoomID: roomID}); err == nil {
		client.TrySend(ack)
	}
}

func (h *WSHandler) handleLeave(client *service.Client, data json.RawMessage) {
	var req model.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendError(client, "bad_event", "malformed leave_room payload")
		return
	}

	roomID, err := room.Derive(req.Scope, client.UserID, req.PeerID)
	if err != nil {
		h.sendError(client, "validation", err.Error())
		return
	}

	h.hub.Leave(client, roomID)
	if ack, err := model.MarshalEvent(model.EventRoomLeft, model.RoomJoined{RoomID: roomID}); err == nil {
		client.TrySend(ack)
	}
}

func (h *WSHandler) handleSend(client *service.Client, data json.RawMessage) {
	var req model.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendError(client, "bad_event", "malformed send_message payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	_, err := h.messaging.Send(ctx, client, service.SendRequest{
		Scope:      req.Scope,
		ReceiverID: req.ReceiverID,
		RoomID:     req.RoomID,
		Text:       req.Text,
	})
	if err == nil {
		return
	}

	// Failures are surfaced to the sender only, so the UI can keep the
	// input recoverable and offer a retry.
	var pe *store.PersistenceError
	if errors.As(err, &pe) {
		h.sendError(client, "persistence", "message could not be stored")
		return
	}
	h.sendError(client, "validation", err.Error())
}

func (h *WSHandler) sendError(client *service.Client, code, message string) {
	payload, err := model.MarshalEvent(model.EventError, model.WSError{Code: code, Message: message})
	if err != nil {
		return
	}
	client.TrySend(payload)
}
