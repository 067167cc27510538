package model

import "encoding/json"

// Event type names exchanged over the WebSocket connection.
const (
	EventJoinRoom        = "join_room"
	EventLeaveRoom       = "leave_room"
	EventSendMessage     = "send_message"
	EventPing            = "ping"
	EventPong            = "pong"
	EventRoomJoined      = "room_joined"
	EventRoomLeft        = "room_left"
	EventMessageReceived = "message_received"
	EventInboxPing       = "inbox_ping"
	EventError           = "error"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinRoomRequest subscribes the connection to the conversation with peer_id
// under scope. The server derives the room key; a client-supplied room_id is
// only checked against the derived one.
type JoinRoomRequest struct {
	Scope  string `json:"scope"`
	PeerID string `json:"peer_id"`
	RoomID string `json:"room_id,omitempty"`
}

type SendMessageRequest struct {
	Scope      string `json:"scope"`
	ReceiverID string `json:"receiver_id"`
	RoomID     string `json:"room_id,omitempty"`
	Text       string `json:"text"`
}

type RoomJoined struct {
	RoomID string `json:"room_id"`
}

// InboxPing is the lightweight out-of-room notification pushed to a receiver
// who is online but not subscribed to the room that produced the message.
type InboxPing struct {
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MarshalEvent wraps a payload in a WSEvent envelope.
func MarshalEvent(eventType string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(WSEvent{Type: eventType, Data: data})
}
