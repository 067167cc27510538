package model

import "time"

// Message represents a stored chat message row. Messages are immutable once
// persisted; id and created_at are assigned by the store.
type Message struct {
	ID         int64     `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageDraft is a message as submitted for persistence, before the store
// assigns id and created_at.
type MessageDraft struct {
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}
