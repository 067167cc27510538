package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/metrics"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/room"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/store"
)

// ErrRoomMismatch is returned when a client-supplied room id disagrees with
// the server-derived key for the same conversation.
var ErrRoomMismatch = errors.New("room id mismatch between client and derived key")

// SendRequest is one inbound send from an authenticated connection.
type SendRequest struct {
	Scope      string
	ReceiverID string
	RoomID     string // optional; checked against the derived room key
	Text       string
}

// Messaging runs the send pipeline: validate, derive the room server-side,
// persist, broadcast to the room, inbox-ping the receiver when they are
// online but not subscribed to the room.
type Messaging struct {
	store    store.MessageStore
	hub      *Hub
	presence *Presence
	log      zerolog.Logger

	// Per-room serialization so broadcast order always equals persisted order.
	lockMu    sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func NewMessaging(st store.MessageStore, hub *Hub, presence *Presence, log zerolog.Logger) *Messaging {
	return &Messaging{
		store:     st,
		hub:       hub,
		presence:  presence,
		log:       log,
		roomLocks: make(map[string]*sync.Mutex),
	}
}

// Send persists and delivers one message from sender. The returned error is
// for the sender alone: validation and persistence failures never reach other
// room members, and no broadcast happens for a message that was not stored.
func (m *Messaging) Send(ctx context.Context, sender *Client, req SendRequest) (*model.Message, error) {
	if strings.TrimSpace(req.Text) == "" {
		metrics.SendFailures.WithLabelValues("validation").Inc()
		return nil, &store.ValidationError{Field: "text"}
	}
	if req.ReceiverID == "" {
		metrics.SendFailures.WithLabelValues("validation").Inc()
		return nil, &store.ValidationError{Field: "receiver_id"}
	}

	roomID, err := room.Derive(req.Scope, sender.UserID, req.ReceiverID)
	if err != nil {
		metrics.SendFailures.WithLabelValues("validation").Inc()
		return nil, err
	}
	// Never trust a client-supplied room key; it must match the derived one.
	if req.RoomID != "" && req.RoomID != roomID {
		metrics.SendFailures.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: got %q, derived %q", ErrRoomMismatch, req.RoomID, roomID)
	}

	lock := m.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := m.store.Append(ctx, model.MessageDraft{
		RoomID:     roomID,
		SenderID:   sender.UserID,
		ReceiverID: req.ReceiverID,
		SenderName: sender.DisplayName,
		Text:       req.Text,
	})
	if err != nil {
		metrics.SendFailures.WithLabelValues("persistence").Inc()
		m.log.Error().Err(err).Str("room_id", roomID).Str("sender_id", sender.UserID).Msg("append failed")
		return nil, err
	}

	payload, err := model.MarshalEvent(model.EventMessageReceived, msg)
	if err != nil {
		// The message is stored; the sender still gets the record back.
		m.log.Error().Err(err).Int64("message_id", msg.ID).Msg("marshal broadcast failed")
		return msg, nil
	}
	m.hub.BroadcastRoom(roomID, payload)
	metrics.MessagesSent.Inc()

	m.notifyReceiver(roomID, msg)

	return msg, nil
}

// notifyReceiver pushes a best-effort inbox ping to the receiver's live
// connection when they are online but not subscribed to the room. Delivery
// failure is expected steady-state, never an error.
func (m *Messaging) notifyReceiver(roomID string, msg *model.Message) {
	receiver, ok := m.presence.Lookup(msg.ReceiverID)
	if !ok || m.hub.InRoom(receiver, roomID) {
		return
	}

	payload, err := model.MarshalEvent(model.EventInboxPing, model.InboxPing{
		RoomID:     roomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	if m.hub.SendToClient(receiver, payload) {
		metrics.InboxPings.Inc()
	}
}

// History returns the room's messages for (selfID, peerID) under scope,
// oldest first. The room key is derived here, never taken from the caller.
func (m *Messaging) History(ctx context.Context, selfID, peerID, scope string) ([]model.Message, error) {
	roomID, err := room.Derive(scope, selfID, peerID)
	if err != nil {
		return nil, err
	}
	return m.store.History(ctx, roomID)
}

func (m *Messaging) roomLock(roomID string) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	lock, ok := m.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		m.roomLocks[roomID] = lock
	}
	return lock
}
