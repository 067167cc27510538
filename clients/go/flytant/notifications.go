package flytant

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/room"
)

type NotificationKind string

const (
	KindInRoom    NotificationKind = "in-room"
	KindInboxPing NotificationKind = "inbox-ping"
)

// NotificationItem is a transient, dismissible alert for a UI surface. It is
// a client-side view over message events; nothing about it is persisted.
type NotificationItem struct {
	ID           string
	Kind         NotificationKind
	SourceUserID string
	SourceName   string
	Text         string
	RoomID       string
	CreatedAt    time.Time
}

// NotificationRouter receives the two server push classes (room broadcasts
// and inbox pings), deduplicates them and maintains an ordered queue plus
// per-sender unread flags for badge rendering.
type NotificationRouter struct {
	selfID string

	mu     sync.Mutex
	items  []NotificationItem
	seen   map[string]bool
	unread map[string]bool
}

func NewNotificationRouter(selfID string) *NotificationRouter {
	return &NotificationRouter{
		selfID: selfID,
		seen:   make(map[string]bool),
		unread: make(map[string]bool),
	}
}

// OnInboxPing turns an out-of-room ping into a queued notification. Pings for
// the user's own messages are ignored, as are duplicates of an already-seen
// event.
func (r *NotificationRouter) OnInboxPing(ping model.InboxPing) {
	if ping.SenderID == r.selfID {
		return
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, ping.CreatedAt)
	key := string(KindInboxPing) + "|" + ping.RoomID + "|" + ping.SenderID + "|" + ping.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.items = append(r.items, NotificationItem{
		ID:           uuid.NewString(),
		Kind:         KindInboxPing,
		SourceUserID: ping.SenderID,
		SourceName:   ping.SenderName,
		Text:         ping.Text,
		RoomID:       ping.RoomID,
		CreatedAt:    createdAt,
	})
	r.unread[ping.SenderID] = true
}

// OnRoomMessage queues an alert for a broadcast in a joined-but-not-active
// room. Messages in the room the user is looking at never reach the queue;
// they go straight into the transcript.
func (r *NotificationRouter) OnRoomMessage(msg model.Message) {
	if msg.SenderID == r.selfID {
		return
	}

	key := string(KindInRoom) + "|" + msg.RoomID + "|" + msg.SenderID + "|" + msg.CreatedAt.Format(time.RFC3339Nano)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.items = append(r.items, NotificationItem{
		ID:           uuid.NewString(),
		Kind:         KindInRoom,
		SourceUserID: msg.SenderID,
		SourceName:   msg.SenderName,
		Text:         msg.Text,
		RoomID:       msg.RoomID,
		CreatedAt:    msg.CreatedAt,
	})
	r.unread[msg.SenderID] = true
}

// Items returns the queue in arrival order.
func (r *NotificationRouter) Items() []NotificationItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationItem, len(r.items))
	copy(out, r.items)
	return out
}

// Dismiss removes one item from the queue. Purely a presentation-layer
// acknowledgment: unread flags and stored messages are untouched.
func (r *NotificationRouter) Dismiss(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

// ClickThrough resolves the navigation target of an item: the room and the
// other participant, recovered from the sorted-pair room key. The item is
// removed from the queue.
func (r *NotificationRouter) ClickThrough(id string) (roomID, peerID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.items {
		if item.ID != id {
			continue
		}
		peer, err := room.Other(item.RoomID, r.selfID)
		if err != nil {
			return "", "", false
		}
		r.removeLocked(id)
		return item.RoomID, peer, true
	}
	return "", "", false
}

// Unread reports whether there is an unread flag for the sender.
func (r *NotificationRouter) Unread(senderID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread[senderID]
}

// ClearUnread drops the sender's unread flag, typically on navigation into
// the conversation.
func (r *NotificationRouter) ClearUnread(senderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.unread, senderID)
}

// caller holds r.mu
func (r *NotificationRouter) removeLocked(id string) bool {
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return true
		}
	}
	return false
}
