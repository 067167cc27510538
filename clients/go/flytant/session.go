package flytant

import (
	"sync"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
)

// Session is a live view of one room: the preloaded history plus broadcasts
// appended as they arrive. Outgoing sends are not echoed locally; the
// authoritative copy comes back through the room broadcast, so the sender's
// transcript is ordered exactly as persisted.
type Session struct {
	client *Client
	RoomID string
	Scope  string
	PeerID string

	mu       sync.Mutex
	messages []model.Message
}

// Send emits the draft. The caller may clear its input immediately; on error
// the text should be restored so a failed send is never silently discarded.
func (s *Session) Send(text string) error {
	return s.client.writeEvent(model.EventSendMessage, model.SendMessageRequest{
		Scope:      s.Scope,
		ReceiverID: s.PeerID,
		Text:       text,
	})
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Close unsubscribes from the room. Presence is independent of room
// membership and survives navigation.
func (s *Session) Close() error {
	c := s.client
	c.mu.Lock()
	delete(c.sessions, s.RoomID)
	if c.activeRoom == s.RoomID {
		c.activeRoom = ""
	}
	c.mu.Unlock()

	return c.writeEvent(model.EventLeaveRoom, model.JoinRoomRequest{Scope: s.Scope, PeerID: s.PeerID})
}

func (s *Session) append(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}
