package flytant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
)

func ping(sender, text string) model.InboxPing {
	return model.InboxPing{
		RoomID:     "camp42:alice:bob",
		SenderID:   sender,
		SenderName: sender,
		Text:       text,
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339Nano),
	}
}

func TestRouterQueuesInboxPing(t *testing.T) {
	r := NewNotificationRouter("bob")

	r.OnInboxPing(ping("alice", "hello"))

	items := r.Items()
	require.Len(t, items, 1)
	assert.Equal(t, KindInboxPing, items[0].Kind)
	assert.Equal(t, "alice", items[0].SourceUserID)
	assert.Equal(t, "hello", items[0].Text)
	assert.Equal(t, "camp42:alice:bob", items[0].RoomID)
	assert.True(t, r.Unread("alice"))
}

func TestRouterIgnoresOwnPing(t *testing.T) {
	r := NewNotificationRouter("alice")

	r.OnInboxPing(ping("alice", "echo of my own message"))

	assert.Empty(t, r.Items())
	assert.False(t, r.Unread("alice"))
}

func TestRouterDeduplicates(t *testing.T) {
	r := NewNotificationRouter("bob")

	p := ping("alice", "hello")
	r.OnInboxPing(p)
	r.OnInboxPing(p)

	assert.Len(t, r.Items(), 1)
}

func TestRouterRoomMessageForBackgroundRoom(t *testing.T) {
	r := NewNotificationRouter("bob")

	msg := model.Message{
		ID:         1,
		RoomID:     "camp42:alice:bob",
		SenderID:   "alice",
		SenderName: "Alice",
		Text:       "hi",
		CreatedAt:  time.Now().UTC(),
	}
	r.OnRoomMessage(msg)
	r.OnRoomMessage(msg) // duplicate delivery

	items := r.Items()
	require.Len(t, items, 1)
	assert.Equal(t, KindInRoom, items[0].Kind)
}

func TestRouterDismissIsPresentationOnly(t *testing.T) {
	r := NewNotificationRouter("bob")
	r.OnInboxPing(ping("alice", "hello"))

	items := r.Items()
	require.Len(t, items, 1)

	assert.True(t, r.Dismiss(items[0].ID))
	assert.Empty(t, r.Items())
	assert.True(t, r.Unread("alice"), "dismissal does not clear unread flags")

	assert.False(t, r.Dismiss("no-such-id"))
}

func TestRouterClickThroughResolvesPeer(t *testing.T) {
	r := NewNotificationRouter("bob")
	r.OnInboxPing(ping("alice", "hello"))

	items := r.Items()
	require.Len(t, items, 1)

	roomID, peerID, ok := r.ClickThrough(items[0].ID)
	require.True(t, ok)
	assert.Equal(t, "camp42:alice:bob", roomID)
	assert.Equal(t, "alice", peerID, "other participant recovered from the sorted pair")
	assert.Empty(t, r.Items(), "click-through removes the item")
}

func TestRouterClearUnread(t *testing.T) {
	r := NewNotificationRouter("bob")
	r.OnInboxPing(ping("alice", "hello"))
	require.True(t, r.Unread("alice"))

	r.ClearUnread("alice")
	assert.False(t, r.Unread("alice"))
}
