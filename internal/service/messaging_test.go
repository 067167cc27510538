package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/store"
)

// fakeStore is an in-memory MessageStore for pipeline tests.
type fakeStore struct {
	mu         sync.Mutex
	msgs       []model.Message
	nextID     int64
	appendErr  error
	historyErr error
}

func (f *fakeStore) Append(_ context.Context, draft model.MessageDraft) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, &store.PersistenceError{Op: "insert message", Err: f.appendErr}
	}
	f.nextID++
	msg := model.Message{
		ID:         f.nextID,
		RoomID:     draft.RoomID,
		SenderID:   draft.SenderID,
		ReceiverID: draft.ReceiverID,
		SenderName: draft.SenderName,
		Text:       draft.Text,
		CreatedAt:  time.Now().UTC(),
	}
	f.msgs = append(f.msgs, msg)
	return &msg, nil
}

func (f *fakeStore) History(_ context.Context, roomID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, &store.PersistenceError{Op: "query history", Err: f.historyErr}
	}
	var out []model.Message
	for _, m := range f.msgs {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close()                     {}

type fixture struct {
	hub      *Hub
	presence *Presence
	store    *fakeStore
	svc      *Messaging
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hub, presence := startTestHub(t)
	st := &fakeStore{}
	return &fixture{
		hub:      hub,
		presence: presence,
		store:    st,
		svc:      NewMessaging(st, hub, presence, zerolog.Nop()),
	}
}

func (fx *fixture) connect(t *testing.T, userID string) *Client {
	c := newTestClient(userID)
	fx.hub.Register(c)
	return c
}

func decodeMessage(t *testing.T, event model.WSEvent) model.Message {
	t.Helper()
	require.Equal(t, model.EventMessageReceived, event.Type)
	var msg model.Message
	require.NoError(t, json.Unmarshal(event.Data, &msg))
	return msg
}

func TestSendBroadcastsToSubscribedRoom(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")
	bob := fx.connect(t, "bob")

	fx.hub.Join(alice, "camp42:alice:bob")
	fx.hub.Join(bob, "camp42:alice:bob")

	msg, err := fx.svc.Send(context.Background(), alice, SendRequest{
		Scope:      "camp42",
		ReceiverID: "bob",
		Text:       "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "camp42:alice:bob", msg.RoomID)
	assert.Equal(t, "hello", msg.Text)

	history, err := fx.svc.History(context.Background(), "bob", "alice", "camp42")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].SenderID)

	// Both participants get the broadcast; the sender has no local echo to
	// diverge from.
	got := decodeMessage(t, recvEvent(t, bob))
	assert.Equal(t, "hello", got.Text)
	decodeMessage(t, recvEvent(t, alice))

	// The receiver was in the room, so no redundant inbox ping.
	assertNoFrame(t, bob)
}

func TestSendPingsOnlineReceiverOutsideRoom(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")
	bob := fx.connect(t, "bob") // online, browsing elsewhere

	fx.hub.Join(alice, "camp42:alice:bob")

	_, err := fx.svc.Send(context.Background(), alice, SendRequest{
		Scope:      "camp42",
		ReceiverID: "bob",
		Text:       "hello",
	})
	require.NoError(t, err)

	event := recvEvent(t, bob)
	require.Equal(t, model.EventInboxPing, event.Type)
	var ping model.InboxPing
	require.NoError(t, json.Unmarshal(event.Data, &ping))
	assert.Equal(t, "camp42:alice:bob", ping.RoomID)
	assert.Equal(t, "alice", ping.SenderID)
	assert.Equal(t, "hello", ping.Text)

	// Exactly one ping, no room broadcast for the unsubscribed receiver.
	assertNoFrame(t, bob)
}

func TestSendOfflineReceiverIsStoredOnly(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")
	fx.hub.Join(alice, "camp42:alice:bob")

	msg, err := fx.svc.Send(context.Background(), alice, SendRequest{
		Scope:      "camp42",
		ReceiverID: "bob",
		Text:       "hello",
	})
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)

	history, err := fx.svc.History(context.Background(), "alice", "bob", "camp42")
	require.NoError(t, err)
	assert.Len(t, history, 1, "missed ping still means durable history")
}

func TestSendRejectsBlankText(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")
	bob := fx.connect(t, "bob")
	fx.hub.Join(bob, "camp42:alice:bob")

	_, err := fx.svc.Send(context.Background(), alice, SendRequest{
		Scope:      "camp42",
		ReceiverID: "bob",
		Text:       "   ",
	})

	var ve *store.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "text", ve.Field)

	history, err := fx.svc.History(context.Background(), "alice", "bob", "camp42")
	require.NoError(t, err)
	assert.Empty(t, history, "history length unchanged after rejected send")
	assertNoFrame(t, bob)
}

func TestSendRejectsSelfConversation(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")

	_, err := fx.svc.Send(context.Background(), alice, SendRequest{
		Scope:      "camp42",
		ReceiverID: "alice",
		Text:       "hi me",
	})
	require.Error(t, err)
}

func TestSendRejectsMismatchedRoomID(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")

	_, err := fx.svc.Send(context.Background(), alice, SendRequest{
		Scope:      "camp42",
		ReceiverID: "bob",
		RoomID:     "camp99:alice:mallory",
		Text:       "hello",
	})
	assert.ErrorIs(t, err, ErrRoomMismatch)

	history, err := fx.svc.History(context.Background(), "alice", "bob", "camp42")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendNoBroadcastWhenAppendFails(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")
	bob := fx.connect(t, "bob")
	fx.hub.Join(alice, "camp42:alice:bob")
	fx.hub.Join(bob, "camp42:alice:bob")

	fx.store.appendErr = errors.New("connection refused")

	_, err := fx.svc.Send(context.Background(), alice, SendRequest{
		Scope:      "camp42",
		ReceiverID: "bob",
		Text:       "hello",
	})

	var pe *store.PersistenceError
	require.ErrorAs(t, err, &pe)

	// No partial delivery: neither participant observes the failed message.
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)
}

func TestBroadcastOrderMatchesHistory(t *testing.T) {
	fx := newFixture(t)
	alice := fx.connect(t, "alice")
	bob := fx.connect(t, "bob")
	fx.hub.Join(alice, "camp42:alice:bob")
	fx.hub.Join(bob, "camp42:alice:bob")

	texts := []string{"one", "two", "three", "four", "five"}
	for _, text := range texts {
		_, err := fx.svc.Send(context.Background(), alice, SendRequest{
			Scope:      "camp42",
			ReceiverID: "bob",
			Text:       text,
		})
		require.NoError(t, err)
	}

	var observed []string
	for range texts {
		observed = append(observed, decodeMessage(t, recvEvent(t, bob)).Text)
	}

	history, err := fx.svc.History(context.Background(), "bob", "alice", "camp42")
	require.NoError(t, err)
	var stored []string
	for _, m := range history {
		stored = append(stored, m.Text)
	}

	assert.Equal(t, stored, observed, "broadcast order equals persisted order")
}
