package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func draft(roomID, text string) model.MessageDraft {
	return model.MessageDraft{
		RoomID:     roomID,
		SenderID:   "alice",
		ReceiverID: "bob",
		SenderName: "Alice",
		Text:       text,
	}
}

func TestSQLiteAppendAssignsIdentity(t *testing.T) {
	st := newTestStore(t)

	msg, err := st.Append(context.Background(), draft("camp42:alice:bob", "hello"))
	require.NoError(t, err)

	assert.Positive(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "Alice", msg.SenderName)
}

func TestSQLiteAppendTrimsText(t *testing.T) {
	st := newTestStore(t)

	msg, err := st.Append(context.Background(), draft("camp42:alice:bob", "  hello  "))
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
}

func TestSQLiteAppendValidation(t *testing.T) {
	st := newTestStore(t)

	tests := []struct {
		name      string
		draft     model.MessageDraft
		wantField string
	}{
		{
			name:      "missing room",
			draft:     model.MessageDraft{SenderID: "a", ReceiverID: "b", SenderName: "A", Text: "hi"},
			wantField: "room_id",
		},
		{
			name:      "whitespace text",
			draft:     draft("camp42:alice:bob", "   "),
			wantField: "text",
		},
		{
			name:      "missing sender",
			draft:     model.MessageDraft{RoomID: "r", ReceiverID: "b", SenderName: "A", Text: "hi"},
			wantField: "sender_id",
		},
		{
			name:      "missing receiver",
			draft:     model.MessageDraft{RoomID: "r", SenderID: "a", SenderName: "A", Text: "hi"},
			wantField: "receiver_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.Append(context.Background(), tt.draft)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	// Nothing was written.
	msgs, err := st.History(context.Background(), "camp42:alice:bob")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSQLiteHistoryOrderAndIsolation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := st.Append(ctx, draft("camp42:alice:bob", text))
		require.NoError(t, err)
	}
	_, err := st.Append(ctx, draft("camp7:alice:bob", "other scope"))
	require.NoError(t, err)

	msgs, err := st.History(ctx, "camp42:alice:bob")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
	assert.Equal(t, "three", msgs[2].Text)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}

	other, err := st.History(ctx, "camp7:alice:bob")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSQLiteRetention(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Append(ctx, draft("camp42:alice:bob", "fresh"))
	require.NoError(t, err)

	deleted, err := st.DeleteOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, deleted, "recent messages survive the sweep")

	msgs, err := st.History(ctx, "camp42:alice:bob")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
