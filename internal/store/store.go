// Package store is the persistence boundary for chat messages.
package store

import (
	"context"
	"strings"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
)

// MessageStore is implemented by every message persistence backend.
// Both PostgresStore and SQLiteStore implement this interface.
type MessageStore interface {
	// Append validates the draft, assigns id and created_at, persists the
	// message and returns the stored record. Drafts with missing fields fail
	// with *ValidationError; storage failures surface as *PersistenceError.
	Append(ctx context.Context, draft model.MessageDraft) (*model.Message, error)

	// History returns every message of the room in ascending created_at
	// order (id breaks ties).
	History(ctx context.Context, roomID string) ([]model.Message, error)

	Ping(ctx context.Context) error
	Close()
}

// Retention is implemented by backends that support pruning old messages.
type Retention interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

func validateDraft(draft model.MessageDraft) error {
	switch {
	case draft.RoomID == "":
		return &ValidationError{Field: "room_id"}
	case strings.TrimSpace(draft.Text) == "":
		return &ValidationError{Field: "text"}
	case draft.SenderID == "":
		return &ValidationError{Field: "sender_id"}
	case draft.ReceiverID == "":
		return &ValidationError{Field: "receiver_id"}
	case draft.SenderName == "":
		return &ValidationError{Field: "sender_name"}
	}
	return nil
}
