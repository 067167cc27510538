package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
)

// PostgresStore persists messages in Postgres through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, draft model.MessageDraft) (*model.Message, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	msg := model.Message{
		RoomID:     draft.RoomID,
		SenderID:   draft.SenderID,
		ReceiverID: draft.ReceiverID,
		SenderName: draft.SenderName,
		Text:       strings.TrimSpace(draft.Text),
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (room_id, sender_id, receiver_id, sender_name, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, msg.RoomID, msg.SenderID, msg.ReceiverID, msg.SenderName, msg.Text).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, &PersistenceError{Op: "insert message", Err: err}
	}

	return &msg, nil
}

func (s *PostgresStore) History(ctx context.Context, roomID string) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender_id, receiver_id, sender_name, text, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, &PersistenceError{Op: "query history", Err: err}
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.ReceiverID, &m.SenderName, &m.Text, &m.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "scan history row", Err: err}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate history", Err: err}
	}

	return msgs, nil
}

// DeleteOlderThan removes messages older than the given number of days and
// returns the number of deleted rows.
func (s *PostgresStore) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM messages WHERE created_at < NOW() - make_interval(days => $1)
	`, days)
	if err != nil {
		return 0, &PersistenceError{Op: "delete old messages", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
