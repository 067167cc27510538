package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	sender_name TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at);
`

// SQLiteStore is a single-file message backend for development and small
// deployments. Same contract as PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, draft model.MessageDraft) (*model.Message, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	msg := model.Message{
		RoomID:     draft.RoomID,
		SenderID:   draft.SenderID,
		ReceiverID: draft.ReceiverID,
		SenderName: draft.SenderName,
		Text:       strings.TrimSpace(draft.Text),
		CreatedAt:  time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (room_id, sender_id, receiver_id, sender_name, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.RoomID, msg.SenderID, msg.ReceiverID, msg.SenderName, msg.Text, msg.CreatedAt)
	if err != nil {
		return nil, &PersistenceError{Op: "insert message", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &PersistenceError{Op: "read insert id", Err: err}
	}
	msg.ID = id

	return &msg, nil
}

func (s *SQLiteStore) History(ctx context.Context, roomID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, receiver_id, sender_name, text, created_at
		FROM messages
		WHERE room_id = ?
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

func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, &PersistenceError{Op: "delete old messages", Err: err}
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}
