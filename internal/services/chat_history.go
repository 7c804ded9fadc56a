package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/frontier-forum/backend/internal/models"
)

// ChatHistoryLimit is how many messages the chat page loads.
const ChatHistoryLimit = 50

// chatTimeLayout is the display format for message times, e.g. "03:04 PM".
const chatTimeLayout = "03:04 PM"

// ChatMessageStore persists the durable copy of chat traffic. Persistence is
// independent of broadcast: live delivery is never rolled back when a write
// fails, and history is written even with no peers connected.
type ChatMessageStore struct {
	db *sql.DB
}

func NewChatMessageStore(db *sql.DB) *ChatMessageStore {
	return &ChatMessageStore{db: db}
}

// Save writes one message row.
func (s *ChatMessageStore) Save(ctx context.Context, userID uuid.UUID, message string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (user_id, message, created_at)
		VALUES ($1, $2, $3)
	`, userID.String(), message, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// SaveAsync persists a message without blocking the broadcast path. Failures
// are logged and otherwise swallowed; losing one history row is tolerable for
// a chat room, losing liveness is not.
func (s *ChatMessageStore) SaveAsync(userID uuid.UUID, message string, createdAt time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Save(ctx, userID, message, createdAt); err != nil {
			log.Printf("chat persistence failed: %v", err)
		}
	}()
}

// Recent returns the latest messages joined with author fields, oldest-first
// for rendering. Ties on created_at fall back to insertion (id) order.
func (s *ChatMessageStore) Recent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = ChatHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cm.id, cm.user_id, u.username, u.display_name, u.name_color, cm.message, cm.created_at
		FROM chat_messages cm
		JOIN users u ON cm.user_id = u.id
		ORDER BY cm.created_at DESC, cm.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.DisplayName, &m.NameColor, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.FormattedTime = m.CreatedAt.Format(chatTimeLayout)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	// Newest-first query, oldest-first display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
