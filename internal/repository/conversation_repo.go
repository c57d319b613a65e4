package repository

import (
	"context"
	"database/sql"

	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet returns the single conversation for userID, inserting it when
// absent. The no-op conflict update makes RETURNING yield the existing row,
// so two concurrent first contacts resolve to the same conversation.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	userID string,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (user_id)
		VALUES ($1)
		ON CONFLICT (user_id)
		DO UPDATE SET user_id = conversations.user_id
		RETURNING id, user_id, last_message_at, unread_count_admin, unread_count_user, created_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.LastMessageAt,
		&conversation.UnreadCountAdmin,
		&conversation.UnreadCountUser,
		&conversation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, last_message_at, unread_count_admin, unread_count_user, created_at
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.LastMessageAt,
		&conversation.UnreadCountAdmin,
		&conversation.UnreadCountUser,
		&conversation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

type ConversationWithLastMessage struct {
	Conversation models.Conversation
	LastMessage  *models.ChatMessage
}

// ListWithLastMessage returns every conversation together with its most
// recent message (ties on created_at broken by id).
func (r *ConversationRepository) ListWithLastMessage(ctx context.Context) ([]ConversationWithLastMessage, error) {
	query := `
		SELECT
			c.id,
			c.user_id,
			c.last_message_at,
			c.unread_count_admin,
			c.unread_count_user,
			c.created_at,
			lm.id,
			lm.sender_id,
			lm.sender_type,
			lm.message_type,
			lm.content,
			lm.created_at
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, sender_type, message_type, content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]ConversationWithLastMessage, 0)
	for rows.Next() {
		var item ConversationWithLastMessage
		var messageID sql.NullInt64
		var messageSenderID sql.NullString
		var messageSenderType sql.NullString
		var messageType sql.NullString
		var messageContent *string
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&item.Conversation.ID,
			&item.Conversation.UserID,
			&item.Conversation.LastMessageAt,
			&item.Conversation.UnreadCountAdmin,
			&item.Conversation.UnreadCountUser,
			&item.Conversation.CreatedAt,
			&messageID,
			&messageSenderID,
			&messageSenderType,
			&messageType,
			&messageContent,
			&messageCreatedAt,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			item.LastMessage = &models.ChatMessage{
				ID:             messageID.Int64,
				ConversationID: item.Conversation.ID,
				SenderID:       messageSenderID.String,
				SenderType:     messageSenderType.String,
				MessageType:    messageType.String,
				Content:        messageContent,
				CreatedAt:      messageCreatedAt.Time,
			}
		}

		results = append(results, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
