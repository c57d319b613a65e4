package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

type CreateMessageInput struct {
	ConversationID   int64
	SenderID         string
	SenderType       string
	MessageType      string
	Content          *string
	ReplyToMessageID *int64
	TaskID           *int64
	MediaURL         *string
	MediaFilename    *string
	MediaSize        *int64
}

// Create inserts the message and, in the same statement, bumps the owning
// conversation's last_message_at and the opposite party's unread counter.
// The counter increment is relative, so interleaved appends never lose
// updates, and no reader can observe the message without the counter.
func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.ChatMessage, error) {
	query := `
		WITH msg AS (
			INSERT INTO messages (
				conversation_id, sender_id, sender_type, message_type, content,
				reply_to_message_id, task_id, media_url, media_filename, media_size, is_read
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
			RETURNING id, conversation_id, sender_id, sender_type, message_type, content,
				reply_to_message_id, task_id, media_url, media_filename, media_size, is_read, created_at
		), conv AS (
			UPDATE conversations c
			SET last_message_at = msg.created_at,
				unread_count_admin = c.unread_count_admin + CASE WHEN msg.sender_type = 'user' THEN 1 ELSE 0 END,
				unread_count_user = c.unread_count_user + CASE WHEN msg.sender_type = 'admin' THEN 1 ELSE 0 END
			FROM msg
			WHERE c.id = msg.conversation_id
		)
		SELECT id, conversation_id, sender_id, sender_type, message_type, content,
			reply_to_message_id, task_id, media_url, media_filename, media_size, is_read, created_at
		FROM msg
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query,
		input.ConversationID,
		input.SenderID,
		input.SenderType,
		input.MessageType,
		input.Content,
		input.ReplyToMessageID,
		input.TaskID,
		input.MediaURL,
		input.MediaFilename,
		input.MediaSize,
	).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.SenderType,
		&message.MessageType,
		&message.Content,
		&message.ReplyToMessageID,
		&message.TaskID,
		&message.MediaURL,
		&message.MediaFilename,
		&message.MediaSize,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// GetByIDInConversation resolves a message only when it belongs to the given
// conversation. Used to reject cross-conversation reply references.
func (r *MessageRepository) GetByIDInConversation(
	ctx context.Context,
	messageID int64,
	conversationID int64,
) (*models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, sender_type, message_type, content,
			reply_to_message_id, task_id, media_url, media_filename, media_size, is_read, created_at
		FROM messages
		WHERE id = $1 AND conversation_id = $2
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, messageID, conversationID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.SenderType,
		&message.MessageType,
		&message.Content,
		&message.ReplyToMessageID,
		&message.TaskID,
		&message.MediaURL,
		&message.MediaFilename,
		&message.MediaSize,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns up to limit messages oldest first, each with its
// reply preview and task summary resolved when present. A reply target that
// retention has already deleted scans as NULL and yields a nil preview.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
) ([]models.ChatMessage, error) {
	query := `
		SELECT
			m.id, m.conversation_id, m.sender_id, m.sender_type, m.message_type, m.content,
			m.reply_to_message_id, m.task_id, m.media_url, m.media_filename, m.media_size,
			m.is_read, m.created_at,
			r.id, r.content, r.sender_type, ru.name,
			t.id, t.name
		FROM messages m
		LEFT JOIN messages r ON r.id = m.reply_to_message_id
		LEFT JOIN users ru ON ru.id = r.sender_id
		LEFT JOIN tasks t ON t.id = m.task_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		var replyID sql.NullInt64
		var replyContent *string
		var replySenderType sql.NullString
		var replySenderName sql.NullString
		var taskID sql.NullInt64
		var taskName sql.NullString

		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.SenderType,
			&message.MessageType,
			&message.Content,
			&message.ReplyToMessageID,
			&message.TaskID,
			&message.MediaURL,
			&message.MediaFilename,
			&message.MediaSize,
			&message.IsRead,
			&message.CreatedAt,
			&replyID,
			&replyContent,
			&replySenderType,
			&replySenderName,
			&taskID,
			&taskName,
		); err != nil {
			return nil, err
		}

		if replyID.Valid {
			message.ReplyTo = &models.ReplyPreview{
				ID:         replyID.Int64,
				Content:    replyContent,
				SenderType: replySenderType.String,
				SenderName: replySenderName.String,
			}
		}
		if taskID.Valid {
			message.Task = &models.TaskSummary{
				ID:   taskID.Int64,
				Name: taskName.String,
			}
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkConversationRead flags every unread message from the opposite party and
// decrements the reader's counter by the number of rows actually marked, in
// one statement. The decrement is relative rather than a reset to zero: a
// message appended after this statement's snapshot is invisible to the marked
// CTE, so a reset would zero its counter contribution while the row stayed
// unread.
func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	conversationID int64,
	readerType string,
) error {
	query := `
		WITH marked AS (
			UPDATE messages
			SET is_read = TRUE
			WHERE conversation_id = $1
			  AND sender_type <> $2
			  AND is_read = FALSE
			RETURNING id
		)
		UPDATE conversations
		SET unread_count_admin = CASE WHEN $2 = 'admin'
				THEN GREATEST(0, unread_count_admin - (SELECT count(*) FROM marked))
				ELSE unread_count_admin END,
			unread_count_user = CASE WHEN $2 = 'user'
				THEN GREATEST(0, unread_count_user - (SELECT count(*) FROM marked))
				ELSE unread_count_user END
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, conversationID, readerType)
	return err
}

// ListMediaURLsBefore returns the media URLs of all messages created strictly
// before cutoff. Used by the retention sweep to delete blobs ahead of rows.
func (r *MessageRepository) ListMediaURLsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT media_url
		FROM messages
		WHERE created_at < $1 AND media_url IS NOT NULL
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return urls, nil
}

func (r *MessageRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
