package models

import "time"

// Sender parties as stored in messages.sender_type. Employees send as "user".
const (
	SenderAdmin = "admin"
	SenderUser  = "user"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
)

type Conversation struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	LastMessageAt    *time.Time `json:"last_message_at"`
	UnreadCountAdmin int        `json:"unread_count_admin"`
	UnreadCountUser  int        `json:"unread_count_user"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ChatMessage struct {
	ID               int64     `json:"id"`
	ConversationID   int64     `json:"conversation_id"`
	SenderID         string    `json:"sender_id"`
	SenderType       string    `json:"sender_type"`
	MessageType      string    `json:"message_type"`
	Content          *string   `json:"content"`
	ReplyToMessageID *int64    `json:"reply_to_message_id"`
	TaskID           *int64    `json:"task_id"`
	MediaURL         *string   `json:"media_url"`
	MediaFilename    *string   `json:"media_filename"`
	MediaSize        *int64    `json:"media_size"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`

	ReplyTo *ReplyPreview `json:"reply_to,omitempty"`
	Task    *TaskSummary  `json:"task,omitempty"`
}

// ReplyPreview is the resolved reply-to target shown alongside a message. It
// is nil when the referenced message has been removed by retention.
type ReplyPreview struct {
	ID         int64   `json:"id"`
	Content    *string `json:"content"`
	SenderType string  `json:"sender_type"`
	SenderName string  `json:"sender_name"`
}

type TaskSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ConversationEntry is one row of the admin conversation list. Conversation
// is nil for employees who have never exchanged messages; such entries are
// placeholders and must not be treated as persisted conversations.
type ConversationEntry struct {
	Conversation *Conversation `json:"conversation,omitempty"`
	Placeholder  bool          `json:"placeholder"`
	User         UserSummary   `json:"user"`
	LastMessage  *ChatMessage  `json:"last_message,omitempty"`
}
