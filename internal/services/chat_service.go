package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
	"github.com/kevinpb-93/employee-tracking-system/internal/repository"
)

type conversationStore interface {
	CreateOrGet(ctx context.Context, userID string) (*models.Conversation, error)
	GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error)
	ListWithLastMessage(ctx context.Context) ([]repository.ConversationWithLastMessage, error)
}

type messageStore interface {
	Create(ctx context.Context, input repository.CreateMessageInput) (*models.ChatMessage, error)
	GetByIDInConversation(ctx context.Context, messageID int64, conversationID int64) (*models.ChatMessage, error)
	ListByConversation(ctx context.Context, conversationID int64, limit int) ([]models.ChatMessage, error)
	MarkConversationRead(ctx context.Context, conversationID int64, readerType string) error
}

type employeeLister interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListEmployees(ctx context.Context) ([]models.User, error)
}

type ChatService struct {
	conversationRepo conversationStore
	messageRepo      messageStore
	userRepo         employeeLister
	storage          StorageService
	chatMediaLimits  UploadLimits
}

// ChatDelivery carries a stored message plus the routing information the
// websocket hub needs to push it.
type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	OwnerUserID  string
}

type SendMessageInput struct {
	ConversationID   int64
	SenderID         string
	SenderType       string
	Content          *string
	MessageType      string
	ReplyToMessageID *int64
	TaskID           *int64
	Media            *FileUpload
}

func NewChatService(
	conversationRepo conversationStore,
	messageRepo messageStore,
	userRepo employeeLister,
	storage StorageService,
	chatMediaLimits UploadLimits,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		storage:          storage,
		chatMediaLimits:  chatMediaLimits,
	}
}

// ResolveConversation returns the single conversation for userID, creating
// it on first contact. Employees may only resolve their own conversation.
func (s *ChatService) ResolveConversation(
	ctx context.Context,
	actorID string,
	role string,
	userID string,
) (*models.Conversation, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if role != models.RoleAdmin && actorID != userID {
		return nil, ErrForbidden
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Role != models.RoleEmployee {
		return nil, ErrInvalidInput
	}

	return s.conversationRepo.CreateOrGet(ctx, userID)
}

// ListConversationsForAdmin merges persisted conversations with placeholder
// entries for employees who have never messaged. Conversations with traffic
// come first, most recent first; the rest sort by employee name.
func (s *ChatService) ListConversationsForAdmin(ctx context.Context, role string) ([]models.ConversationEntry, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	employees, err := s.userRepo.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	conversations, err := s.conversationRepo.ListWithLastMessage(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]repository.ConversationWithLastMessage, len(conversations))
	for _, item := range conversations {
		byUser[item.Conversation.UserID] = item
	}

	entries := make([]models.ConversationEntry, 0, len(employees))
	for i := range employees {
		employee := employees[i]
		entry := models.ConversationEntry{User: employee.Summary()}
		if item, ok := byUser[employee.ID]; ok {
			conversation := item.Conversation
			entry.Conversation = &conversation
			entry.LastMessage = item.LastMessage
		} else {
			entry.Placeholder = true
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entryLastMessageAt(entries[i]), entryLastMessageAt(entries[j])
		switch {
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		case a != nil && b != nil:
			return a.After(*b)
		default:
			return entries[i].User.Name < entries[j].User.Name
		}
	})

	return entries, nil
}

func entryLastMessageAt(entry models.ConversationEntry) *time.Time {
	if entry.Conversation == nil {
		return nil
	}
	return entry.Conversation.LastMessageAt
}

// SendMessage validates and appends a message. Media is uploaded before the
// row is inserted so a failed upload never leaves a message pointing at a
// missing blob; a failed insert after a successful upload deletes the blob.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID string,
	role string,
	input SendMessageInput,
) (*ChatDelivery, error) {
	switch input.MessageType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeVideo:
	default:
		return nil, fmt.Errorf("%w: message type %q", ErrInvalidInput, input.MessageType)
	}
	if input.Media != nil && input.MessageType == models.MessageTypeText {
		return nil, fmt.Errorf("%w: text messages cannot carry media", ErrInvalidInput)
	}
	if input.SenderType != models.SenderAdmin && input.SenderType != models.SenderUser {
		return nil, fmt.Errorf("%w: sender type %q", ErrInvalidInput, input.SenderType)
	}
	if input.Media == nil && trimmedContent(input.Content) == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}

	conversation, err := s.conversationRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch role {
	case models.RoleAdmin:
		if input.SenderType != models.SenderAdmin {
			return nil, ErrForbidden
		}
	case models.RoleEmployee:
		if input.SenderType != models.SenderUser || actorID != conversation.UserID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	if input.ReplyToMessageID != nil {
		_, err := s.messageRepo.GetByIDInConversation(ctx, *input.ReplyToMessageID, conversation.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: reply target is not part of this conversation", ErrInvalidInput)
			}
			return nil, err
		}
	}

	createInput := repository.CreateMessageInput{
		ConversationID:   conversation.ID,
		SenderID:         actorID,
		SenderType:       input.SenderType,
		MessageType:      input.MessageType,
		Content:          normalizedContent(input.Content),
		ReplyToMessageID: input.ReplyToMessageID,
		TaskID:           input.TaskID,
	}

	var uploadedURL string
	if input.Media != nil {
		if s.storage == nil {
			return nil, ErrStorageUnavailable
		}
		folder := fmt.Sprintf("chat-media/%d", conversation.ID)
		upload := *input.Media
		upload.Filename = uniqueFilename(upload.Filename)
		stored, err := s.storage.Upload(ctx, folder, upload, s.chatMediaLimits)
		if err != nil {
			return nil, err
		}
		uploadedURL = stored.URL
		mediaSize := stored.Size
		createInput.MediaURL = &stored.URL
		createInput.MediaFilename = &input.Media.Filename
		createInput.MediaSize = &mediaSize
	}

	message, err := s.messageRepo.Create(ctx, createInput)
	if err != nil {
		if uploadedURL != "" {
			if cleanupErr := s.storage.DeleteFile(ctx, uploadedURL); cleanupErr != nil {
				log.Printf("chat media cleanup: %s left for manual reconciliation: %v", uploadedURL, cleanupErr)
			}
		}
		return nil, err
	}

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		OwnerUserID:  conversation.UserID,
	}, nil
}

// ListMessages returns up to limit messages oldest first, with reply
// previews and task summaries resolved.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID string,
	role string,
	conversationID int64,
	limit int,
) ([]models.ChatMessage, error) {
	if conversationID <= 0 || limit <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.authorizeConversation(ctx, actorID, role, conversationID); err != nil {
		return nil, err
	}

	return s.messageRepo.ListByConversation(ctx, conversationID, limit)
}

// MarkConversationRead flags the opposite party's unread messages as read
// and zeroes the reader's counter.
func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actorID string,
	role string,
	conversationID int64,
) error {
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	if _, err := s.authorizeConversation(ctx, actorID, role, conversationID); err != nil {
		return err
	}

	readerType := models.SenderUser
	if role == models.RoleAdmin {
		readerType = models.SenderAdmin
	}

	return s.messageRepo.MarkConversationRead(ctx, conversationID, readerType)
}

func (s *ChatService) authorizeConversation(
	ctx context.Context,
	actorID string,
	role string,
	conversationID int64,
) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if role != models.RoleAdmin && conversation.UserID != actorID {
		return nil, ErrForbidden
	}

	return conversation, nil
}

func trimmedContent(content *string) string {
	if content == nil {
		return ""
	}
	return strings.TrimSpace(*content)
}

func normalizedContent(content *string) *string {
	trimmed := trimmedContent(content)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

func uniqueFilename(original string) string {
	sanitized := unsafeFilenameChars.ReplaceAllString(original, "_")
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitized)
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
