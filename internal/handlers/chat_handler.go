package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
	"github.com/kevinpb-93/employee-tracking-system/internal/services"
	chatws "github.com/kevinpb-93/employee-tracking-system/internal/websocket"
	"github.com/kevinpb-93/employee-tracking-system/pkg/utils"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

type chatApplicationService interface {
	ResolveConversation(ctx context.Context, actorID string, role string, userID string) (*models.Conversation, error)
	ListConversationsForAdmin(ctx context.Context, role string) ([]models.ConversationEntry, error)
	SendMessage(ctx context.Context, actorID string, role string, input services.SendMessageInput) (*services.ChatDelivery, error)
	ListMessages(ctx context.Context, actorID string, role string, conversationID int64, limit int) ([]models.ChatMessage, error)
	MarkConversationRead(ctx context.Context, actorID string, role string, conversationID int64) error
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	_, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversationsForAdmin(c.Context(), role)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

type resolveConversationRequest struct {
	UserID string `json:"user_id"`
}

func (h *ChatHandler) ResolveConversation(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req resolveConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		req.UserID = actorID
	}

	conversation, err := h.service.ResolveConversation(c.Context(), actorID, role, req.UserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	limit := parsePositiveInt(c.Query("limit"), defaultHistoryLimit)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, err := h.service.ListMessages(c.Context(), actorID, role, conversationID, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

type sendMessageRequest struct {
	Content          *string `json:"content"`
	MessageType      string  `json:"message_type"`
	ReplyToMessageID *int64  `json:"reply_to_message_id"`
	TaskID           *int64  `json:"task_id"`
}

// SendMessage accepts JSON for text messages and multipart form data when a
// media file is attached.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	input := services.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       actorID,
		SenderType:     senderTypeForRole(role),
	}

	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		if err := parseMultipartMessage(c, &input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	} else {
		var req sendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		input.Content = req.Content
		input.MessageType = req.MessageType
		input.ReplyToMessageID = req.ReplyToMessageID
		input.TaskID = req.TaskID
	}

	if input.MessageType == "" {
		input.MessageType = models.MessageTypeText
	}

	delivery, err := h.service.SendMessage(c.Context(), actorID, role, input)
	if err != nil {
		return mapServiceError(c, err)
	}

	if h.hub != nil {
		h.hub.BroadcastDelivery(delivery)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Message})
}

func parseMultipartMessage(c *fiber.Ctx, input *services.SendMessageInput) error {
	if content := c.FormValue("content"); content != "" {
		input.Content = &content
	}
	input.MessageType = c.FormValue("message_type")

	if raw := c.FormValue("reply_to_message_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.New("invalid reply_to_message_id")
		}
		input.ReplyToMessageID = &id
	}
	if raw := c.FormValue("task_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.New("invalid task_id")
		}
		input.TaskID = &id
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errors.New("file is required for multipart messages")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return errors.New("failed to open uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return errors.New("failed to read uploaded file")
	}

	input.Media = &services.FileUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}
	return nil
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.MarkConversationRead(c.Context(), actorID, role, conversationID); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	client := chatws.NewClient(h.hub, conn, userID, role)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service, role)
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func senderTypeForRole(role string) string {
	if role == models.RoleAdmin {
		return models.SenderAdmin
	}
	return models.SenderUser
}

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
