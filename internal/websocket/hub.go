package chatws

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
	"github.com/kevinpb-93/employee-tracking-system/internal/services"
)

// Hub pushes appended chat messages to connected clients. Employee clients
// receive traffic for their own conversation; admin clients receive traffic
// for every conversation.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	admins     map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	role   string
	send   chan []byte
}

type sender interface {
	SendMessage(
		ctx context.Context,
		actorID string,
		role string,
		input services.SendMessageInput,
	) (*services.ChatDelivery, error)
}

type Event struct {
	Type           string              `json:"type"`
	ConversationID string              `json:"conversation_id"`
	OwnerUserID    string              `json:"-"`
	Message        *models.ChatMessage `json:"message,omitempty"`
	Timestamp      string              `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		admins:     make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, role string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			if client.role == models.RoleAdmin {
				h.admins[client] = struct{}{}
			}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				delete(h.admins, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastDelivery fans out a freshly appended message.
func (h *Hub) BroadcastDelivery(delivery *services.ChatDelivery) {
	h.broadcast <- &Event{
		Type:           "message",
		ConversationID: strconv.FormatInt(delivery.Message.ConversationID, 10),
		OwnerUserID:    delivery.OwnerUserID,
		Message:        delivery.Message,
		Timestamp:      services.FormatChatTimestamp(delivery.Message.CreatedAt),
	}
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("chat hub encode event: %v", err)
		return
	}

	h.sendToUser(event.OwnerUserID, encoded)
	for client := range h.admins {
		h.sendToClient(client, encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		h.sendToClient(client, payload)
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) sendToClient(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		if set, ok := h.clients[client.userID]; ok {
			delete(set, client)
		}
		delete(h.admins, client)
		close(client.send)
	}
}

func (c *Client) ReadPump(service sender, role string) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type           string `json:"type"`
			ConversationID string `json:"conversation_id"`
			Content        string `json:"content"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload")
			continue
		}
		if incoming.Type != "message" {
			writeError(c, "unsupported message type")
			continue
		}

		conversationID, err := strconv.ParseInt(incoming.ConversationID, 10, 64)
		if err != nil || conversationID <= 0 {
			writeError(c, "invalid conversation id")
			continue
		}

		senderType := models.SenderUser
		if role == models.RoleAdmin {
			senderType = models.SenderAdmin
		}

		content := incoming.Content
		delivery, err := service.SendMessage(context.Background(), c.userID, role, services.SendMessageInput{
			ConversationID: conversationID,
			SenderID:       c.userID,
			SenderType:     senderType,
			Content:        &content,
			MessageType:    models.MessageTypeText,
		})
		if err != nil {
			writeError(c, "failed to send message")
			continue
		}

		c.hub.BroadcastDelivery(delivery)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func writeError(c *Client, message string) {
	payload, err := json.Marshal(map[string]string{"type": "error", "error": message})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
