package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bizcomply/compliance-backend/pkg/logger"
)

const (
	// Rate limiting: maximum client messages per second
	maxMessagesPerSecond = 10
)

// Event is a server push frame.
type Event struct {
	Type string      `json:"type"` // notification, unread_count, scan_completed, pong
	Data interface{} `json:"data,omitempty"`
}

// ClientMessage is a frame received from a client
type ClientMessage struct {
	Type string `json:"type"` // ping
}

// Client is one websocket session. A user may hold several.
type Client struct {
	Hub           *Hub
	Conn          *Conn
	UserID        uint
	CompanyID     uint
	Send          chan []byte
	MessageCount  int       // messages received in the current second
	LastResetTime time.Time // start of the current rate window
	RateMu        sync.Mutex
}

// NewClient builds a session with a buffered send queue.
func NewClient(hub *Hub, conn *Conn, userID, companyID uint) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		UserID:    userID,
		CompanyID: companyID,
		Send:      make(chan []byte, 256),
	}
}

// Hub tracks connected sessions by user and by company.
type Hub struct {
	// registered sessions (UserID -> sessions, multi device)
	clients map[uint][]*Client

	// users online per company (CompanyID -> set of UserID)
	companies map[uint]map[uint]bool

	register   chan *Client
	unregister chan *Client
	outbound   chan *outboundMessage
	done       chan struct{}

	mu sync.RWMutex
}

type outboundMessage struct {
	userID    uint
	companyID uint // used when userID is zero
	payload   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		companies:  make(map[uint]map[uint]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		outbound:   make(chan *outboundMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and pushes until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			if _, ok := h.companies[client.CompanyID]; !ok {
				h.companies[client.CompanyID] = make(map[uint]bool)
			}
			h.companies[client.CompanyID][client.UserID] = true
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"company_id":     client.CompanyID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.outbound:
			h.deliver(message)
		}
	}
}

// Stop ends Run.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	clientList, ok := h.clients[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}

	newList := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		newList = append(newList, c)
	}
	if !found {
		h.mu.Unlock()
		return
	}

	if len(newList) == 0 {
		delete(h.clients, client.UserID)
		if users, ok := h.companies[client.CompanyID]; ok {
			delete(users, client.UserID)
			if len(users) == 0 {
				delete(h.companies, client.CompanyID)
			}
		}
	} else {
		h.clients[client.UserID] = newList
	}
	close(client.Send)
	remaining := len(newList)
	h.mu.Unlock()

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": remaining,
	})
}

func (h *Hub) deliver(message *outboundMessage) {
	h.mu.RLock()
	var targets []*Client
	if message.userID != 0 {
		targets = append(targets, h.clients[message.userID]...)
	} else {
		for userID := range h.companies[message.companyID] {
			targets = append(targets, h.clients[userID]...)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.Send <- message.payload:
		default:
			// Send queue is full, drop the session asynchronously
			go h.Unregister(client)
			logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
				"user_id": client.UserID,
			})
		}
	}
}

// SendNotificationToUser pushes an event to every session of the user.
// Pushes are best effort: a full queue drops the message.
func (h *Hub) SendNotificationToUser(userID uint, event Event) error {
	return h.enqueue(&outboundMessage{userID: userID}, event)
}

// BroadcastToCompany pushes an event to every online user of the company.
func (h *Hub) BroadcastToCompany(companyID uint, event Event) error {
	return h.enqueue(&outboundMessage{companyID: companyID}, event)
}

func (h *Hub) enqueue(message *outboundMessage, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal websocket event", err)
		return err
	}
	message.payload = data

	select {
	case h.outbound <- message:
	default:
		logger.Warn("Outbound channel full, message dropped", map[string]interface{}{
			"user_id":    message.userID,
			"company_id": message.companyID,
			"type":       event.Type,
		})
	}
	return nil
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsUserOnline reports whether the user holds at least one session.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// OnlineUsers lists the users of a company holding a session.
func (h *Hub) OnlineUsers(companyID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var users []uint
	for userID := range h.companies[companyID] {
		users = append(users, userID)
	}
	return users
}

// HandleClientMessage answers client frames. Only ping is understood.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		data, _ := json.Marshal(Event{Type: "pong"})
		select {
		case client.Send <- data:
		default:
		}
	}
}
