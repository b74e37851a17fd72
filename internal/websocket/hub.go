package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/tripkeep/internal/model"
)

const TypeBackupStatus = "backup_status"

// Message is a notification pushed to one user's connections.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// BackupStatus wraps a job snapshot as a backup_status message.
func BackupStatus(b model.Backup) Message {
	return Message{Type: TypeBackupStatus, Data: b}
}

// Hub tracks active clients by user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.user]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.user] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.user]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.user)
	}
}

// SendToUser delivers msg to every connection of user. Clients whose buffer
// is full miss the message rather than block the sender.
func (h *Hub) SendToUser(user string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[user] {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client buffer full, dropping message", "user", user, "type", msg.Type)
		}
	}
}

// NotifyBackup pushes a job's status to its owner.
func (h *Hub) NotifyBackup(b model.Backup) {
	h.SendToUser(b.User, BackupStatus(b))
}

// ClientCount returns the number of connections for user.
func (h *Hub) ClientCount(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[user])
}
