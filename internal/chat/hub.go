// Package chat is the room broadcaster behind the chat socket: history on
// join, persist then fan-out on send.
package chat

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"batball/internal/apperr"
	"batball/internal/models"

	"go.uber.org/zap"
)

// ограничения совпадают с размерами колонок chat_messages
const (
	maxRoomLen     = 100
	maxUsernameLen = 100
	maxUserIDLen   = 64
)

// MessageStore is the persistent room log.
type MessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	History(ctx context.Context, room string, limit int) ([]models.ChatMessage, error)
}

type Config struct {
	HistoryLimit  int
	MaxMessageLen int
}

type Hub struct {
	store  MessageStore
	config Config
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

// room.mu держится на всё время persist + рассылки
type room struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub(store MessageStore, config Config, logger *zap.Logger) *Hub {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 50
	}
	if config.MaxMessageLen <= 0 {
		config.MaxMessageLen = 500
	}
	return &Hub{
		store:  store,
		config: config,
		logger: logger,
		rooms:  make(map[string]*room),
	}
}

// Join subscribes c to req.Room, leaving its previous room first.
func (h *Hub) Join(ctx context.Context, c *Client, req JoinRequest) error {
	roomName := strings.TrimSpace(req.Room)
	if roomName == "" {
		return apperr.InvalidArgument("room is required")
	}
	if len(roomName) > maxRoomLen {
		return apperr.InvalidArgument("room name is too long")
	}

	userID := strings.TrimSpace(req.UserID)
	username := strings.TrimSpace(req.Username)
	isGuest := req.IsGuest
	if c.identity != nil {
		userID = c.identity.UserID
		username = c.identity.Username
		isGuest = false
	}
	if username == "" {
		return apperr.InvalidArgument("username is required")
	}
	if !isGuest && userID == "" {
		return apperr.InvalidArgument("userId is required for registered users")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return apperr.InvalidArgument("username is too long")
	}
	if utf8.RuneCountInString(userID) > maxUserIDLen {
		return apperr.InvalidArgument("userId is too long")
	}

	if prev := c.Room(); prev != "" {
		h.leave(c, prev)
	}

	r := h.acquire(roomName)
	defer r.mu.Unlock()

	history, err := h.store.History(ctx, roomName, h.config.HistoryLimit)
	if err != nil {
		h.logger.Error("failed to load chat history", zap.String("room", roomName), zap.Error(err))
		history = nil
	}
	if history == nil {
		history = []models.ChatMessage{}
	}

	r.clients[c] = struct{}{}
	c.setJoin(roomName, userID, username, isGuest)

	frame, err := encodeEvent(EventChatHistory, history)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode history", err)
	}
	if !c.enqueue(frame) {
		h.evict(roomName, r, c)
		return nil
	}

	if isGuest {
		return nil
	}

	msg := &models.ChatMessage{
		Room:      roomName,
		UserID:    &userID,
		Username:  username,
		Body:      username + " joined the room",
		EventType: models.EventJoin,
	}
	if err := h.store.Create(ctx, msg); err != nil {
		h.logger.Warn("failed to persist join event",
			zap.String("room", roomName),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	h.broadcast(roomName, r, msg)
	return nil
}

// Send persists req.Message and delivers it to every member of the room,
// the sender included. Nothing is broadcast when persisting fails.
func (h *Hub) Send(ctx context.Context, c *Client, req SendRequest) error {
	body := strings.TrimSpace(req.Message)
	if body == "" {
		return apperr.InvalidArgument("message is required")
	}
	if utf8.RuneCountInString(body) > h.config.MaxMessageLen {
		return apperr.InvalidArgument("message exceeds %d characters", h.config.MaxMessageLen)
	}

	joined := c.Room()
	if joined == "" {
		return apperr.InvalidArgument("join a room before sending messages")
	}
	if target := strings.TrimSpace(req.Room); target != "" && target != joined {
		return apperr.InvalidArgument("not joined to room %q", target)
	}

	r := h.lookup(joined)
	if r == nil {
		return apperr.InvalidArgument("not joined to room %q", joined)
	}
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return apperr.InvalidArgument("not joined to room %q", joined)
	}

	userID, username, isGuest := c.author()
	msg := &models.ChatMessage{
		Room:      joined,
		Username:  username,
		Body:      body,
		EventType: models.EventMessage,
		IsGuest:   isGuest,
	}
	if !isGuest {
		msg.UserID = &userID
	}

	if err := h.store.Create(ctx, msg); err != nil {
		h.logger.Error("failed to persist chat message", zap.String("room", joined), zap.Error(err))
		return apperr.Wrap(apperr.KindInternal, "failed to save message", err)
	}

	h.broadcast(joined, r, msg)
	return nil
}

// Leave removes c from its room. Nothing is persisted.
func (h *Hub) Leave(c *Client) {
	if name := c.Room(); name != "" {
		h.leave(c, name)
	}
}

// Members returns the number of connections joined to name.
func (h *Hub) Members(name string) int {
	r := h.lookup(name)
	if r == nil {
		return 0
	}
	defer r.mu.Unlock()
	return len(r.clients)
}

// Rooms returns the number of rooms with at least one member.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Close disconnects every client. The hub stays usable afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	names := make([]string, 0, len(h.rooms))
	for name := range h.rooms {
		names = append(names, name)
	}
	h.mu.Unlock()

	for _, name := range names {
		r := h.lookup(name)
		if r == nil {
			continue
		}
		for c := range r.clients {
			delete(r.clients, c)
			c.clearJoin()
			c.Close()
		}
		h.dropIfEmpty(name, r)
		r.mu.Unlock()
	}
}

func (h *Hub) leave(c *Client, name string) {
	r := h.lookup(name)
	if r == nil {
		c.clearJoin()
		return
	}
	defer r.mu.Unlock()

	delete(r.clients, c)
	c.clearJoin()
	h.dropIfEmpty(name, r)
}

// broadcast вызывается под r.mu
func (h *Hub) broadcast(name string, r *room, msg *models.ChatMessage) {
	frame, err := encodeEvent(EventReceiveMessage, msg)
	if err != nil {
		h.logger.Error("failed to encode chat message", zap.Uint("id", msg.ID), zap.Error(err))
		return
	}

	for c := range r.clients {
		if !c.enqueue(frame) {
			h.evict(name, r, c)
		}
	}
}

// evict drops a client whose buffer is full. Called under r.mu.
func (h *Hub) evict(name string, r *room, c *Client) {
	h.logger.Warn("dropping slow chat client", zap.String("room", name))
	delete(r.clients, c)
	c.clearJoin()
	c.Close()
	h.dropIfEmpty(name, r)
}

// acquire returns the room locked, creating it when needed.
func (h *Hub) acquire(name string) *room {
	for {
		h.mu.Lock()
		r, ok := h.rooms[name]
		if !ok {
			r = &room{clients: make(map[*Client]struct{})}
			h.rooms[name] = r
		}
		h.mu.Unlock()

		r.mu.Lock()
		if !r.closed {
			return r
		}
		// комнату удалили между двумя захватами
		r.mu.Unlock()
	}
}

// lookup returns the existing room locked, or nil.
func (h *Hub) lookup(name string) *room {
	h.mu.Lock()
	r := h.rooms[name]
	h.mu.Unlock()
	if r == nil {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	return r
}

// dropIfEmpty is called under r.mu; lock order is room then hub.
func (h *Hub) dropIfEmpty(name string, r *room) {
	if len(r.clients) > 0 {
		return
	}
	r.closed = true

	h.mu.Lock()
	if h.rooms[name] == r {
		delete(h.rooms, name)
	}
	h.mu.Unlock()
}
