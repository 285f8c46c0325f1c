package chat

import (
	"sync"
)

const sendBufferSize = 64

// Identity is a verified user attached to a connection from its token.
type Identity struct {
	UserID   string
	Username string
}

// Client is one connection as seen by the hub. The transport drains Send
// and closes the connection once Done is closed.
type Client struct {
	identity *Identity
	send     chan []byte
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	room     string
	userID   string
	username string
	isGuest  bool
}

func NewClient(identity *Identity) *Client {
	return &Client{
		identity: identity,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) Send() <-chan []byte { return c.send }

func (c *Client) Done() <-chan struct{} { return c.done }

// Room returns the room of the active join, empty when not joined.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) author() (userID, username string, isGuest bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.username, c.isGuest
}

func (c *Client) setJoin(room, userID, username string, isGuest bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
	c.userID = userID
	c.username = username
	c.isGuest = isGuest
}

func (c *Client) clearJoin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = ""
}

// enqueue не блокирует: при переполненном буфере возвращает false
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close is safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}
