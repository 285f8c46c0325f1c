package chat

import "encoding/json"

const (
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventChatHistory    = "chat_history"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
	EventPing           = "ping"
	EventPong           = "pong"
)

// Event is the frame exchanged over the socket in both directions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type JoinRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Room     string `json:"room"`
	IsGuest  bool   `json:"isGuest"`
}

// SendRequest carries the sender fields the client repeats on every message;
// only Message and Room are used, the author comes from the active join.
type SendRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Room     string `json:"room"`
	IsGuest  bool   `json:"isGuest"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func encodeEvent(eventType string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Event{Type: eventType, Data: raw})
}
