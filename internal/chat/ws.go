package chat

import (
	"context"
	"encoding/json"
	"time"

	"batball/internal/apperr"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxFrameSize   = 8 << 10
	requestTimeout = 10 * time.Second
)

// ServeConn runs the read loop of one socket until it closes. It blocks;
// the writer runs in its own goroutine and exits with the connection.
func (h *Hub) ServeConn(conn *websocket.Conn, c *Client) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, c)
	}()

	defer func() {
		h.Leave(c)
		c.Close()
		<-writerDone
	}()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("chat socket closed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			h.replyError(c, apperr.InvalidArgument("malformed frame"))
			continue
		}
		h.dispatch(c, event)
	}
}

func (h *Hub) dispatch(c *Client, event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch event.Type {
	case EventJoinRoom:
		var req JoinRequest
		if err := json.Unmarshal(event.Data, &req); err != nil {
			h.replyError(c, apperr.InvalidArgument("malformed join_room payload"))
			return
		}
		if err := h.Join(ctx, c, req); err != nil {
			h.replyError(c, err)
		}
	case EventSendMessage:
		var req SendRequest
		if err := json.Unmarshal(event.Data, &req); err != nil {
			h.replyError(c, apperr.InvalidArgument("malformed send_message payload"))
			return
		}
		if err := h.Send(ctx, c, req); err != nil {
			h.replyError(c, err)
		}
	case EventPing:
		if frame, err := encodeEvent(EventPong, nil); err == nil {
			c.enqueue(frame)
		}
	default:
		h.replyError(c, apperr.InvalidArgument("unknown event type %q", event.Type))
	}
}

// replyError отправляет error только этому соединению
func (h *Hub) replyError(c *Client, err error) {
	message := "internal error"
	if appErr, ok := apperr.As(err); ok && appErr.Message != "" {
		message = appErr.Message
	}

	frame, encErr := encodeEvent(EventError, errorPayload{Message: message})
	if encErr != nil {
		return
	}
	c.enqueue(frame)
}

func (h *Hub) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
