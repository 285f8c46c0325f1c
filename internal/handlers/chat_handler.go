package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"batball/internal/apperr"
	"batball/internal/auth"
	"batball/internal/chat"
	"batball/internal/middleware"
	"batball/internal/models"
	"batball/internal/repository"
	"batball/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxChatHistory = 200
	exportLimit    = 5000
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type ChatHandler struct {
	hub      *chat.Hub
	messages repository.ChatRepository
	jwt      *auth.JWTService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewChatHandler accepts socket connections only from allowedOrigins; an
// empty list allows any origin.
func NewChatHandler(
	hub *chat.Hub,
	messages repository.ChatRepository,
	jwt *auth.JWTService,
	allowedOrigins []string,
	logger *zap.Logger,
) *ChatHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin != "" {
			origins[origin] = struct{}{}
		}
	}

	return &ChatHandler{
		hub:      hub,
		messages: messages,
		jwt:      jwt,
		logger:   logger.Named("chat"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// ServeWS апгрейдит соединение; ?token= делает клиента зарегистрированным
func (h *ChatHandler) ServeWS(c *gin.Context) {
	var identity *chat.Identity
	if token := c.Query("token"); token != "" {
		claims, err := h.jwt.ValidateToken(token)
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		identity = &chat.Identity{UserID: claims.UserID, Username: claims.Username}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.ServeConn(conn, chat.NewClient(identity))
}

func (h *ChatHandler) History(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	if limit < 1 || limit > maxChatHistory {
		middleware.Fail(c, apperr.InvalidArgument("limit must be between 1 and %d", maxChatHistory))
		return
	}

	messages, err := h.messages.History(c.Request.Context(), c.Param("room"), limit)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(apperr.KindInternal, "load chat history", err))
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	c.JSON(http.StatusOK, gin.H{"room": c.Param("room"), "messages": messages})
}

func (h *ChatHandler) Export(c *gin.Context) {
	room := c.Param("room")
	messages, err := h.messages.History(c.Request.Context(), room, exportLimit)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(apperr.KindInternal, "load chat history", err))
		return
	}

	var buf bytes.Buffer
	now := time.Now()
	if err := utils.WriteChatTranscript(&buf, room, messages, now); err != nil {
		middleware.Fail(c, apperr.Wrap(apperr.KindInternal, "build transcript", err))
		return
	}

	filename := fmt.Sprintf("chat_%s_%s.xlsx", unsafeFileChars.ReplaceAllString(room, "_"), now.UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
