package handlers

import (
	"net/http"

	"batball/internal/apperr"
	"batball/internal/middleware"
	"batball/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ForumHandler struct {
	service service.ForumService
}

func NewForumHandler(service service.ForumService) *ForumHandler {
	return &ForumHandler{service: service}
}

// currentUserID достает uuid пользователя из контекста Auth/OptionalAuth
func currentUserID(c *gin.Context) (*uuid.UUID, error) {
	raw, _, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token claims")
	}
	return &id, nil
}

func (h *ForumHandler) CreatePost(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	if userID == nil {
		middleware.Fail(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidArgument("invalid request body"))
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), *userID, req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *ForumHandler) ListPosts(c *gin.Context) {
	posts, err := h.service.ListPosts(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

func (h *ForumHandler) GetPost(c *gin.Context) {
	post, err := h.service.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// AddComment принимает комментарий от пользователя с токеном или от гостя с guestUsername
func (h *ForumHandler) AddComment(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidArgument("invalid request body"))
		return
	}

	author := service.Author{UserID: userID, GuestName: req.GuestUsername}
	post, err := h.service.AddComment(c.Request.Context(), c.Param("id"), author, req.Content)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}
