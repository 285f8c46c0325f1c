package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"batball/internal/apperr"
	"batball/internal/models"
	"batball/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Author is the identity behind a forum write: a registered user or a guest name.
type Author struct {
	UserID    *uuid.UUID
	GuestName string
}

type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateCommentRequest struct {
	Content       string `json:"content"`
	GuestUsername string `json:"guestUsername"`
}

type ForumService interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, req CreatePostRequest) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	AddComment(ctx context.Context, postID string, author Author, content string) (*models.Post, error)
}

type forumService struct {
	posts repository.PostRepository
}

func NewForumService(posts repository.PostRepository) ForumService {
	return &forumService{posts: posts}
}

func (s *forumService) CreatePost(ctx context.Context, authorID uuid.UUID, req CreatePostRequest) (*models.Post, error) {
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" || content == "" {
		return nil, apperr.InvalidArgument("title and content are required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return nil, apperr.InvalidArgument("title must be at most 200 characters")
	}

	post := &models.Post{Title: title, Content: content, AuthorID: authorID}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create post", err)
	}
	return s.GetPost(ctx, post.ID.String())
}

func (s *forumService) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list posts", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (s *forumService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	postID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("Post not found")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Post not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load post", err)
	}
	return post, nil
}

// AddComment добавляет комментарий от пользователя или гостя и возвращает пост целиком
func (s *forumService) AddComment(ctx context.Context, postID string, author Author, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.InvalidArgument("content is required")
	}

	guestName := strings.TrimSpace(author.GuestName)
	if author.UserID == nil && guestName == "" {
		return nil, apperr.InvalidArgument("Guest username is required for non-authenticated users")
	}

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: post.ID, Content: content}
	if author.UserID != nil {
		comment.UserID = author.UserID
	} else {
		comment.GuestUsername = guestName
	}

	if err := s.posts.AddComment(ctx, comment); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "add comment", err)
	}
	return s.GetPost(ctx, postID)
}
