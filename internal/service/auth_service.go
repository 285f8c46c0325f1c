package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"batball/internal/apperr"
	"batball/internal/auth"
	"batball/internal/models"
	"batball/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
}

type authService struct {
	users  repository.UserRepository
	jwt    *auth.JWTService
	logger *zap.Logger
	cost   int
}

func NewAuthService(users repository.UserRepository, jwt *auth.JWTService, logger *zap.Logger) AuthService {
	return &authService{users: users, jwt: jwt, logger: logger.Named("auth"), cost: bcrypt.DefaultCost}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if len(req.Username) < 3 || len(req.Username) > 50 {
		return nil, apperr.InvalidArgument("username must be 3-50 characters")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperr.InvalidArgument("invalid email address")
	}
	if len(req.Password) < 6 {
		return nil, apperr.InvalidArgument("password must be at least 6 characters")
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check user", err)
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	user := &models.User{Username: req.Username, Email: req.Email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.KindConflict, "User already exists")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "create user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.respond(user)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperr.InvalidArgument("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return s.respond(user)
}

func (s *authService) respond(user *models.User) (*AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID.String(), user.Username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate token", err)
	}
	return &AuthResponse{User: user.Public(), Token: token}, nil
}
