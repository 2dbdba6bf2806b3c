package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quiz-room-service/internal/auth"
	"quiz-room-service/internal/domain"
)

// AccountService handles registration and login, issuing session tokens.
type AccountService struct {
	users  UserStore
	tokens *auth.Service
}

func NewAccountService(users UserStore, tokens *auth.Service) *AccountService {
	return &AccountService{users: users, tokens: tokens}
}

// Register creates an account and returns a session token for it.
func (s *AccountService) Register(ctx context.Context, username, password string, userImage int) (string, error) {
	if _, err := s.users.UserByName(ctx, username); err == nil {
		return "", domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		UserImage:    userImage,
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return s.tokens.Issue(user)
}

// Login checks credentials and returns a session token.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.UserByName(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", domain.ErrInvalidCredentials
	}
	return s.tokens.Issue(user)
}
