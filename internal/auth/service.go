package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

type Service struct {
	store  Store
	tokens *Tokens
	logger *zap.Logger
}

func NewService(store Store, tokens *Tokens, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, tokens: tokens, logger: logger}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email, in.Username, in.FullName = strings.TrimSpace(in.Email), strings.TrimSpace(in.Username), strings.TrimSpace(in.FullName)
	if in.Email == "" || in.Username == "" || in.Password == "" || in.FullName == "" {
		return User{}, ErrMissingFields
	}
	role, ok := ParseRole(in.Role)
	if !ok {
		return User{}, ErrInvalidRole.WithDetails("role", in.Role)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	u := User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         role,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return u, nil
}

// Login checks credentials and returns a signed token. Unknown users, bad
// passwords and inactive accounts are all 401.
func (s *Service) Login(ctx context.Context, username, password string) (string, User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", User{}, ErrMissingCredentials
	}
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return "", User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", User{}, err
	}
	if !u.IsActive {
		return "", User{}, ErrUserInactive
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.logger.Warn("login failed", zap.String("username", username))
		return "", User{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", User{}, err
	}
	return token, u, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// EnsureUser creates the user unless the username is already taken. It
// reports whether a user was created.
func (s *Service) EnsureUser(ctx context.Context, in RegisterInput) (bool, error) {
	_, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(in.Username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}
	if _, err := s.Register(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}
