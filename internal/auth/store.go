package auth

import (
	"context"

	"github.com/JairHAM/pos-api/internal/apperr"
)

var (
	ErrMissingFields      = apperr.Validation("missing_fields", "email, username, password and fullName are required")
	ErrMissingCredentials = apperr.Validation("missing_credentials", "username and password are required")
	ErrInvalidRole        = apperr.Validation("invalid_role", "role must be ADMIN, MANAGER, CASHIER or WAITER")
	ErrUserExists         = apperr.Validation("user_exists", "email or username already registered")
	ErrUserNotFound       = apperr.NotFound("user_not_found", "user not found")
	ErrInvalidCredentials = apperr.Unauthorized("invalid_credentials", "invalid credentials")
	ErrUserInactive       = apperr.Unauthorized("user_inactive", "user is inactive")
	ErrTokenRequired      = apperr.Unauthorized("token_required", "authentication token required")
	ErrInvalidToken       = apperr.Unauthorized("invalid_token", "invalid or expired token")
	ErrForbidden          = apperr.Forbidden("forbidden", "insufficient permissions")
)

// Store persists users. Lookups of unknown users return ErrUserNotFound.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
}
