package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const userColumns = `id, email, username, password_hash, full_name, role, is_active, created_at`

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &role, &u.IsActive, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, email, username, password_hash, full_name, role, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.FullName, string(u.Role), u.IsActive,
	).Scan(&u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) GetUserByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrUserNotFound
	}
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *Repo) getUser(ctx context.Context, sql string, arg string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
