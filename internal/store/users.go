package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRow is a stored identity.
type UserRow struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new identity. The email must be unique.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*UserRow, error) {
	u := &UserRow{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash, millis(u.CreatedAt))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UserByEmail looks up an identity by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*UserRow, error) {
	return s.queryUser(ctx, "SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)))
}

// UserByID looks up an identity by id.
func (s *Store) UserByID(ctx context.Context, id string) (*UserRow, error) {
	return s.queryUser(ctx, "SELECT id, email, password_hash, created_at FROM users WHERE id = ?", id)
}

func (s *Store) queryUser(ctx context.Context, query string, arg string) (*UserRow, error) {
	var (
		u         UserRow
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

// CreateSession binds token to userID.
func (s *Store) CreateSession(ctx context.Context, token, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)
	`, token, userID, millis(s.now()))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SessionUser resolves a session token to its user id.
func (s *Store) SessionUser(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM sessions WHERE token = ?", token).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query session: %w", err)
	}
	return userID, nil
}

// DeleteSession revokes a token.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
