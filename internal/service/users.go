// Package service implements the persistence collaborators the wizard scenes
// call from their step handlers. Each service owns one table and logs through
// its component logger.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/volunteerhub/eventbot/core/logger"
	"github.com/volunteerhub/eventbot/internal/model"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("service: not found")

// Users manages the users table.
type Users struct {
	db *sqlx.DB
}

// NewUsers constructs the user service.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// UserProfile carries the fields known at first contact.
type UserProfile struct {
	Name     string
	Username string
}

// GetOrCreate upserts the user row keyed by Telegram id and returns it.
func (s *Users) GetOrCreate(ctx context.Context, telegramID int64, profile UserProfile) (model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, `
		INSERT INTO users (telegram_user_id, telegram_username, name)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (telegram_user_id) DO UPDATE
		SET telegram_username = COALESCE(NULLIF(EXCLUDED.telegram_username, ''), users.telegram_username),
		    updated_at = now()
		RETURNING *`,
		telegramID, profile.Username, profile.Name,
	)
	if err != nil {
		logger.SVCUsers.ErrorContext(ctx, "get_or_create failed",
			slog.String("event", "users.get_or_create"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return model.User{}, fmt.Errorf("users get_or_create: %w", err)
	}
	return user, nil
}

// GetByTelegramID loads one user.
func (s *Users) GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE telegram_user_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("users get: %w", err)
	}
	return user, nil
}

// UserUpdate lists the optional profile fields an update may change.
type UserUpdate struct {
	Name  *string
	Phone *string
	Email *string
}

// Update applies the provided fields to the user row.
func (s *Users) Update(ctx context.Context, telegramID int64, upd UserUpdate) (model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, `
		UPDATE users
		SET name = COALESCE($2, name),
		    phone = COALESCE($3, phone),
		    email = COALESCE($4, email),
		    updated_at = now()
		WHERE telegram_user_id = $1
		RETURNING *`,
		telegramID, upd.Name, upd.Phone, upd.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		logger.SVCUsers.ErrorContext(ctx, "update failed",
			slog.String("event", "users.update"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return model.User{}, fmt.Errorf("users update: %w", err)
	}
	logger.SVCUsers.DebugContext(ctx, "user updated",
		slog.String("event", "users.update"),
		slog.Int64("user_id", telegramID),
	)
	return user, nil
}
