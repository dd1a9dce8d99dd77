package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/volunteerhub/eventbot/core/logger"
	"github.com/volunteerhub/eventbot/internal/model"
)

// Registrations manages event sign-ups.
type Registrations struct {
	db *sqlx.DB
}

// NewRegistrations constructs the registration service.
func NewRegistrations(db *sqlx.DB) *Registrations {
	return &Registrations{db: db}
}

// NewRegistration carries the fields collected by the signup wizard.
type NewRegistration struct {
	EventID         int64
	UserTelegramID  int64
	ParticipantName string
	ParticipantAge  *int
	Notes           string
	Status          string
}

// Create inserts a registration and returns the stored row.
func (s *Registrations) Create(ctx context.Context, nr NewRegistration) (model.Registration, error) {
	if nr.Status == "" {
		nr.Status = "confirmed"
	}
	var reg model.Registration
	err := s.db.GetContext(ctx, &reg, `
		INSERT INTO registrations (event_id, user_telegram_id, participant_name,
		                           participant_age, notes, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING *`,
		nr.EventID, nr.UserTelegramID, nr.ParticipantName,
		nr.ParticipantAge, nr.Notes, nr.Status,
	)
	if err != nil {
		logger.SVCRegistrations.ErrorContext(ctx, "create failed",
			slog.String("event", "registrations.create"),
			slog.Int64("event_id", nr.EventID),
			slog.Int64("user_id", nr.UserTelegramID),
			slog.String("err", err.Error()),
		)
		return model.Registration{}, fmt.Errorf("registrations create: %w", err)
	}
	logger.SVCRegistrations.InfoContext(ctx, "registration created",
		slog.String("event", "registrations.create"),
		slog.Int64("registration_id", reg.ID),
		slog.Int64("event_id", nr.EventID),
		slog.Int64("user_id", nr.UserTelegramID),
	)
	return reg, nil
}

// ListForEvent returns an event's registrations with user and event context.
func (s *Registrations) ListForEvent(ctx context.Context, eventID int64) ([]model.Registration, error) {
	var regs []model.Registration
	err := s.db.SelectContext(ctx, &regs, `
		SELECT r.*, u.name AS user_name, e.title AS event_title
		FROM registrations r
		LEFT JOIN users u ON u.telegram_user_id = r.user_telegram_id
		LEFT JOIN events e ON e.id = r.event_id
		WHERE r.event_id = $1
		ORDER BY r.created_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("registrations list: %w", err)
	}
	return regs, nil
}

// CountAll returns the total number of registrations.
func (s *Registrations) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM registrations`); err != nil {
		return 0, fmt.Errorf("registrations count: %w", err)
	}
	return n, nil
}
