package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/volunteerhub/eventbot/core/logger"
	"github.com/volunteerhub/eventbot/core/telegram/format"
	"github.com/volunteerhub/eventbot/internal/model"
)

// Events manages the events table.
type Events struct {
	db *sqlx.DB
}

// NewEvents constructs the event service.
func NewEvents(db *sqlx.DB) *Events {
	return &Events{db: db}
}

// NewEvent carries the fields collected by the creation wizard.
type NewEvent struct {
	OrganiserTelegramID int64
	Title               string
	DateTime            time.Time
	Location            string
	Capacity            int
	Description         string
	ImageFileID         string
}

// Create inserts an event and returns the stored row.
func (s *Events) Create(ctx context.Context, ne NewEvent) (model.Event, error) {
	var ev model.Event
	err := s.db.GetContext(ctx, &ev, `
		INSERT INTO events (organiser_telegram_id, title, date_time, location,
		                    capacity, description, image_file_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING *`,
		ne.OrganiserTelegramID, ne.Title, ne.DateTime, ne.Location,
		ne.Capacity, ne.Description, ne.ImageFileID,
	)
	if err != nil {
		logger.SVCEvents.ErrorContext(ctx, "create failed",
			slog.String("event", "events.create"),
			slog.Int64("user_id", ne.OrganiserTelegramID),
			slog.String("err", err.Error()),
		)
		return model.Event{}, fmt.Errorf("events create: %w", err)
	}
	logger.SVCEvents.InfoContext(ctx, "event created",
		slog.String("event", "events.create"),
		slog.Int64("event_id", ev.ID),
		slog.Int64("user_id", ne.OrganiserTelegramID),
	)
	return ev, nil
}

// GetByID loads one event with the organiser name joined in.
func (s *Events) GetByID(ctx context.Context, id int64) (model.Event, error) {
	var ev model.Event
	err := s.db.GetContext(ctx, &ev, `
		SELECT e.*, u.name AS organiser_name
		FROM events e
		LEFT JOIN users u ON u.telegram_user_id = e.organiser_telegram_id
		WHERE e.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("events get: %w", err)
	}
	return ev, nil
}

// ListByOrganiser returns the organiser's events, newest first.
func (s *Events) ListByOrganiser(ctx context.Context, organiserID int64) ([]model.Event, error) {
	var events []model.Event
	err := s.db.SelectContext(ctx, &events, `
		SELECT * FROM events
		WHERE organiser_telegram_id = $1
		ORDER BY date_time DESC`, organiserID)
	if err != nil {
		return nil, fmt.Errorf("events list: %w", err)
	}
	return events, nil
}

// CountAll returns the total number of events.
func (s *Events) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM events`); err != nil {
		return 0, fmt.Errorf("events count: %w", err)
	}
	return n, nil
}

// EventUpdate lists the optional fields an edit may change. Nil fields keep
// the stored value.
type EventUpdate struct {
	Title       *string
	DateTime    *time.Time
	Location    *string
	Capacity    *int
	Description *string
	ImageFileID *string
}

// Update applies the provided fields to an event row.
func (s *Events) Update(ctx context.Context, id int64, upd EventUpdate) (model.Event, error) {
	var ev model.Event
	err := s.db.GetContext(ctx, &ev, `
		UPDATE events
		SET title = COALESCE($2, title),
		    date_time = COALESCE($3, date_time),
		    location = COALESCE($4, location),
		    capacity = COALESCE($5, capacity),
		    description = COALESCE($6, description),
		    image_file_id = COALESCE($7, image_file_id),
		    updated_at = now()
		WHERE id = $1
		RETURNING *`,
		id, upd.Title, upd.DateTime, upd.Location, upd.Capacity,
		upd.Description, upd.ImageFileID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		logger.SVCEvents.ErrorContext(ctx, "update failed",
			slog.String("event", "events.update"),
			slog.Int64("event_id", id),
			slog.String("err", err.Error()),
		)
		return model.Event{}, fmt.Errorf("events update: %w", err)
	}
	logger.SVCEvents.InfoContext(ctx, "event updated",
		slog.String("event", "events.update"),
		slog.Int64("event_id", id),
		slog.String("title", format.DerefString(upd.Title, ev.Title)),
		slog.Int("capacity", format.DerefInt(upd.Capacity, ev.Capacity)),
	)
	return ev, nil
}
