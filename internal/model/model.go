// Package model declares the persistent rows shared by services and scenes.
// Columns that may be absent after joins or partial profiles are explicit
// nullable types rather than loosely-shaped maps.
package model

import (
	"database/sql"
	"time"
)

// User is a Telegram account known to the bot.
type User struct {
	TelegramUserID   int64          `db:"telegram_user_id"`
	TelegramUsername sql.NullString `db:"telegram_username"`
	Name             sql.NullString `db:"name"`
	Email            sql.NullString `db:"email"`
	Phone            sql.NullString `db:"phone"`
	IsCaregiver      bool           `db:"is_caregiver"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// HasPhone reports whether the profile is complete enough to sign up.
func (u User) HasPhone() bool {
	return u.Phone.Valid && u.Phone.String != ""
}

// DisplayName returns the profile name or an empty string.
func (u User) DisplayName() string {
	if u.Name.Valid {
		return u.Name.String
	}
	return ""
}

// Event is an organiser-created event open for registration.
type Event struct {
	ID                  int64          `db:"id"`
	OrganiserTelegramID int64          `db:"organiser_telegram_id"`
	Title               string         `db:"title"`
	DateTime            time.Time      `db:"date_time"`
	Location            string         `db:"location"`
	Capacity            int            `db:"capacity"`
	Description         sql.NullString `db:"description"`
	ImageFileID         sql.NullString `db:"image_file_id"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`

	// OrganiserName is populated by queries joining the users table; it is
	// absent when the join did not run or matched nothing.
	OrganiserName sql.NullString `db:"organiser_name"`
}

// Registration records one participant signed up for an event.
type Registration struct {
	ID              int64          `db:"id"`
	EventID         int64          `db:"event_id"`
	UserTelegramID  int64          `db:"user_telegram_id"`
	ParticipantName string         `db:"participant_name"`
	ParticipantAge  sql.NullInt32  `db:"participant_age"`
	Notes           sql.NullString `db:"notes"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`

	// Joined display fields, absent unless the listing query filled them.
	UserName   sql.NullString `db:"user_name"`
	EventTitle sql.NullString `db:"event_title"`
}
