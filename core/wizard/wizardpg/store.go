// Package wizardpg provides a Postgres-backed wizard session store. Sessions
// live in the wizard_sessions table with the state bag serialized as JSONB,
// so a user's flow survives process restarts and resumes after arbitrarily
// long delays.
package wizardpg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/volunteerhub/eventbot/core/logger"
	"github.com/volunteerhub/eventbot/core/wizard"
)

// Store persists wizard sessions in Postgres.
type Store struct {
	db *sqlx.DB
}

// New constructs a Store over an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type sessionRow struct {
	UserID int64           `db:"user_id"`
	Scene  string          `db:"scene"`
	Step   int             `db:"step"`
	Bag    json.RawMessage `db:"bag"`
}

// Get loads the session for a user, or (nil, nil) when none exists.
func (s *Store) Get(ctx context.Context, userID int64) (*wizard.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT user_id, scene, step, bag FROM wizard_sessions WHERE user_id = $1`,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", wizard.ErrStoreUnavailable, err)
	}

	bag := make(map[string]any)
	if len(row.Bag) > 0 {
		if err := json.Unmarshal(row.Bag, &bag); err != nil {
			return nil, fmt.Errorf("%w: decode bag: %v", wizard.ErrStoreUnavailable, err)
		}
	}
	return &wizard.Session{
		UserID: row.UserID,
		Scene:  wizard.SceneID(row.Scene),
		Step:   row.Step,
		Bag:    bag,
	}, nil
}

// Put upserts the session. Last writer wins.
func (s *Store) Put(ctx context.Context, sess *wizard.Session) error {
	bag, err := json.Marshal(sess.Bag)
	if err != nil {
		return fmt.Errorf("%w: encode bag: %v", wizard.ErrStoreUnavailable, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wizard_sessions (user_id, scene, step, bag, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET scene = EXCLUDED.scene, step = EXCLUDED.step,
		    bag = EXCLUDED.bag, updated_at = now()`,
		sess.UserID, string(sess.Scene), sess.Step, bag,
	)
	if err != nil {
		return fmt.Errorf("%w: put session: %v", wizard.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete removes the session for a user.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM wizard_sessions WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("%w: delete session: %v", wizard.ErrStoreUnavailable, err)
	}
	return nil
}

// Sweep deletes sessions idle longer than ttl and returns how many were
// removed. ttl <= 0 disables expiry.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wizard_sessions WHERE updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int64(ttl.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep sessions: %v", wizard.ErrStoreUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RunSweeper sweeps stale sessions on the given interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, ttl)
			if err != nil {
				logger.Warn(ctx, "wizard.store", "sweep.failed",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "wizard.store", "sweep.expired",
					slog.String("status", "ok"),
					slog.Int64("count", n),
				)
			}
		}
	}
}
