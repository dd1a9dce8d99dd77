package middleware

import (
	"context"

	"github.com/volunteerhub/eventbot/core/logger"
	tghelpers "github.com/volunteerhub/eventbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// FlowChecker is the minimal interface required from the wizard engine.
type FlowChecker interface {
	Active(ctx context.Context, userID int64) (bool, error)
}

// BlockDuringFlow intercepts a command while the user is mid-wizard so a new
// flow cannot trample the active one. onBusy, if set, tells the user to
// finish or cancel first.
func BlockDuringFlow(w FlowChecker, onBusy tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID
			ctx := tghelpers.BuildContext(c)
			active, err := w.Active(ctx, userID)
			if err != nil {
				logger.TG.LogAttrs(ctx, slog.LevelWarn, "flow.check_failed",
					slog.Int64("user_id", userID),
					slog.String("err", err.Error()),
				)
				// Fail open: blocking every command on a store hiccup is worse
				// than occasionally replacing a session.
				return next(c)
			}
			if !active {
				return next(c)
			}
			logger.TG.LogAttrs(ctx, slog.LevelDebug, "flow.busy",
				slog.Int64("user_id", userID),
				slog.String("rid", logger.RIDFrom(ctx)),
			)
			if onBusy != nil {
				return onBusy(c)
			}
			return nil
		}
	}
}
