package router

import (
	"github.com/volunteerhub/eventbot/core/logger"
	tg "github.com/volunteerhub/eventbot/core/telegram"
	"github.com/volunteerhub/eventbot/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc

	// Gate, when set, wraps every command except those listed in GateExempt.
	// Used to block flow-entry commands while a wizard session is active.
	Gate       tele.MiddlewareFunc
	GateExempt []string
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}
	exempt := make(map[string]struct{}, len(opts.GateExempt))
	for _, cmd := range opts.GateExempt {
		exempt[cmd] = struct{}{}
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := def.Handler
		if opts.Gate != nil {
			if _, ok := exempt[cmd]; !ok {
				h = opts.Gate(h)
			}
		}
		h = middleware.RecoverMiddleware(h)
		h = middleware.LoggerMiddleware(h)
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(adminOpts)(h)
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
