package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/volunteerhub/eventbot/core/buildinfo"
	coretelegram "github.com/volunteerhub/eventbot/core/telegram"
	"github.com/volunteerhub/eventbot/core/telegram/commands"
	"github.com/volunteerhub/eventbot/core/telegram/format"
	tghelpers "github.com/volunteerhub/eventbot/core/telegram/helpers"
	"github.com/volunteerhub/eventbot/core/telegram/middleware"
	"github.com/volunteerhub/eventbot/core/telegram/router"
	"github.com/volunteerhub/eventbot/core/telegram/ui"
	"github.com/volunteerhub/eventbot/core/wizard"
	"github.com/volunteerhub/eventbot/internal/scenes"
)

// deepLinkPrefix marks a /start payload that targets an event sign-up,
// e.g. "/start ev_42".
const deepLinkPrefix = "ev_"

const helpText = `Here's what I can do:
/newevent - create an event
/editevent - edit one of your events
/eventsummary - see who signed up
/profile - update your name and phone
/cancel - abort the current conversation`

// TelegramRunOptions builds the routes, commands, and lifecycle hooks for
// the shared Telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start the bot or follow an event link",
	})
	reg.RegisterCommand("/newevent", commands.Command{
		Handler:     a.enterSceneHandler(scenes.SceneNewEvent),
		Description: "Create a new event",
	})
	reg.RegisterCommand("/editevent", commands.Command{
		Handler:     a.enterSceneHandler(scenes.SceneEditEvent),
		Description: "Edit one of your events",
	})
	reg.RegisterCommand("/eventsummary", commands.Command{
		Handler:     a.enterSceneHandler(scenes.SceneEventSummary),
		Description: "See sign-ups for your events",
	})
	reg.RegisterCommand("/profile", commands.Command{
		Handler:     a.enterSceneHandler(scenes.SceneProfile),
		Description: "Update your name and phone",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Abort the current conversation",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Bot statistics",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     func(c tele.Context) error { return tghelpers.SendText(c, helpText) },
		Description: "Show available commands",
	})

	fallbacks := ui.StaticFallbacks{
		Text:     "I didn't catch that. Try /help for what I can do.",
		Photo:    "I wasn't expecting a photo right now.",
		Callback: "That button has expired.",
	}
	reg.SetTextFallback(fallbacks.UnknownText())
	reg.SetCallbackNotFound(fallbacks.UnknownCallback())

	routes := a.commandRoutes(reg)
	routes = append(routes, router.TextRoutes(a.engine, reg, router.TextOptions{
		UnknownPhoto:  fallbacks.UnknownPhoto(),
		CancelCommand: "/cancel",
		CancelToken:   "cancel",
	})...)
	routes = append(routes, router.CallbackRoute(a.engine, reg, router.CallbackOptions{}))

	opts := coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.msg.Bind(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			return a.Close()
		},
	}
	return opts, nil
}

// commandRoutes binds the registered commands as direct routes, gating the
// flow-entry commands so an active wizard session blocks them instead of
// being trampled. /start and /cancel stay unblocked: deep links replace the
// session on purpose, and cancelling is exactly what a stuck user needs.
func (a *App) commandRoutes(reg *coretelegram.Registry) []coretelegram.Route {
	busy := func(c tele.Context) error {
		return tghelpers.SendText(c, "You're in the middle of something. Finish it or send /cancel first.")
	}
	return router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:    a.cfg.Telegram.AdminID,
		Gate:       middleware.BlockDuringFlow(a.engine, busy),
		GateExempt: []string{"/start", "/cancel", "/help"},
	})
}

func (a *App) enterSceneHandler(scene wizard.SceneID) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		return a.engine.Enter(ctx, router.WizardEvent(c, wizard.KindEnter, ""), scene, nil)
	}
}

// handleStart greets the user or, for a deep link like "/start ev_42",
// drops them straight into the sign-up flow for that event.
func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	payload := strings.TrimSpace(strings.TrimPrefix(c.Text(), "/start"))
	if strings.HasPrefix(payload, deepLinkPrefix) {
		id, err := strconv.ParseInt(strings.TrimPrefix(payload, deepLinkPrefix), 10, 64)
		if err == nil && id > 0 {
			return a.engine.Enter(ctx, router.WizardEvent(c, wizard.KindEnter, payload),
				scenes.SceneSignup, map[string]any{scenes.PayloadEventID: id})
		}
		return tghelpers.SendText(c, "That sign-up link is broken. Ask the organiser for a fresh one.")
	}

	greeting := "Hi! I help organise volunteer events."
	if user, err := tghelpers.CurrentUser(ctx, a.users, c.Sender().ID); err == nil && user.DisplayName() != "" {
		if name, escErr := format.EscapeMarkdown(user.DisplayName(), format.MarkdownV1, ""); escErr == nil {
			return tghelpers.SendMD(c, "Hi, *"+name+"*! I help organise volunteer events.\n\n"+helpText)
		}
	}
	return tghelpers.SendText(c, greeting+"\n\n"+helpText)
}

// handleCancel aborts an active flow via the engine's cancel token.
func (a *App) handleCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	active, err := a.engine.Active(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if !active {
		return a.handleCancelIdle(c)
	}
	return a.engine.Dispatch(ctx, router.WizardEvent(c, wizard.KindAction, "cancel"))
}

func (a *App) handleCancelIdle(c tele.Context) error {
	return tghelpers.SendText(c, "Nothing to cancel.")
}

// handleStats reports totals to the admin.
func (a *App) handleStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	events, err := a.events.CountAll(ctx)
	if err != nil {
		return err
	}
	regs, err := a.registrations.CountAll(ctx)
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, fmt.Sprintf(
		"eventbot %s (%s)\nevents: %d\nregistrations: %d",
		buildinfo.Version, buildinfo.Commit, events, regs))
}
