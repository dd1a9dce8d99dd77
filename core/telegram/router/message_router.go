package router

import (
	"context"
	"strings"
	"time"

	tg "github.com/volunteerhub/eventbot/core/telegram"
	tghelpers "github.com/volunteerhub/eventbot/core/telegram/helpers"
	"github.com/volunteerhub/eventbot/core/telegram/middleware"
	"github.com/volunteerhub/eventbot/core/wizard"

	tele "gopkg.in/telebot.v4"
)

// Wizard is the minimal interface required from the wizard engine.
type Wizard interface {
	Active(ctx context.Context, userID int64) (bool, error)
	Dispatch(ctx context.Context, ev wizard.Event) error
}

// TextOptions controls fallback behaviour for text/photo updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc

	// CancelCommand, when non-empty, is translated into a cancel action for
	// an active wizard session so typing it aborts the flow mid-step.
	CancelCommand string
	// CancelToken is the action token the engine treats as cancel.
	// Defaults to "cancel".
	CancelToken string
}

// WizardEvent builds a wizard event from the current update.
func WizardEvent(c tele.Context, kind wizard.EventKind, payload string) wizard.Event {
	ev := wizard.Event{
		UserID:  c.Sender().ID,
		Kind:    kind,
		Payload: payload,
	}
	if sender := c.Sender(); sender != nil {
		ev.From = wizard.From{Name: sender.FirstName, Username: sender.Username}
	}
	return ev
}

// commandToken extracts the command word from a message, dropping arguments
// and a trailing @botname mention.
func commandToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return text
	}
	token := fields[0]
	if at := strings.IndexByte(token, '@'); at > 0 {
		token = token[:at]
	}
	return token
}

// TextRoutes builds handlers that route text and photo updates. An active
// wizard session takes priority; otherwise text is matched against registered
// commands and finally the fallback.
func TextRoutes(wiz Wizard, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()
		ctx := tghelpers.BuildContext(c)

		if wiz != nil {
			active, err := wiz.Active(ctx, c.Sender().ID)
			if err != nil {
				return handleWithSummary(c, "wizard", start, "", "", func() error {
					return err
				})
			}
			if active {
				if opts.CancelCommand != "" && strings.EqualFold(strings.TrimSpace(text), opts.CancelCommand) {
					token := opts.CancelToken
					if token == "" {
						token = "cancel"
					}
					return handleWithSummary(c, "wizard_cancel", start, "", "", func() error {
						return wiz.Dispatch(ctx, WizardEvent(c, wizard.KindAction, token))
					})
				}
				return handleWithSummary(c, "wizard", start, "", "", func() error {
					return wiz.Dispatch(ctx, WizardEvent(c, wizard.KindText, text))
				})
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(commandToken(text)); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		ctx := tghelpers.BuildContext(c)

		if wiz != nil {
			active, err := wiz.Active(ctx, c.Sender().ID)
			if err != nil {
				return handleWithSummary(c, "wizard_photo", start, "", "", func() error {
					return err
				})
			}
			if active {
				fileID := ""
				if msg := c.Message(); msg != nil && msg.Photo != nil {
					fileID = msg.Photo.FileID
				}
				return handleWithSummary(c, "wizard_photo", start, "", "", func() error {
					return wiz.Dispatch(ctx, WizardEvent(c, wizard.KindPhoto, fileID))
				})
			}
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
