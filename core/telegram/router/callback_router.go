package router

import (
	"time"

	tg "github.com/volunteerhub/eventbot/core/telegram"
	tghelpers "github.com/volunteerhub/eventbot/core/telegram/helpers"
	"github.com/volunteerhub/eventbot/core/telegram/middleware"
	"github.com/volunteerhub/eventbot/core/wizard"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// WizardCallbackKey is the callback unique under which all wizard inline
// buttons are published. The payload after '|' is the action token delivered
// to the active step.
const WizardCallbackKey = "wz"

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks. Wizard buttons are
// dispatched to the engine as action events; everything else goes through the
// registry.
func CallbackRoute(wiz Wizard, reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, payload := parseCallback(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		if wiz != nil && key == WizardCallbackKey {
			ctx := tghelpers.BuildContext(c)
			return handleWithSummary(c, "wizard_action", start, "", "", func() error {
				return wiz.Dispatch(ctx, WizardEvent(c, wizard.KindAction, payload))
			}, extras...)
		}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, name, start, "", "", func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, name, start, "", "", func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
