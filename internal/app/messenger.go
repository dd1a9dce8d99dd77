package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/volunteerhub/eventbot/core/telegram/keyboard"
	"github.com/volunteerhub/eventbot/core/telegram/router"
	tgsender "github.com/volunteerhub/eventbot/core/telegram/sender"
	"github.com/volunteerhub/eventbot/core/wizard"
)

// Messenger delivers wizard prompts through the bot. It binds to the bot at
// startup and remembers the last message sent per chat so prompts with
// buttons can be edited in place.
type Messenger struct {
	bot  atomic.Pointer[tele.Bot]
	disp *tgsender.Dispatcher

	mu   sync.Mutex
	last map[int64]*tele.Message
}

// NewMessenger builds a messenger. The dispatcher is optional; without it
// sends run inline instead of through the retrying queue.
func NewMessenger(disp *tgsender.Dispatcher) *Messenger {
	return &Messenger{disp: disp, last: make(map[int64]*tele.Message)}
}

// Bind attaches the running bot. Called once from the start hook.
func (m *Messenger) Bind(bot *tele.Bot) {
	m.bot.Store(bot)
}

func (m *Messenger) markup(buttons []wizard.Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	btns := make([]keyboard.InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, keyboard.InlineBtn{
			Text:   b.Label,
			Unique: router.WizardCallbackKey,
			Data:   b.Token,
		})
	}
	return keyboard.InlineButtons(btns)
}

func (m *Messenger) enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if m.disp == nil {
		return run()
	}
	if err := m.disp.Enqueue(ctx, action, endpoint, run); err != nil {
		return run()
	}
	return nil
}

// SendText sends a message to the user, attaching the buttons as an inline
// keyboard published under the wizard callback key.
func (m *Messenger) SendText(ctx context.Context, userID int64, text string, buttons ...wizard.Button) error {
	bot := m.bot.Load()
	if bot == nil {
		return fmt.Errorf("messenger: bot not bound")
	}
	markup := m.markup(buttons)
	return m.enqueue(ctx, "wizard.send", "sendMessage", func() error {
		var (
			msg *tele.Message
			err error
		)
		to := &tele.User{ID: userID}
		if markup != nil {
			msg, err = bot.Send(to, text, markup)
		} else {
			msg, err = bot.Send(to, text)
		}
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.last[userID] = msg
		m.mu.Unlock()
		return nil
	})
}

// EditLast rewrites the last message sent to the user, falling back to a
// fresh send when there is nothing to edit.
func (m *Messenger) EditLast(ctx context.Context, userID int64, text string, buttons ...wizard.Button) error {
	bot := m.bot.Load()
	if bot == nil {
		return fmt.Errorf("messenger: bot not bound")
	}
	m.mu.Lock()
	prev := m.last[userID]
	m.mu.Unlock()
	if prev == nil {
		return m.SendText(ctx, userID, text, buttons...)
	}
	markup := m.markup(buttons)
	return m.enqueue(ctx, "wizard.edit", "editMessageText", func() error {
		var (
			msg *tele.Message
			err error
		)
		if markup != nil {
			msg, err = bot.Edit(prev, text, markup)
		} else {
			msg, err = bot.Edit(prev, text)
		}
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.last[userID] = msg
		m.mu.Unlock()
		return nil
	})
}
