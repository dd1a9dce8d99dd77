// Package ui provides the user-facing fallback replies a bot sends when an
// update matches no command, active flow, or known callback.
package ui

import (
	tghelpers "github.com/volunteerhub/eventbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, flows, or callbacks.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownPhoto() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// StaticFallbacks answers unmatched updates with fixed texts.
type StaticFallbacks struct {
	Text     string
	Photo    string
	Callback string
}

func reply(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if text == "" {
			return nil
		}
		return tghelpers.SendText(c, text)
	}
}

// UnknownText answers text that matched nothing.
func (s StaticFallbacks) UnknownText() tele.HandlerFunc { return reply(s.Text) }

// UnknownPhoto answers a photo sent outside any flow.
func (s StaticFallbacks) UnknownPhoto() tele.HandlerFunc { return reply(s.Photo) }

// UnknownCallback answers a button press no handler claims.
func (s StaticFallbacks) UnknownCallback() tele.HandlerFunc { return reply(s.Callback) }
