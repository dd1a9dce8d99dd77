package scenes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/volunteerhub/eventbot/core/wizard"
)

// Step IDs of the attendance summary scene.
const (
	esStepPick    wizard.StepID = "pick"
	esStepSummary wizard.StepID = "summary"
)

// Button tokens carry the event ID, e.g. "sum_sel_42".
const summarySelectPrefix = "sum_sel_"

func registerEventSummary(reg *wizard.Registry, d Deps) error {
	return reg.Register(wizard.Scene{
		ID: SceneEventSummary,
		Steps: []wizard.Step{
			{ID: esStepPick, Handle: esPick(d)},
			{ID: esStepSummary, Handle: esSummary(d)},
		},
	})
}

func esPick(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind == wizard.KindEnter {
			events, err := d.Events.ListByOrganiser(ctx, ev.UserID)
			if err != nil {
				return wizard.Stay(), err
			}
			if len(events) == 0 {
				_ = d.Msg.SendText(ctx, ev.UserID, "You haven't created any events yet. Use /newevent first.")
				return wizard.Leave(), nil
			}
			buttons := make([]wizard.Button, 0, len(events))
			for _, e := range events {
				buttons = append(buttons, wizard.Button{
					Label: e.Title,
					Token: summarySelectPrefix + strconv.FormatInt(e.ID, 10),
				})
			}
			_ = d.Msg.SendText(ctx, ev.UserID, "Which event do you want a summary for?", buttons...)
			return wizard.Continue(), nil
		}
		// A text message before entry should not happen; re-enter cleanly.
		return wizard.Leave(), nil
	}
}

func esSummary(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind != wizard.KindAction || !strings.HasPrefix(ev.Payload, summarySelectPrefix) {
			_ = d.Msg.SendText(ctx, ev.UserID, "Pick an event from the buttons above, or /cancel.")
			return wizard.Stay(), nil
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(ev.Payload, summarySelectPrefix), 10, 64)
		if err != nil {
			return wizard.Stay(), nil
		}
		event, err := d.Events.GetByID(ctx, id)
		if err != nil {
			return wizard.Stay(), err
		}
		regs, err := d.Registrations.ListForEvent(ctx, id)
		if err != nil {
			return wizard.Stay(), err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n\nSigned up: %d of %d", formatEvent(event), len(regs), event.Capacity)
		for _, r := range regs {
			b.WriteString("\n- " + r.ParticipantName)
			if r.ParticipantAge.Valid {
				fmt.Fprintf(&b, ", age %d", r.ParticipantAge.Int32)
			}
		}
		_ = d.Msg.SendText(ctx, ev.UserID, b.String())
		return wizard.Leave(), nil
	}
}
