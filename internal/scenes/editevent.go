package scenes

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/volunteerhub/eventbot/core/telegram/helpers"
	"github.com/volunteerhub/eventbot/core/wizard"
	"github.com/volunteerhub/eventbot/internal/service"
)

// Step IDs of the event editing scene.
const (
	eeStepPick        wizard.StepID = "pick"
	eeStepTitle       wizard.StepID = "title"
	eeStepDateTime    wizard.StepID = "datetime"
	eeStepLocation    wizard.StepID = "location"
	eeStepCapacity    wizard.StepID = "capacity"
	eeStepDescription wizard.StepID = "description"
	eeStepConfirm     wizard.StepID = "confirm"
)

// Bag keys of the event editing scene.
const (
	eeKeyEventIDs    = "ee_event_ids"
	eeKeyEventID     = "ee_event_id"
	eeKeyTitle       = "ee_title"
	eeKeyDateUnix    = "ee_date_unix"
	eeKeyLocation    = "ee_location"
	eeKeyCapacity    = "ee_capacity"
	eeKeyDescription = "ee_description"
)

func registerEditEvent(reg *wizard.Registry, d Deps) error {
	return reg.Register(wizard.Scene{
		ID: SceneEditEvent,
		Steps: []wizard.Step{
			{ID: eeStepPick, Handle: eePick(d)},
			{ID: eeStepTitle, Handle: eeTitle(d)},
			{ID: eeStepDateTime, Handle: eeDateTime(d)},
			{ID: eeStepLocation, Handle: eeLocation(d)},
			{ID: eeStepCapacity, Handle: eeCapacity(d)},
			{ID: eeStepDescription, Handle: eeDescription(d)},
			{ID: eeStepConfirm, Handle: eeConfirm(d)},
		},
	})
}

func eePick(d Deps) wizard.StepHandler {
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
			ids := make([]any, 0, len(events))
			for _, e := range events {
				ids = append(ids, e.ID)
			}
			f.Set(eeKeyEventIDs, ids)
			_ = d.Msg.SendText(ctx, ev.UserID,
				"Which event do you want to edit? Reply with its number.\n\n"+formatEventList(events))
			return wizard.Stay(), nil
		}

		ids, _ := f.Value(eeKeyEventIDs)
		list, _ := ids.([]any)
		n, err := strconv.Atoi(strings.TrimSpace(ev.Payload))
		if err != nil || n < 1 || n > len(list) {
			_ = d.Msg.SendText(ctx, ev.UserID, "Reply with one of the listed numbers.")
			return wizard.Stay(), nil
		}
		id, ok := anyToInt64(list[n-1])
		if !ok {
			return wizard.Leave(), nil
		}
		f.Set(eeKeyEventID, id)
		f.Delete(eeKeyEventIDs)
		_ = d.Msg.SendText(ctx, ev.UserID, "New title, or /skip to keep the current one.")
		return wizard.Continue(), nil
	}
}

func eeTitle(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if !isSkip(ev.Payload) {
			title := strings.TrimSpace(ev.Payload)
			if title == "" {
				_ = d.Msg.SendText(ctx, ev.UserID, "The title can't be empty. Send a new one or /skip.")
				return wizard.Stay(), nil
			}
			f.Set(eeKeyTitle, title)
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "New date and time (e.g. 2026-09-14 18:30), or /skip.")
		return wizard.Continue(), nil
	}
}

func eeDateTime(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if !isSkip(ev.Payload) {
			dt, ok := helpers.ParseFlexibleDate(ev.Payload)
			if !ok {
				_ = d.Msg.SendText(ctx, ev.UserID, "I couldn't read that. Try 2026-09-14 18:30, or /skip.")
				return wizard.Stay(), nil
			}
			f.Set(eeKeyDateUnix, dt.Unix())
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "New location, or /skip.")
		return wizard.Continue(), nil
	}
}

func eeLocation(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if !isSkip(ev.Payload) {
			f.Set(eeKeyLocation, strings.TrimSpace(ev.Payload))
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "New capacity, or /skip.")
		return wizard.Continue(), nil
	}
}

func eeCapacity(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if !isSkip(ev.Payload) {
			n, err := strconv.Atoi(strings.TrimSpace(ev.Payload))
			if err != nil || n <= 0 {
				_ = d.Msg.SendText(ctx, ev.UserID, "Capacity must be a positive number, or /skip.")
				return wizard.Stay(), nil
			}
			f.Set(eeKeyCapacity, int64(n))
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "New description, or /skip.")
		return wizard.Continue(), nil
	}
}

func eeDescription(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if !isSkip(ev.Payload) {
			f.Set(eeKeyDescription, strings.TrimSpace(ev.Payload))
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "Save these changes?",
			wizard.Button{Label: "Save", Token: tokenConfirm},
			wizard.Button{Label: "Cancel", Token: "cancel"},
		)
		return wizard.Continue(), nil
	}
}

func eeConfirm(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind != wizard.KindAction || ev.Payload != tokenConfirm {
			_ = d.Msg.SendText(ctx, ev.UserID, "Tap Save to apply the changes, or /cancel to discard them.")
			return wizard.Stay(), nil
		}
		eventID, ok := f.Int64Value(eeKeyEventID)
		if !ok {
			return wizard.Leave(), nil
		}
		upd := service.EventUpdate{}
		if v, ok := f.StringValue(eeKeyTitle); ok {
			upd.Title = &v
		}
		if v, ok := f.Int64Value(eeKeyDateUnix); ok {
			dt := time.Unix(v, 0).In(time.Local)
			upd.DateTime = &dt
		}
		if v, ok := f.StringValue(eeKeyLocation); ok {
			upd.Location = &v
		}
		if v, ok := f.Int64Value(eeKeyCapacity); ok {
			n := int(v)
			upd.Capacity = &n
		}
		if v, ok := f.StringValue(eeKeyDescription); ok {
			upd.Description = &v
		}
		updated, err := d.Events.Update(ctx, eventID, upd)
		if err != nil {
			return wizard.Stay(), err
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "Event updated:\n\n"+formatEvent(updated))
		return wizard.Leave(), nil
	}
}

func anyToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
