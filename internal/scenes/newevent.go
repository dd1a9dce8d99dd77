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

// Step IDs of the event creation scene.
const (
	neStepTitle       wizard.StepID = "title"
	neStepDate        wizard.StepID = "date"
	neStepTime        wizard.StepID = "time"
	neStepLocation    wizard.StepID = "location"
	neStepCapacity    wizard.StepID = "capacity"
	neStepDescription wizard.StepID = "description"
	neStepPhoto       wizard.StepID = "photo"
	neStepConfirm     wizard.StepID = "confirm"
)

// Bag keys of the event creation scene.
const (
	neKeyTitle       = "ne_title"
	neKeyDateUnix    = "ne_date_unix"
	neKeyTimeHHMM    = "ne_time"
	neKeyLocation    = "ne_location"
	neKeyCapacity    = "ne_capacity"
	neKeyDescription = "ne_description"
	neKeyPhotoFileID = "ne_photo_file_id"
)

const tokenConfirm = "confirm"

func registerNewEvent(reg *wizard.Registry, d Deps) error {
	return reg.Register(wizard.Scene{
		ID: SceneNewEvent,
		Steps: []wizard.Step{
			{ID: neStepTitle, Handle: neTitle(d)},
			{ID: neStepDate, Handle: neDate(d)},
			{ID: neStepTime, Handle: neTime(d)},
			{ID: neStepLocation, Handle: neLocation(d)},
			{ID: neStepCapacity, Handle: neCapacity(d)},
			{ID: neStepDescription, Handle: neDescription(d)},
			{ID: neStepPhoto, Handle: nePhoto(d)},
			{ID: neStepConfirm, Handle: neConfirm(d)},
		},
	})
}

func neTitle(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind == wizard.KindEnter {
			_ = d.Msg.SendText(ctx, ev.UserID, "Let's create an event. What is it called?")
			return wizard.Stay(), nil
		}
		title := strings.TrimSpace(ev.Payload)
		if title == "" {
			_ = d.Msg.SendText(ctx, ev.UserID, "The title can't be empty. What is the event called?")
			return wizard.Stay(), nil
		}
		f.Set(neKeyTitle, title)
		_ = d.Msg.SendText(ctx, ev.UserID, "On what date? (e.g. 2026-09-14 or 14.09.2026)")
		return wizard.Continue(), nil
	}
}

func neDate(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		date, ok := helpers.ParseFlexibleDate(ev.Payload)
		if !ok {
			_ = d.Msg.SendText(ctx, ev.UserID, "I couldn't read that date. Try something like 2026-09-14.")
			return wizard.Stay(), nil
		}
		f.Set(neKeyDateUnix, date.Unix())
		_ = d.Msg.SendText(ctx, ev.UserID, "At what time? (e.g. 18:30)")
		return wizard.Continue(), nil
	}
}

func neTime(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		clock, err := time.Parse("15:04", strings.TrimSpace(ev.Payload))
		if err != nil {
			_ = d.Msg.SendText(ctx, ev.UserID, "I couldn't read that time. Use HH:MM, e.g. 18:30.")
			return wizard.Stay(), nil
		}
		f.Set(neKeyTimeHHMM, clock.Format("15:04"))
		_ = d.Msg.SendText(ctx, ev.UserID, "Where does it take place?")
		return wizard.Continue(), nil
	}
}

func neLocation(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		loc := strings.TrimSpace(ev.Payload)
		if loc == "" {
			_ = d.Msg.SendText(ctx, ev.UserID, "The location can't be empty. Where does it take place?")
			return wizard.Stay(), nil
		}
		f.Set(neKeyLocation, loc)
		_ = d.Msg.SendText(ctx, ev.UserID, "How many people can attend?")
		return wizard.Continue(), nil
	}
}

func neCapacity(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		n, err := strconv.Atoi(strings.TrimSpace(ev.Payload))
		if err != nil || n <= 0 {
			_ = d.Msg.SendText(ctx, ev.UserID, "Capacity must be a positive number.")
			return wizard.Stay(), nil
		}
		f.Set(neKeyCapacity, int64(n))
		_ = d.Msg.SendText(ctx, ev.UserID, "Add a short description, or send /skip.")
		return wizard.Continue(), nil
	}
}

func neDescription(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if !isSkip(ev.Payload) {
			f.Set(neKeyDescription, strings.TrimSpace(ev.Payload))
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "Send a poster photo, or /skip.")
		return wizard.Continue(), nil
	}
}

func nePhoto(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		switch {
		case ev.Kind == wizard.KindPhoto:
			f.Set(neKeyPhotoFileID, ev.Payload)
		case isSkip(ev.Payload):
			// no poster
		default:
			_ = d.Msg.SendText(ctx, ev.UserID, "Send a photo, or /skip to go without one.")
			return wizard.Stay(), nil
		}
		preview, ok := neDraft(f)
		if !ok {
			return wizard.Stay(), nil
		}
		_ = d.Msg.SendText(ctx, ev.UserID,
			"Here's your event:\n\n"+preview+"\n\nPublish it?",
			wizard.Button{Label: "Publish", Token: tokenConfirm},
			wizard.Button{Label: "Cancel", Token: "cancel"},
		)
		return wizard.Continue(), nil
	}
}

func neConfirm(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind != wizard.KindAction || ev.Payload != tokenConfirm {
			_ = d.Msg.SendText(ctx, ev.UserID, "Tap Publish to create the event, or /cancel to drop it.")
			return wizard.Stay(), nil
		}
		ne, ok := neCollect(f, ev.UserID)
		if !ok {
			_ = d.Msg.SendText(ctx, ev.UserID, "Something is missing from the draft. Let's start over with /newevent.")
			return wizard.Leave(), nil
		}
		created, err := d.Events.Create(ctx, ne)
		if err != nil {
			return wizard.Stay(), err
		}
		_ = d.Msg.SendText(ctx, ev.UserID,
			"Event published. Share this link so people can sign up:\n"+
				"https://t.me/?start=ev_"+strconv.FormatInt(created.ID, 10))
		return wizard.Leave(), nil
	}
}

func neDraft(f *wizard.Flow) (string, bool) {
	ne, ok := neCollect(f, f.UserID())
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString(ne.Title + "\n")
	b.WriteString("When: " + ne.DateTime.Format(eventTimeLayout) + "\n")
	b.WriteString("Where: " + ne.Location + "\n")
	b.WriteString("Capacity: " + strconv.Itoa(ne.Capacity))
	if ne.Description != "" {
		b.WriteString("\nDetails: " + ne.Description)
	}
	if ne.ImageFileID != "" {
		b.WriteString("\nPoster: attached")
	}
	return b.String(), true
}

func neCollect(f *wizard.Flow, userID int64) (neOut service.NewEvent, ok bool) {
	title, okTitle := f.StringValue(neKeyTitle)
	dateUnix, okDate := f.Int64Value(neKeyDateUnix)
	hhmm, okTime := f.StringValue(neKeyTimeHHMM)
	location, okLoc := f.StringValue(neKeyLocation)
	capacity, okCap := f.Int64Value(neKeyCapacity)
	if !okTitle || !okDate || !okTime || !okLoc || !okCap {
		return neOut, false
	}
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return neOut, false
	}
	neOut.OrganiserTelegramID = userID
	neOut.Title = title
	neOut.DateTime = combineDateTime(time.Unix(dateUnix, 0).In(time.Local), clock)
	neOut.Location = location
	neOut.Capacity = int(capacity)
	neOut.Description, _ = f.StringValue(neKeyDescription)
	neOut.ImageFileID, _ = f.StringValue(neKeyPhotoFileID)
	return neOut, true
}
