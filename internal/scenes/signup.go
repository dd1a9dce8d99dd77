package scenes

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/volunteerhub/eventbot/core/wizard"
	"github.com/volunteerhub/eventbot/internal/service"
)

// Step IDs of the signup scene.
const (
	suStepIntro        wizard.StepID = "intro"
	suStepRole         wizard.StepID = "role"
	suStepName         wizard.StepID = "name"
	suStepOnBehalf     wizard.StepID = "onbehalf"
	suStepAge          wizard.StepID = "age"
	suStepRequirements wizard.StepID = "requirements"
	suStepConfirm      wizard.StepID = "confirm"
)

// Bag keys of the signup scene.
const (
	suKeyEventID     = "su_event_id"
	suKeyProfileName = "su_profile_name"
	suKeyName        = "su_name"
	suKeyAge         = "su_age"
	suKeyNotes       = "su_notes"
)

// Role button tokens.
const (
	tokenRoleBeneficiary = "role_beneficiary"
	tokenRoleOrganiser   = "role_organiser"
)

// On-behalf confirmation tokens, offered when the participant name does not
// match the sender's profile.
const (
	tokenOnBehalf = "on_behalf"
	tokenSelf     = "self"
)

func registerSignup(reg *wizard.Registry, d Deps) error {
	return reg.Register(wizard.Scene{
		ID: SceneSignup,
		Steps: []wizard.Step{
			{ID: suStepIntro, Handle: suIntro(d)},
			{ID: suStepRole, Handle: suRole(d)},
			{ID: suStepName, Handle: suName(d)},
			{ID: suStepOnBehalf, Handle: suOnBehalf(d)},
			{ID: suStepAge, Handle: suAge(d)},
			{ID: suStepRequirements, Handle: suRequirements(d)},
			{ID: suStepConfirm, Handle: suConfirm(d)},
		},
	})
}

func suIntro(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		eventID, ok := f.PayloadInt64(PayloadEventID)
		if !ok {
			_ = d.Msg.SendText(ctx, ev.UserID, "That sign-up link is broken. Ask the organiser for a fresh one.")
			return wizard.Leave(), nil
		}
		event, err := d.Events.GetByID(ctx, eventID)
		if errors.Is(err, service.ErrNotFound) {
			_ = d.Msg.SendText(ctx, ev.UserID, "That event no longer exists.")
			return wizard.Leave(), nil
		}
		if err != nil {
			return wizard.Stay(), err
		}

		user, err := d.Users.GetOrCreate(ctx, ev.UserID, service.UserProfile{
			Name:     ev.From.Name,
			Username: ev.From.Username,
		})
		if err != nil {
			return wizard.Stay(), err
		}
		if !user.HasPhone() {
			_ = d.Msg.SendText(ctx, ev.UserID,
				"Before signing up I need a couple of details about you.")
			return wizard.EnterScene(SceneProfile, map[string]any{PayloadEventID: eventID}), nil
		}

		f.Set(suKeyEventID, eventID)
		f.Set(suKeyProfileName, user.DisplayName())
		_ = d.Msg.SendText(ctx, ev.UserID, formatEvent(event)+"\n\nHow are you joining?",
			wizard.Button{Label: "I'm attending", Token: tokenRoleBeneficiary},
			wizard.Button{Label: "I'm an organiser", Token: tokenRoleOrganiser},
		)
		return wizard.Continue(), nil
	}
}

func suRole(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind != wizard.KindAction {
			_ = d.Msg.SendText(ctx, ev.UserID, "Use the buttons above to tell me how you're joining.")
			return wizard.Stay(), nil
		}
		switch ev.Payload {
		case tokenRoleOrganiser:
			return wizard.EnterScene(SceneEventSummary, nil), nil
		case tokenRoleBeneficiary:
			_ = d.Msg.SendText(ctx, ev.UserID, "Who is attending? Send the participant's full name.")
			return wizard.Continue(), nil
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "Use the buttons above to tell me how you're joining.")
		return wizard.Stay(), nil
	}
}

func suName(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		name := strings.TrimSpace(ev.Payload)
		if name == "" {
			_ = d.Msg.SendText(ctx, ev.UserID, "The name can't be empty. Who is attending?")
			return wizard.Stay(), nil
		}
		f.Set(suKeyName, name)

		profileName, _ := f.StringValue(suKeyProfileName)
		if strings.EqualFold(name, strings.TrimSpace(profileName)) {
			// Signing up for themselves, skip the on-behalf questions.
			_ = d.Msg.SendText(ctx, ev.UserID, "Any requirements we should know about? Send them, or /skip.")
			return wizard.JumpTo(suStepRequirements), nil
		}
		// The name doesn't match the profile; it might be a typo rather
		// than a sign-up for someone else, so ask before assuming.
		_ = d.Msg.SendText(ctx, ev.UserID,
			"That's not the name on your profile. Are you signing up someone else?",
			wizard.Button{Label: "Yes, someone else", Token: tokenOnBehalf},
			wizard.Button{Label: "No, that's me", Token: tokenSelf},
		)
		return wizard.Continue(), nil
	}
}

func suOnBehalf(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind != wizard.KindAction {
			_ = d.Msg.SendText(ctx, ev.UserID, "Use the buttons above to answer.")
			return wizard.Stay(), nil
		}
		switch ev.Payload {
		case tokenSelf:
			profileName, _ := f.StringValue(suKeyProfileName)
			f.Set(suKeyName, strings.TrimSpace(profileName))
			_ = d.Msg.SendText(ctx, ev.UserID, "Any requirements we should know about? Send them, or /skip.")
			return wizard.JumpTo(suStepRequirements), nil
		case tokenOnBehalf:
			name, _ := f.StringValue(suKeyName)
			_ = d.Msg.SendText(ctx, ev.UserID, "How old is "+name+"?")
			return wizard.Continue(), nil
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "Use the buttons above to answer.")
		return wizard.Stay(), nil
	}
}

func suAge(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		age, err := strconv.Atoi(strings.TrimSpace(ev.Payload))
		if err != nil || age < 0 || age > 130 {
			_ = d.Msg.SendText(ctx, ev.UserID, "Send the participant's age as a number.")
			return wizard.Stay(), nil
		}
		f.Set(suKeyAge, int64(age))
		_ = d.Msg.SendText(ctx, ev.UserID, "Any requirements we should know about? Send them, or /skip.")
		return wizard.Continue(), nil
	}
}

func suRequirements(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if !isSkip(ev.Payload) {
			f.Set(suKeyNotes, strings.TrimSpace(ev.Payload))
		}
		name, _ := f.StringValue(suKeyName)
		var b strings.Builder
		b.WriteString("Participant: " + name)
		if age, ok := f.Int64Value(suKeyAge); ok {
			b.WriteString("\nAge: " + strconv.FormatInt(age, 10))
		}
		if notes, ok := f.StringValue(suKeyNotes); ok && notes != "" {
			b.WriteString("\nRequirements: " + notes)
		}
		_ = d.Msg.SendText(ctx, ev.UserID, b.String()+"\n\nConfirm the sign-up?",
			wizard.Button{Label: "Confirm", Token: tokenConfirm},
			wizard.Button{Label: "Cancel", Token: "cancel"},
		)
		return wizard.Continue(), nil
	}
}

func suConfirm(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind != wizard.KindAction || ev.Payload != tokenConfirm {
			_ = d.Msg.SendText(ctx, ev.UserID, "Tap Confirm to finish, or /cancel to stop.")
			return wizard.Stay(), nil
		}
		eventID, okID := f.Int64Value(suKeyEventID)
		name, okName := f.StringValue(suKeyName)
		if !okID || !okName {
			return wizard.Leave(), nil
		}
		nr := service.NewRegistration{
			EventID:         eventID,
			UserTelegramID:  ev.UserID,
			ParticipantName: name,
		}
		if age, ok := f.Int64Value(suKeyAge); ok {
			n := int(age)
			nr.ParticipantAge = &n
		}
		nr.Notes, _ = f.StringValue(suKeyNotes)
		if _, err := d.Registrations.Create(ctx, nr); err != nil {
			return wizard.Stay(), err
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "You're signed up. See you there!")
		return wizard.Leave(), nil
	}
}
