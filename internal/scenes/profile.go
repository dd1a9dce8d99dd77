package scenes

import (
	"context"
	"strings"

	"github.com/volunteerhub/eventbot/core/wizard"
	"github.com/volunteerhub/eventbot/internal/service"
)

// Step IDs of the profile scene.
const (
	prStepName  wizard.StepID = "name"
	prStepPhone wizard.StepID = "phone"
)

const prKeyName = "pr_name"

func registerProfile(reg *wizard.Registry, d Deps) error {
	return reg.Register(wizard.Scene{
		ID: SceneProfile,
		Steps: []wizard.Step{
			{ID: prStepName, Handle: prName(d)},
			{ID: prStepPhone, Handle: prPhone(d)},
		},
	})
}

func prName(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		if ev.Kind == wizard.KindEnter {
			if _, err := d.Users.GetOrCreate(ctx, ev.UserID, service.UserProfile{
				Name:     ev.From.Name,
				Username: ev.From.Username,
			}); err != nil {
				return wizard.Stay(), err
			}
			_ = d.Msg.SendText(ctx, ev.UserID, "What's your full name?")
			return wizard.Stay(), nil
		}
		name := strings.TrimSpace(ev.Payload)
		if name == "" {
			_ = d.Msg.SendText(ctx, ev.UserID, "The name can't be empty. What's your full name?")
			return wizard.Stay(), nil
		}
		f.Set(prKeyName, name)
		_ = d.Msg.SendText(ctx, ev.UserID, "And your phone number?")
		return wizard.Continue(), nil
	}
}

func prPhone(d Deps) wizard.StepHandler {
	return func(ctx context.Context, f *wizard.Flow, ev wizard.Event) (wizard.Directive, error) {
		phone := normalizePhone(ev.Payload)
		if phone == "" {
			_ = d.Msg.SendText(ctx, ev.UserID, "That doesn't look like a phone number. Try again, digits only.")
			return wizard.Stay(), nil
		}
		name, _ := f.StringValue(prKeyName)
		if _, err := d.Users.Update(ctx, ev.UserID, service.UserUpdate{
			Name:  &name,
			Phone: &phone,
		}); err != nil {
			return wizard.Stay(), err
		}

		// A sign-up interrupted by profile completion resumes where it left off.
		if eventID, ok := f.PayloadInt64(PayloadEventID); ok {
			_ = d.Msg.SendText(ctx, ev.UserID, "Thanks! Back to your sign-up.")
			return wizard.EnterScene(SceneSignup, map[string]any{PayloadEventID: eventID}), nil
		}
		_ = d.Msg.SendText(ctx, ev.UserID, "Profile saved.")
		return wizard.Leave(), nil
	}
}

// normalizePhone strips spacing and keeps a leading plus. It returns an empty
// string when fewer than seven digits remain.
func normalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separators
		default:
			return ""
		}
	}
	cleaned := b.String()
	if len(strings.TrimPrefix(cleaned, "+")) < 7 {
		return ""
	}
	return cleaned
}
