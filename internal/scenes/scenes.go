// Package scenes holds the conversational flows the bot runs on top of the
// wizard engine: event creation and editing, attendance summaries, sign-up,
// and profile completion. Each scene is a plain function registering named
// steps, so flows can be tested with fake services and a fake messenger.
package scenes

import (
	"context"

	"github.com/volunteerhub/eventbot/core/wizard"
	"github.com/volunteerhub/eventbot/internal/model"
	"github.com/volunteerhub/eventbot/internal/service"
)

// Scene identifiers. Deep links and entry commands refer to these.
const (
	SceneNewEvent     wizard.SceneID = "newevent"
	SceneEditEvent    wizard.SceneID = "editevent"
	SceneEventSummary wizard.SceneID = "eventsummary"
	SceneSignup       wizard.SceneID = "signup"
	SceneProfile      wizard.SceneID = "profile"
)

// PayloadEventID is the forwarded-payload key carrying an event ID into the
// signup and profile scenes (deep links and scene hand-offs).
const PayloadEventID = "event_id"

// UserService is the slice of the user service the scenes need.
type UserService interface {
	GetOrCreate(ctx context.Context, telegramID int64, profile service.UserProfile) (model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error)
	Update(ctx context.Context, telegramID int64, upd service.UserUpdate) (model.User, error)
}

// EventService is the slice of the event service the scenes need.
type EventService interface {
	Create(ctx context.Context, ne service.NewEvent) (model.Event, error)
	Update(ctx context.Context, id int64, upd service.EventUpdate) (model.Event, error)
	GetByID(ctx context.Context, id int64) (model.Event, error)
	ListByOrganiser(ctx context.Context, organiserID int64) ([]model.Event, error)
}

// RegistrationService is the slice of the registration service the scenes need.
type RegistrationService interface {
	Create(ctx context.Context, nr service.NewRegistration) (model.Registration, error)
	ListForEvent(ctx context.Context, eventID int64) ([]model.Registration, error)
}

// Deps bundles everything the scenes talk to.
type Deps struct {
	Users         UserService
	Events        EventService
	Registrations RegistrationService
	Msg           wizard.Messenger
}

// RegisterAll wires every scene into the registry.
func RegisterAll(reg *wizard.Registry, d Deps) error {
	for _, register := range []func(*wizard.Registry, Deps) error{
		registerNewEvent,
		registerEditEvent,
		registerEventSummary,
		registerSignup,
		registerProfile,
	} {
		if err := register(reg, d); err != nil {
			return err
		}
	}
	return nil
}
