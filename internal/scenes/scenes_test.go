package scenes

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/volunteerhub/eventbot/core/wizard"
	"github.com/volunteerhub/eventbot/internal/model"
	"github.com/volunteerhub/eventbot/internal/service"
)

// fakeMessenger records every outbound message with its buttons.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	userID  int64
	text    string
	buttons []wizard.Button
}

func (m *fakeMessenger) SendText(_ context.Context, userID int64, text string, buttons ...wizard.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{userID: userID, text: text, buttons: buttons})
	return nil
}

func (m *fakeMessenger) EditLast(ctx context.Context, userID int64, text string, buttons ...wizard.Button) error {
	return m.SendText(ctx, userID, text, buttons...)
}

func (m *fakeMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sent {
		if strings.Contains(s.text, substr) {
			return true
		}
	}
	return false
}

// fakeUsers is an in-memory user service.
type fakeUsers struct {
	users map[int64]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: make(map[int64]model.User)} }

func (s *fakeUsers) GetOrCreate(_ context.Context, telegramID int64, profile service.UserProfile) (model.User, error) {
	if u, ok := s.users[telegramID]; ok {
		return u, nil
	}
	u := model.User{
		TelegramUserID:   telegramID,
		TelegramUsername: sql.NullString{String: profile.Username, Valid: profile.Username != ""},
		Name:             sql.NullString{String: profile.Name, Valid: profile.Name != ""},
	}
	s.users[telegramID] = u
	return u, nil
}

func (s *fakeUsers) GetByTelegramID(_ context.Context, telegramID int64) (model.User, error) {
	u, ok := s.users[telegramID]
	if !ok {
		return model.User{}, service.ErrNotFound
	}
	return u, nil
}

func (s *fakeUsers) Update(_ context.Context, telegramID int64, upd service.UserUpdate) (model.User, error) {
	u := s.users[telegramID]
	u.TelegramUserID = telegramID
	if upd.Name != nil {
		u.Name = sql.NullString{String: *upd.Name, Valid: true}
	}
	if upd.Phone != nil {
		u.Phone = sql.NullString{String: *upd.Phone, Valid: true}
	}
	if upd.Email != nil {
		u.Email = sql.NullString{String: *upd.Email, Valid: true}
	}
	s.users[telegramID] = u
	return u, nil
}

// fakeEvents is an in-memory event service.
type fakeEvents struct {
	nextID  int64
	events  map[int64]model.Event
	created []service.NewEvent
	updated []service.EventUpdate
}

func newFakeEvents() *fakeEvents { return &fakeEvents{nextID: 1, events: make(map[int64]model.Event)} }

func (s *fakeEvents) Create(_ context.Context, ne service.NewEvent) (model.Event, error) {
	s.created = append(s.created, ne)
	ev := model.Event{
		ID:                  s.nextID,
		OrganiserTelegramID: ne.OrganiserTelegramID,
		Title:               ne.Title,
		DateTime:            ne.DateTime,
		Location:            ne.Location,
		Capacity:            ne.Capacity,
		Description:         sql.NullString{String: ne.Description, Valid: ne.Description != ""},
		ImageFileID:         sql.NullString{String: ne.ImageFileID, Valid: ne.ImageFileID != ""},
	}
	s.events[ev.ID] = ev
	s.nextID++
	return ev, nil
}

func (s *fakeEvents) Update(_ context.Context, id int64, upd service.EventUpdate) (model.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, service.ErrNotFound
	}
	s.updated = append(s.updated, upd)
	if upd.Title != nil {
		ev.Title = *upd.Title
	}
	if upd.DateTime != nil {
		ev.DateTime = *upd.DateTime
	}
	if upd.Location != nil {
		ev.Location = *upd.Location
	}
	if upd.Capacity != nil {
		ev.Capacity = *upd.Capacity
	}
	if upd.Description != nil {
		ev.Description = sql.NullString{String: *upd.Description, Valid: true}
	}
	s.events[id] = ev
	return ev, nil
}

func (s *fakeEvents) GetByID(_ context.Context, id int64) (model.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, service.ErrNotFound
	}
	return ev, nil
}

func (s *fakeEvents) ListByOrganiser(_ context.Context, organiserID int64) ([]model.Event, error) {
	var out []model.Event
	for id := int64(1); id < s.nextID; id++ {
		if ev, ok := s.events[id]; ok && ev.OrganiserTelegramID == organiserID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// fakeRegistrations is an in-memory registration service.
type fakeRegistrations struct {
	created []service.NewRegistration
}

func (s *fakeRegistrations) Create(_ context.Context, nr service.NewRegistration) (model.Registration, error) {
	s.created = append(s.created, nr)
	return model.Registration{
		ID:              int64(len(s.created)),
		EventID:         nr.EventID,
		UserTelegramID:  nr.UserTelegramID,
		ParticipantName: nr.ParticipantName,
		Status:          "confirmed",
	}, nil
}

func (s *fakeRegistrations) ListForEvent(_ context.Context, eventID int64) ([]model.Registration, error) {
	var regs []model.Registration
	for i, r := range s.created {
		if r.EventID != eventID {
			continue
		}
		reg := model.Registration{
			ID:              int64(i + 1),
			EventID:         r.EventID,
			UserTelegramID:  r.UserTelegramID,
			ParticipantName: r.ParticipantName,
			Status:          "confirmed",
		}
		if r.ParticipantAge != nil {
			reg.ParticipantAge = sql.NullInt32{Int32: int32(*r.ParticipantAge), Valid: true}
		}
		if r.Notes != "" {
			reg.Notes = sql.NullString{String: r.Notes, Valid: true}
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// harness wires the scenes into an engine backed by the in-memory store.
type harness struct {
	engine        *wizard.Engine
	msg           *fakeMessenger
	users         *fakeUsers
	events        *fakeEvents
	registrations *fakeRegistrations
}

func newHarness(t testingT) *harness {
	t.Helper()
	h := &harness{
		msg:           &fakeMessenger{},
		users:         newFakeUsers(),
		events:        newFakeEvents(),
		registrations: &fakeRegistrations{},
	}
	reg := wizard.NewRegistry()
	err := RegisterAll(reg, Deps{
		Users:         h.users,
		Events:        h.events,
		Registrations: h.registrations,
		Msg:           h.msg,
	})
	if err != nil {
		t.Fatalf("register scenes: %v", err)
	}
	h.engine, err = wizard.NewEngine(wizard.Options{
		Store:    wizard.NewMemoryStore(),
		Registry: reg,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return h
}

// testingT is the slice of *testing.T the harness needs.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

func (h *harness) enter(t testingT, userID int64, scene wizard.SceneID, payload map[string]any) {
	t.Helper()
	ev := wizard.Event{UserID: userID, Kind: wizard.KindEnter, From: wizard.From{Name: "Alice Tan", Username: "alice"}}
	if err := h.engine.Enter(context.Background(), ev, scene, payload); err != nil {
		t.Fatalf("enter %s: %v", scene, err)
	}
}

func (h *harness) text(t testingT, userID int64, text string) {
	t.Helper()
	err := h.engine.Dispatch(context.Background(), wizard.Event{
		UserID: userID, Kind: wizard.KindText, Payload: text,
		From: wizard.From{Name: "Alice Tan", Username: "alice"},
	})
	if err != nil {
		t.Fatalf("text %q: %v", text, err)
	}
}

func (h *harness) action(t testingT, userID int64, token string) {
	t.Helper()
	err := h.engine.Dispatch(context.Background(), wizard.Event{
		UserID: userID, Kind: wizard.KindAction, Payload: token,
		From: wizard.From{Name: "Alice Tan", Username: "alice"},
	})
	if err != nil {
		t.Fatalf("action %q: %v", token, err)
	}
}

func (h *harness) photo(t testingT, userID int64, fileID string) {
	t.Helper()
	err := h.engine.Dispatch(context.Background(), wizard.Event{
		UserID: userID, Kind: wizard.KindPhoto, Payload: fileID,
		From: wizard.From{Name: "Alice Tan", Username: "alice"},
	})
	if err != nil {
		t.Fatalf("photo: %v", err)
	}
}

func (h *harness) active(t testingT, userID int64) bool {
	t.Helper()
	ok, err := h.engine.Active(context.Background(), userID)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	return ok
}

// seedEvent inserts an event directly, bypassing the created-call log.
func (h *harness) seedEvent(organiserID int64, title string) model.Event {
	ev := model.Event{
		ID:                  h.events.nextID,
		OrganiserTelegramID: organiserID,
		Title:               title,
		DateTime:            time.Date(2026, 9, 14, 18, 30, 0, 0, time.Local),
		Location:            "Community Hall",
		Capacity:            20,
	}
	h.events.events[ev.ID] = ev
	h.events.nextID++
	return ev
}

// seedUserWithPhone creates a complete profile so signup skips the profile hop.
func (h *harness) seedUserWithPhone(userID int64, name string) {
	h.users.users[userID] = model.User{
		TelegramUserID: userID,
		Name:           sql.NullString{String: name, Valid: true},
		Phone:          sql.NullString{String: "+6591234567", Valid: true},
	}
}
