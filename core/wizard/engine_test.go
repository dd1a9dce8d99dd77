package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prompt(dir Directive) StepHandler {
	return func(_ context.Context, _ *Flow, _ Event) (Directive, error) {
		return dir, nil
	}
}

func textEvent(userID int64, text string) Event {
	return Event{UserID: userID, Kind: KindText, Payload: text}
}

func actionEvent(userID int64, token string) Event {
	return Event{UserID: userID, Kind: KindAction, Payload: token}
}

func newTestEngine(t *testing.T, scenes ...Scene) (*Engine, Store) {
	t.Helper()
	reg := NewRegistry()
	for _, s := range scenes {
		require.NoError(t, reg.Register(s))
	}
	store := NewMemoryStore()
	eng, err := NewEngine(Options{Store: store, Registry: reg})
	require.NoError(t, err)
	return eng, store
}

func TestEnterRunsFirstStep(t *testing.T) {
	var entered bool
	scene := Scene{ID: "greet", Steps: []Step{
		{ID: "hello", Handle: func(_ context.Context, f *Flow, ev Event) (Directive, error) {
			entered = true
			assert.Equal(t, KindEnter, ev.Kind)
			f.Set("greeted", true)
			return Continue(), nil
		}},
		{ID: "await", Handle: prompt(Leave())},
	}}
	eng, store := newTestEngine(t, scene)

	require.NoError(t, eng.Enter(context.Background(), Event{UserID: 1}, "greet", nil))
	require.True(t, entered)

	sess, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, SceneID("greet"), sess.Scene)
	assert.Equal(t, 1, sess.Step)
	assert.Equal(t, true, sess.Bag["greeted"])
}

func TestStayKeepsStepAndPersistsBag(t *testing.T) {
	calls := 0
	scene := Scene{ID: "form", Steps: []Step{
		{ID: "intro", Handle: prompt(Continue())},
		{ID: "name", Handle: func(_ context.Context, f *Flow, ev Event) (Directive, error) {
			calls++
			f.Set("attempts", calls)
			return Stay(), nil
		}},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 7}, "form", nil))

	for i := 0; i < 5; i++ {
		require.NoError(t, eng.Dispatch(ctx, textEvent(7, "???")))
	}

	sess, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Step)
	assert.EqualValues(t, 5, sess.Bag["attempts"])
}

func TestJumpToNamedStep(t *testing.T) {
	scene := Scene{ID: "branchy", Steps: []Step{
		{ID: "start", Handle: prompt(JumpTo("end"))},
		{ID: "middle", Handle: prompt(Continue())},
		{ID: "end", Handle: prompt(Leave())},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 3}, "branchy", nil))

	sess, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Step)
}

func TestInvalidJumpTargetLeavesSessionUnchanged(t *testing.T) {
	scene := Scene{ID: "bad", Steps: []Step{
		{ID: "intro", Handle: prompt(Continue())},
		{ID: "boom", Handle: prompt(JumpTo("nowhere"))},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 4}, "bad", nil))

	err := eng.Dispatch(ctx, textEvent(4, "go"))
	require.ErrorIs(t, err, ErrInvalidJumpTarget)

	sess, getErr := store.Get(ctx, 4)
	require.NoError(t, getErr)
	require.NotNil(t, sess)
	assert.Equal(t, 1, sess.Step)
}

func TestBackAtStepZeroFails(t *testing.T) {
	scene := Scene{ID: "rewind", Steps: []Step{
		{ID: "only", Handle: func(_ context.Context, _ *Flow, ev Event) (Directive, error) {
			if ev.Kind == KindEnter {
				return Stay(), nil
			}
			return Back(), nil
		}},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 5}, "rewind", nil))

	err := eng.Dispatch(ctx, textEvent(5, "back"))
	require.ErrorIs(t, err, ErrNoPriorStep)

	sess, getErr := store.Get(ctx, 5)
	require.NoError(t, getErr)
	require.NotNil(t, sess)
	assert.Equal(t, 0, sess.Step)
}

func TestBackDecrementsStep(t *testing.T) {
	scene := Scene{ID: "steps", Steps: []Step{
		{ID: "a", Handle: prompt(Continue())},
		{ID: "b", Handle: prompt(Continue())},
		{ID: "c", Handle: prompt(Back())},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 6}, "steps", nil))
	require.NoError(t, eng.Dispatch(ctx, textEvent(6, "x")))
	require.NoError(t, eng.Dispatch(ctx, textEvent(6, "y")))

	sess, err := store.Get(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Step)
}

func TestEnterSceneDiscardsBagExceptPayload(t *testing.T) {
	first := Scene{ID: "outer", Steps: []Step{
		{ID: "collect", Handle: func(_ context.Context, f *Flow, _ Event) (Directive, error) {
			f.Set("secret", "drop me")
			return EnterScene("inner", map[string]any{"event_id": int64(42)}), nil
		}},
	}}
	var gotPayload int64
	second := Scene{ID: "inner", Steps: []Step{
		{ID: "receive", Handle: func(_ context.Context, f *Flow, _ Event) (Directive, error) {
			gotPayload, _ = f.PayloadInt64("event_id")
			_, leaked := f.Value("secret")
			assert.False(t, leaked)
			return Stay(), nil
		}},
	}}
	eng, store := newTestEngine(t, first, second)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 8}, "outer", nil))

	assert.EqualValues(t, 42, gotPayload)
	sess, err := store.Get(ctx, 8)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, SceneID("inner"), sess.Scene)
	assert.Equal(t, 0, sess.Step)
}

func TestLeaveDeletesSession(t *testing.T) {
	scene := Scene{ID: "quick", Steps: []Step{
		{ID: "bye", Handle: prompt(Leave())},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 9}, "quick", nil))

	sess, err := store.Get(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestContinueOffEndIsImplicitLeave(t *testing.T) {
	scene := Scene{ID: "openend", Steps: []Step{
		{ID: "last", Handle: prompt(Continue())},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 10}, "openend", nil))

	sess, err := store.Get(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestCancelTokenLeavesFromAnyStep(t *testing.T) {
	var cancelled bool
	scene := Scene{ID: "long", Steps: []Step{
		{ID: "a", Handle: prompt(Continue())},
		{ID: "b", Handle: prompt(Stay())},
	}}
	reg := NewRegistry()
	require.NoError(t, reg.Register(scene))
	store := NewMemoryStore()
	eng, err := NewEngine(Options{
		Store:    store,
		Registry: reg,
		OnCancelled: func(_ context.Context, _ Event) error {
			cancelled = true
			return nil
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 11}, "long", nil))
	require.NoError(t, eng.Dispatch(ctx, actionEvent(11, "cancel")))

	assert.True(t, cancelled)
	sess, getErr := store.Get(ctx, 11)
	require.NoError(t, getErr)
	assert.Nil(t, sess)
}

func TestIdleEventHitsFallback(t *testing.T) {
	var fallbacks int
	reg := NewRegistry()
	require.NoError(t, reg.Register(Scene{ID: "noop", Steps: []Step{{ID: "s", Handle: prompt(Stay())}}}))
	eng, err := NewEngine(Options{
		Store:    NewMemoryStore(),
		Registry: reg,
		Fallback: func(_ context.Context, _ Event) error {
			fallbacks++
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, eng.Dispatch(context.Background(), textEvent(12, "hello?")))
	assert.Equal(t, 1, fallbacks)
}

func TestDeepLinkEntryTrigger(t *testing.T) {
	var seeded int64
	scene := Scene{ID: "signup", Steps: []Step{
		{ID: "load", Handle: func(_ context.Context, f *Flow, _ Event) (Directive, error) {
			seeded, _ = f.PayloadInt64("event_id")
			return Stay(), nil
		}},
	}}
	reg := NewRegistry()
	require.NoError(t, reg.Register(scene))
	store := NewMemoryStore()
	eng, err := NewEngine(Options{
		Store:    store,
		Registry: reg,
		Entry: func(ev Event) (SceneID, map[string]any, bool) {
			if ev.Kind == KindText && ev.Payload == "start ev_42" {
				return "signup", map[string]any{"event_id": int64(42)}, true
			}
			return "", nil, false
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, eng.Dispatch(ctx, textEvent(13, "start ev_42")))

	assert.EqualValues(t, 42, seeded)
	sess, getErr := store.Get(ctx, 13)
	require.NoError(t, getErr)
	require.NotNil(t, sess)
	assert.Equal(t, SceneID("signup"), sess.Scene)
	assert.Equal(t, 0, sess.Step)
}

func TestHandlerErrorLeavesSessionUntouched(t *testing.T) {
	boom := errors.New("collaborator down")
	scene := Scene{ID: "fragile", Steps: []Step{
		{ID: "intro", Handle: prompt(Continue())},
		{ID: "write", Handle: func(_ context.Context, f *Flow, _ Event) (Directive, error) {
			f.Set("partial", true)
			return Directive{}, boom
		}},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 14}, "fragile", nil))

	err := eng.Dispatch(ctx, textEvent(14, "x"))
	require.ErrorIs(t, err, boom)

	sess, getErr := store.Get(ctx, 14)
	require.NoError(t, getErr)
	require.NotNil(t, sess)
	assert.Equal(t, 1, sess.Step)
	_, leaked := sess.Bag["partial"]
	assert.False(t, leaked, "partial mutation must not be persisted on handler error")
}

type flakyStore struct {
	Store
	failGet bool
}

func (f *flakyStore) Get(ctx context.Context, userID int64) (*Session, error) {
	if f.failGet {
		return nil, fmt.Errorf("connection refused")
	}
	return f.Store.Get(ctx, userID)
}

func TestStoreFailureIsRetryableNotFreshSession(t *testing.T) {
	var transient int
	scene := Scene{ID: "durable", Steps: []Step{{ID: "s", Handle: prompt(Stay())}}}
	reg := NewRegistry()
	require.NoError(t, reg.Register(scene))
	flaky := &flakyStore{Store: NewMemoryStore()}
	eng, err := NewEngine(Options{
		Store:    flaky,
		Registry: reg,
		OnTransient: func(_ context.Context, _ Event) error {
			transient++
			return nil
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, eng.Enter(ctx, Event{UserID: 15}, "durable", nil))

	flaky.failGet = true
	dispatchErr := eng.Dispatch(ctx, textEvent(15, "resume"))
	require.ErrorIs(t, dispatchErr, ErrStoreUnavailable)
	assert.Equal(t, 1, transient)

	// Once the store recovers the same input resumes the same step.
	flaky.failGet = false
	require.NoError(t, eng.Dispatch(ctx, textEvent(15, "resume")))
	sess, getErr := flaky.Get(ctx, 15)
	require.NoError(t, getErr)
	require.NotNil(t, sess)
	assert.Equal(t, 0, sess.Step)
}

func TestUnknownSceneInSessionClearsAndFails(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Scene{ID: "known", Steps: []Step{{ID: "s", Handle: prompt(Stay())}}}))
	store := NewMemoryStore()
	var restarts int
	eng, err := NewEngine(Options{
		Store:    store,
		Registry: reg,
		OnFatal: func(_ context.Context, _ Event) error {
			restarts++
			return nil
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Session{UserID: 16, Scene: "ghost", Bag: map[string]any{}}))

	dispatchErr := eng.Dispatch(ctx, textEvent(16, "hi"))
	require.ErrorIs(t, dispatchErr, ErrSceneNotFound)
	assert.Equal(t, 1, restarts)

	sess, getErr := store.Get(ctx, 16)
	require.NoError(t, getErr)
	assert.Nil(t, sess, "session cleared so the user is not stuck")
}

func TestRegistryFreezesOnFirstDispatch(t *testing.T) {
	eng, _ := newTestEngine(t, Scene{ID: "a", Steps: []Step{{ID: "s", Handle: prompt(Stay())}}})
	require.NoError(t, eng.Dispatch(context.Background(), textEvent(17, "x")))

	err := eng.opts.Registry.Register(Scene{ID: "late", Steps: []Step{{ID: "s", Handle: prompt(Stay())}}})
	require.ErrorIs(t, err, ErrRegistryFrozen)
}

func TestUsersProgressIndependently(t *testing.T) {
	scene := Scene{ID: "count", Steps: []Step{
		{ID: "a", Handle: prompt(Continue())},
		{ID: "b", Handle: prompt(Continue())},
		{ID: "c", Handle: prompt(Stay())},
	}}
	eng, store := newTestEngine(t, scene)
	ctx := context.Background()

	var wg sync.WaitGroup
	for uid := int64(100); uid < 110; uid++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			assert.NoError(t, eng.Enter(ctx, Event{UserID: uid}, "count", nil))
			assert.NoError(t, eng.Dispatch(ctx, textEvent(uid, "go")))
		}(uid)
	}
	wg.Wait()

	for uid := int64(100); uid < 110; uid++ {
		sess, err := store.Get(ctx, uid)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, 2, sess.Step)
	}
}
