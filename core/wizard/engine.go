package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"log/slog"

	"github.com/volunteerhub/eventbot/core/logger"
)

const (
	lockShards = 64
	// maxEnterDepth bounds chained EnterScene directives within one dispatch.
	maxEnterDepth = 8

	defaultCancelToken = "cancel"
)

// EntryFunc inspects an event arriving for a user with no session and
// decides whether it triggers a scene entry (deep links). It returns the
// target scene and the payload seeding its bag.
type EntryFunc func(ev Event) (SceneID, map[string]any, bool)

// ReplyFunc delivers a fixed user-facing reply outside any scene.
type ReplyFunc func(ctx context.Context, ev Event) error

// Options configures an Engine.
type Options struct {
	Store    Store
	Registry *Registry

	// CancelToken is the action token honored at any step as a leave
	// directive, before the step handler runs. Defaults to "cancel".
	CancelToken string

	// Entry resolves scene entries for sessionless events (deep links).
	Entry EntryFunc

	// Fallback answers sessionless events that trigger nothing. Idle state,
	// not an error.
	Fallback ReplyFunc
	// OnFatal tells the user to restart after a configuration error.
	OnFatal ReplyFunc
	// OnTransient asks the user to repeat the same input after a store failure.
	OnTransient ReplyFunc
	// OnCancelled acknowledges a cancel token.
	OnCancelled ReplyFunc
}

// Engine routes inbound events to the active scene and step, applies the
// returned directives, and persists the resulting session state. Events for
// the same user are serialized; distinct users progress concurrently.
type Engine struct {
	opts  Options
	locks [lockShards]sync.Mutex
}

// NewEngine validates options and constructs an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("wizard: store is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("wizard: registry is required")
	}
	if opts.CancelToken == "" {
		opts.CancelToken = defaultCancelToken
	}
	return &Engine{opts: opts}, nil
}

func (e *Engine) lockFor(userID int64) *sync.Mutex {
	idx := userID % lockShards
	if idx < 0 {
		idx = -idx
	}
	return &e.locks[idx]
}

// Active reports whether the user currently has a session in a scene.
func (e *Engine) Active(ctx context.Context, userID int64) (bool, error) {
	sess, err := e.opts.Store.Get(ctx, userID)
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return sess != nil, nil
}

// Dispatch routes one inbound event. Interactions from a single user are
// processed in order; per-user locking preserves the step sequence invariant
// even if the transport delivers concurrently.
func (e *Engine) Dispatch(ctx context.Context, ev Event) error {
	mu := e.lockFor(ev.UserID)
	mu.Lock()
	defer mu.Unlock()
	e.opts.Registry.freeze()

	sess, err := e.opts.Store.Get(ctx, ev.UserID)
	if err != nil {
		return e.transient(ctx, ev, wrapStoreErr(err))
	}

	if sess == nil {
		if e.opts.Entry != nil {
			if scene, payload, ok := e.opts.Entry(ev); ok {
				return e.enter(ctx, ev, scene, payload, 0)
			}
		}
		logger.Debug(ctx, "wizard", "dispatch.idle",
			slog.String("status", "skip"),
			slog.Int64("user_id", ev.UserID),
			slog.String("kind", string(ev.Kind)),
		)
		if e.opts.Fallback != nil {
			return e.opts.Fallback(ctx, ev)
		}
		return nil
	}

	scene, err := e.opts.Registry.Resolve(sess.Scene)
	if err != nil {
		// Registry no longer knows the persisted scene. Clear the session so
		// the user is not permanently stuck, tell them to restart.
		return e.fatal(ctx, ev, err, true)
	}

	if ev.Kind == KindAction && ev.Payload == e.opts.CancelToken {
		if err := e.opts.Store.Delete(ctx, ev.UserID); err != nil {
			return e.transient(ctx, ev, wrapStoreErr(err))
		}
		logger.Info(ctx, "wizard", "scene.cancelled",
			slog.String("status", "cancelled"),
			slog.Int64("user_id", ev.UserID),
			slog.String("scene", string(sess.Scene)),
			slog.Int("step", sess.Step),
		)
		if e.opts.OnCancelled != nil {
			return e.opts.OnCancelled(ctx, ev)
		}
		return nil
	}

	if sess.Step < 0 || sess.Step >= len(scene.Steps) {
		return e.fatal(ctx, ev, fmt.Errorf("%w: scene %s step %d of %d",
			ErrStepOverflow, scene.ID, sess.Step, len(scene.Steps)), true)
	}

	return e.runStep(ctx, ev, sess, scene, 0)
}

// Enter programmatically starts a scene for the event's user, as commands
// and deep links do. Any existing session is replaced and its bag discarded.
func (e *Engine) Enter(ctx context.Context, ev Event, scene SceneID, payload map[string]any) error {
	mu := e.lockFor(ev.UserID)
	mu.Lock()
	defer mu.Unlock()
	e.opts.Registry.freeze()
	return e.enter(ctx, ev, scene, payload, 0)
}

func (e *Engine) runStep(ctx context.Context, ev Event, sess *Session, scene Scene, depth int) error {
	step := scene.Steps[sess.Step]
	flow := &Flow{sess: sess}

	dir, err := step.Handle(ctx, flow, ev)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return e.transient(ctx, ev, err)
		}
		// Session is left untouched: the transition is applied fully or not
		// at all, so the user can repeat the same input once the handler's
		// collaborator recovers.
		return fmt.Errorf("wizard: scene %s step %s: %w", scene.ID, step.ID, err)
	}

	logger.Debug(ctx, "wizard", "step.handled",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.String("scene", string(scene.ID)),
		slog.String("step", string(step.ID)),
		slog.String("directive", dir.String()),
	)

	return e.apply(ctx, ev, sess, scene, dir, depth)
}

func (e *Engine) apply(ctx context.Context, ev Event, sess *Session, scene Scene, dir Directive, depth int) error {
	switch dir.kind {
	case dirStay:
		// Persist partial bag mutations so re-validation sees them.
		if err := e.opts.Store.Put(ctx, sess); err != nil {
			return e.transient(ctx, ev, wrapStoreErr(err))
		}
		return nil

	case dirContinue:
		next := sess.Step + 1
		if next >= len(scene.Steps) {
			// Implicit leave: a scene should end with a terminal directive.
			logger.Warn(ctx, "wizard", "step.overflow",
				slog.String("status", "fail"),
				slog.Int64("user_id", ev.UserID),
				slog.String("scene", string(scene.ID)),
				slog.Int("step", sess.Step),
				slog.String("err_code", ErrStepOverflow.Code()),
			)
			if err := e.opts.Store.Delete(ctx, ev.UserID); err != nil {
				return e.transient(ctx, ev, wrapStoreErr(err))
			}
			return nil
		}
		sess.Step = next
		if err := e.opts.Store.Put(ctx, sess); err != nil {
			return e.transient(ctx, ev, wrapStoreErr(err))
		}
		return nil

	case dirJump:
		idx, ok := scene.indexOf(dir.target)
		if !ok {
			return e.fatal(ctx, ev, fmt.Errorf("%w: scene %s step %q",
				ErrInvalidJumpTarget, scene.ID, dir.target), false)
		}
		sess.Step = idx
		if err := e.opts.Store.Put(ctx, sess); err != nil {
			return e.transient(ctx, ev, wrapStoreErr(err))
		}
		return nil

	case dirBack:
		if sess.Step == 0 {
			return e.fatal(ctx, ev, fmt.Errorf("%w: scene %s",
				ErrNoPriorStep, scene.ID), false)
		}
		sess.Step--
		if err := e.opts.Store.Put(ctx, sess); err != nil {
			return e.transient(ctx, ev, wrapStoreErr(err))
		}
		return nil

	case dirEnter:
		return e.enter(ctx, ev, dir.scene, dir.payload, depth+1)

	case dirLeave:
		if err := e.opts.Store.Delete(ctx, ev.UserID); err != nil {
			return e.transient(ctx, ev, wrapStoreErr(err))
		}
		logger.Info(ctx, "wizard", "scene.left",
			slog.String("status", "ok"),
			slog.Int64("user_id", ev.UserID),
			slog.String("scene", string(scene.ID)),
		)
		return nil
	}

	return fmt.Errorf("wizard: unknown directive %v", dir.kind)
}

func (e *Engine) enter(ctx context.Context, ev Event, id SceneID, payload map[string]any, depth int) error {
	if depth > maxEnterDepth {
		return e.fatal(ctx, ev, fmt.Errorf("wizard: scene entry chain exceeds %d", maxEnterDepth), true)
	}

	scene, err := e.opts.Registry.Resolve(id)
	if err != nil {
		return e.fatal(ctx, ev, err, false)
	}

	sess := newSession(ev.UserID, id, payload)
	if err := e.opts.Store.Put(ctx, sess); err != nil {
		return e.transient(ctx, ev, wrapStoreErr(err))
	}

	logger.Info(ctx, "wizard", "scene.entered",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.String("scene", string(id)),
		slog.Bool("forwarded", len(payload) > 0),
	)

	entry := Event{UserID: ev.UserID, Kind: KindEnter, From: ev.From}
	return e.runStep(ctx, entry, sess, scene, depth)
}

// fatal logs a configuration error, optionally clears the session so the
// user is not stuck in an unresolvable scene, replies with the generic
// restart message, and surfaces the error to the caller.
func (e *Engine) fatal(ctx context.Context, ev Event, err error, clear bool) error {
	logger.Error(ctx, "wizard", "dispatch.fatal",
		slog.String("status", "fail"),
		slog.Int64("user_id", ev.UserID),
		slog.String("err", err.Error()),
	)
	if clear {
		if delErr := e.opts.Store.Delete(ctx, ev.UserID); delErr != nil {
			logger.Error(ctx, "wizard", "session.clear_failed",
				slog.String("status", "fail"),
				slog.Int64("user_id", ev.UserID),
				slog.String("err", delErr.Error()),
			)
		}
	}
	if e.opts.OnFatal != nil {
		_ = e.opts.OnFatal(ctx, ev)
	}
	return err
}

func (e *Engine) transient(ctx context.Context, ev Event, err error) error {
	logger.Warn(ctx, "wizard", "store.retryable",
		slog.String("status", "retry"),
		slog.Int64("user_id", ev.UserID),
		slog.String("err", err.Error()),
	)
	if e.opts.OnTransient != nil {
		_ = e.opts.OnTransient(ctx, ev)
	}
	return err
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
