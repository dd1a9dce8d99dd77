// Package app assembles the event bot: configuration, database, wizard
// engine, scenes, and the Telegram wiring handed to the shared runtime.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/volunteerhub/eventbot/core/bootstrap"
	coreconfig "github.com/volunteerhub/eventbot/core/config"
	tgsender "github.com/volunteerhub/eventbot/core/telegram/sender"
	"github.com/volunteerhub/eventbot/core/wizard"
	"github.com/volunteerhub/eventbot/core/wizard/wizardpg"
	"github.com/volunteerhub/eventbot/core/wizard/wizardredis"
	"github.com/volunteerhub/eventbot/internal/scenes"
	"github.com/volunteerhub/eventbot/internal/service"
)

const redisPingTimeout = 5 * time.Second

// App holds the assembled runtime pieces of the bot.
type App struct {
	cfg *Config
	db  *sqlx.DB

	dispatcher *tgsender.Dispatcher
	msg        *Messenger
	engine     *wizard.Engine

	users         *service.Users
	events        *service.Events
	registrations *service.Registrations

	pgSessions  *wizardpg.Store
	redisClient *redis.Client

	sweepCancel context.CancelFunc
}

// Bootstrap initializes infrastructure and wires the domain services and
// wizard scenes together.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
		Seeders:  []bootstrap.Seeder{ensureAdminUser(cfg.Telegram.AdminID)},
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg: cfg,
		db:  res.DB,
		// One worker keeps wizard prompts in send order.
		dispatcher: tgsender.NewDispatcher(tgsender.Options{Workers: 1}),
	}
	a.msg = NewMessenger(a.dispatcher)

	a.users = service.NewUsers(a.db)
	a.events = service.NewEvents(a.db)
	a.registrations = service.NewRegistrations(a.db)

	store, err := a.buildSessionStore()
	if err != nil {
		_ = a.db.Close()
		return nil, err
	}

	registry := wizard.NewRegistry()
	if err := scenes.RegisterAll(registry, scenes.Deps{
		Users:         a.users,
		Events:        a.events,
		Registrations: a.registrations,
		Msg:           a.msg,
	}); err != nil {
		_ = a.db.Close()
		return nil, fmt.Errorf("app: scene registration failed: %w", err)
	}

	a.engine, err = wizard.NewEngine(wizard.Options{
		Store:       store,
		Registry:    registry,
		Fallback:    a.replyIdle,
		OnFatal:     a.replyFatal,
		OnTransient: a.replyTransient,
		OnCancelled: a.replyCancelled,
	})
	if err != nil {
		_ = a.db.Close()
		return nil, fmt.Errorf("app: engine construction failed: %w", err)
	}

	return a, nil
}

// ensureAdminUser pre-creates the admin's user row so their events can be
// referenced before they ever message the bot.
func ensureAdminUser(adminID int64) bootstrap.SeederFunc {
	return func(ctx context.Context, db *sqlx.DB) error {
		if adminID == 0 {
			return nil
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (telegram_user_id)
			VALUES ($1)
			ON CONFLICT (telegram_user_id) DO NOTHING`, adminID)
		return err
	}
}

func (a *App) buildSessionStore() (wizard.Store, error) {
	sess := a.cfg.Session
	switch sess.Backend {
	case coreconfig.SessionBackendMemory:
		return wizard.NewMemoryStore(), nil

	case coreconfig.SessionBackendRedis:
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     sess.RedisAddr,
			Password: sess.RedisPassword,
			DB:       sess.RedisDB,
		})
		store := wizardredis.New(a.redisClient, sess.IdleTTL())
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := store.HealthCheck(ctx); err != nil {
			return nil, fmt.Errorf("app: redis session store unreachable: %w", err)
		}
		return store, nil

	default: // postgres
		a.pgSessions = wizardpg.New(a.db)
		if sess.IdleTTL() > 0 {
			sweepCtx, cancel := context.WithCancel(context.Background())
			a.sweepCancel = cancel
			go a.pgSessions.RunSweeper(sweepCtx, sess.IdleTTL(), sess.SweepInterval())
		}
		return a.pgSessions, nil
	}
}

// Close releases the background sweeper, Redis client, and database pool.
func (a *App) Close() error {
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *App) replyIdle(ctx context.Context, ev wizard.Event) error {
	if ev.Kind == wizard.KindAction {
		// A stale button from an already finished flow. Stay quiet.
		return nil
	}
	return a.msg.SendText(ctx, ev.UserID, "I didn't catch that. Try /help for what I can do.")
}

func (a *App) replyFatal(ctx context.Context, ev wizard.Event) error {
	return a.msg.SendText(ctx, ev.UserID,
		"Something went wrong with this conversation. Start over with one of the commands, or /cancel first.")
}

func (a *App) replyTransient(ctx context.Context, ev wizard.Event) error {
	return a.msg.SendText(ctx, ev.UserID, "I couldn't save that just now. Please send it again.")
}

func (a *App) replyCancelled(ctx context.Context, ev wizard.Event) error {
	return a.msg.SendText(ctx, ev.UserID, "Cancelled. Nothing was saved.")
}
