// Package app wires the bot together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"gw2bot/internal/config"
	"gw2bot/internal/dispatch"
	"gw2bot/internal/eventbus"
	"gw2bot/internal/gamedata"
	"gw2bot/internal/notifier"
	"gw2bot/internal/reminder"
	"gw2bot/internal/runtime/supervisor"
	"gw2bot/internal/storage"
	"gw2bot/internal/timers"
	kit "gw2bot/internal/transport"
	telegram "gw2bot/internal/transport/telegram/adapter"
	logx "gw2bot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter   kit.Adapter
	reminders *reminder.Service
	notif     *notifier.Service
	disp      *dispatch.Service
	handler   *updateHandler

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	data, err := gamedata.Load(cfg.GameData.Path)
	if err != nil {
		return nil, err
	}

	pollTimeout, _ := mapPollTimeout(cfg)
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logx.NewConsole("INFO").With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLoggingConfig(cfg), ad)
	ad.SetLogger(log.With(logx.String("comp", "telegram")))
	bus := eventbus.New()

	sc, _ := mapStorageConfig(cfg)
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	switch {
	case errors.Is(err, storage.ErrDisabled):
		log.Warn("storage disabled; reminders are kept in memory and lost on restart")
		store = storage.NewMemory()
	case err != nil:
		_ = logs.Close()
		return nil, err
	default:
		log.Info("storage opened", logx.String("driver", sc.Driver))
	}

	gen := timers.NewGenerator(data.Bosses)
	rem := reminder.New(store, data, gen,
		reminder.WithLogger(log.With(logx.String("comp", "reminder"))),
		reminder.WithBus(bus),
	)

	ncfg, _ := mapNotifierConfig(cfg)
	notif := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), bus)

	policy, _ := mapDispatchPolicy(cfg)
	disp := dispatch.New(store, rem, notif, policy,
		dispatch.WithLogger(log),
		dispatch.WithBus(bus),
	)

	return &App{
		cfgm:      cfgm,
		log:       log.With(logx.String("comp", "app")),
		logs:      logs,
		bus:       bus,
		store:     store,
		adapter:   ad,
		reminders: rem,
		notif:     notif,
		disp:      disp,
		handler: &updateHandler{
			reminders: rem,
			messages:  notif,
			answers:   ad,
			log:       log.With(logx.String("comp", "updates")),
		},
		updates: make(chan kit.Update, 256),
	}, nil
}

// Reminders exposes the core operations for a presentation layer.
func (a *App) Reminders() *reminder.Service { return a.reminders }

// Done is closed when the app supervisor stops (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validateConfig(cfg) })

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if err := a.disp.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("updates", func(c context.Context) error {
		return a.handler.Loop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Trace("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		watchdogLoop(c, a.log.With(logx.String("comp", "systemd")))
	})
	sdNotify(a.log, daemon.SdNotifyReady)

	a.log.Info("app started")
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts; only the newest matters
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					drained = true
				}
			}
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	if restart := config.RestartRequired(oldCfg, newCfg); len(restart) > 0 {
		a.log.Warn("config sections changed that need a restart", logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLoggingConfig(newCfg))
	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}
	if p, err := mapDispatchPolicy(newCfg); err != nil {
		a.log.Warn("invalid dispatch config; keeping previous", logx.Err(err))
	} else {
		a.disp.Apply(p)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config applied", fields...)
}

// Stop shuts down in order. Each step is bounded and a slow step does not
// hold up the rest.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	sdNotify(a.log, daemon.SdNotifyStopping)
	a.log.Info("stopping", logx.String("reason", string(reason)))

	a.disp.Stop()
	a.sup.Cancel()

	a.step(ctx, "adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.store.Close() })
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	return a.logs.Close()
}

func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		limit = min(limit, time.Until(dl))
	}
	if limit <= 0 {
		a.log.Warn("stop step skipped: no time left", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}
