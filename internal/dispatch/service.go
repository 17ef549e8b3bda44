// Package dispatch runs the periodic reminder loop: every tick it walks all
// stored reminders, decides which are due and delivers them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"gw2bot/internal/domain"
	"gw2bot/internal/eventbus"
	"gw2bot/internal/notifier"
	"gw2bot/internal/storage"
	"gw2bot/internal/timers"
	logx "gw2bot/pkg/logx"
)

const notificationTitle = "Event reminder"

// Evaluator answers how long until a reminder's next occurrence.
type Evaluator interface {
	TimeUntil(r domain.Reminder, now time.Time) (time.Duration, error)
}

// Notifier delivers rendered reminders and removes stale ones.
type Notifier interface {
	Deliver(ctx context.Context, owner int64, n notifier.Notification) (domain.MessageRef, error)
	Delete(ctx context.Context, ref domain.MessageRef) error
}

type Outcome string

const (
	OutcomeFired      Outcome = "fired"
	OutcomeNotDue     Outcome = "not_due"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeVanished   Outcome = "vanished"
	OutcomeFailed     Outcome = "failed"
)

// UnitResult is the outcome of one (owner, reminder) pair in a tick.
type UnitResult struct {
	Owner      int64
	ReminderID string
	Name       string
	Outcome    Outcome
	Until      time.Duration
	Message    domain.MessageRef
	Err        error
}

type TickReport struct {
	At         time.Time
	Duration   time.Duration
	Users      int
	Reminders  int
	Fired      int
	Suppressed int
	Vanished   int
	Failed     int
	Results    []UnitResult
	Err        error // store iteration failed; nothing was evaluated
}

func (r *TickReport) add(u UnitResult) {
	switch u.Outcome {
	case OutcomeFired:
		r.Fired++
	case OutcomeSuppressed:
		r.Suppressed++
	case OutcomeVanished:
		r.Vanished++
	case OutcomeFailed:
		r.Failed++
	}
	r.Results = append(r.Results, u)
}

type Service struct {
	store  storage.Store
	eval   Evaluator
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger
	now    func() time.Time

	mu      sync.Mutex
	policy  Policy
	c       *cron.Cron
	entry   cron.EntryID
	runCtx  context.Context
	cancel  context.CancelFunc
	running bool
}

type Option func(*Service)

func WithLogger(log logx.Logger) Option    { return func(s *Service) { s.log = log } }
func WithBus(bus eventbus.Bus) Option      { return func(s *Service) { s.bus = bus } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store storage.Store, eval Evaluator, notify Notifier, p Policy, opts ...Option) *Service {
	s := &Service{
		store:  store,
		eval:   eval,
		notify: notify,
		bus:    eventbus.Nop{},
		log:    logx.Nop(),
		now:    time.Now,
		policy: p.withDefaults(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(logx.String("comp", "dispatch"))
	return s
}

func (s *Service) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Start schedules the loop. The first tick runs shortly after start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.restartLocked()
	s.running = true
	s.log.Info("dispatch loop started", logx.Duration("interval", s.policy.Interval), logx.Int("workers", s.policy.Workers))
	return nil
}

// Stop halts the trigger and cancels in-flight work without waiting for it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.c != nil {
		s.c.Stop()
		s.c = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("dispatch loop stopped")
}

// Apply swaps the policy. A changed interval reschedules a running loop.
func (s *Service) Apply(p Policy) {
	p = p.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.policy
	s.policy = p
	if s.running && prev.Interval != p.Interval {
		s.restartLocked()
		s.log.Info("dispatch interval changed", logx.Duration("from", prev.Interval), logx.Duration("to", p.Interval))
	}
}

func (s *Service) restartLocked() {
	// The old trigger is not awaited: a running tick needs s.mu for Policy.
	if s.c != nil {
		s.c.Stop()
	}
	l := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	ctx := s.runCtx
	job := cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.Tick(ctx, s.now())
	})
	s.entry = s.c.Schedule(startSchedule{every: cron.Every(s.policy.Interval), first: time.Now().Add(time.Second)}, job)
	s.c.Start()
}

// startSchedule fires once at first, then follows every.
type startSchedule struct {
	every cron.Schedule
	first time.Time
}

func (s startSchedule) Next(t time.Time) time.Time {
	if t.Before(s.first) {
		return s.first
	}
	return s.every.Next(t)
}

// Tick evaluates every stored reminder once at now.
func (s *Service) Tick(ctx context.Context, now time.Time) TickReport {
	start := time.Now()
	p := s.Policy()
	rep := TickReport{At: now}

	var users []domain.User
	for u, err := range s.store.Iter(ctx, storage.CollectionUsers, storage.Filter{HasReminders: true}) {
		if err != nil {
			rep.Err = err
			rep.Duration = time.Since(start)
			s.log.Warn("tick skipped: store iteration failed", logx.Err(err))
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeTickDone, Data: rep})
			return rep
		}
		users = append(users, u)
	}
	rep.Users = len(users)

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(p.Workers)
	for _, u := range users {
		for _, r := range u.Reminders {
			rep.Reminders++
			owner, id := u.OwnerID, r.ID
			g.Go(func() error {
				res := s.runUnit(ctx, p, owner, id, now)
				mu.Lock()
				rep.add(res)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	rep.Duration = time.Since(start)
	fields := []logx.Field{
		logx.Int("users", rep.Users),
		logx.Int("reminders", rep.Reminders),
		logx.Int("fired", rep.Fired),
		logx.Int("suppressed", rep.Suppressed),
		logx.Int("vanished", rep.Vanished),
		logx.Int("failed", rep.Failed),
		logx.Duration("took", rep.Duration),
	}
	if rep.Fired > 0 || rep.Failed > 0 {
		s.log.Info("tick done", fields...)
	} else {
		s.log.Debug("tick done", fields...)
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeTickDone, Data: rep})
	return rep
}

// runUnit isolates one unit so a panic fails only that reminder.
func (s *Service) runUnit(ctx context.Context, p Policy, owner int64, id string, now time.Time) (res UnitResult) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("reminder unit panic", logx.Int64("owner", owner), logx.String("reminder", id), logx.Any("panic", rec), logx.Stack(string(debug.Stack())))
			res = UnitResult{Owner: owner, ReminderID: id, Outcome: OutcomeFailed, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	return s.process(ctx, p, owner, id, now)
}

func (s *Service) process(ctx context.Context, p Policy, owner int64, id string, now time.Time) UnitResult {
	res := UnitResult{Owner: owner, ReminderID: id}
	log := s.log.With(logx.Int64("owner", owner), logx.String("reminder", id))

	// The reminder may have been removed since the tick snapshot.
	u, err := s.store.Get(ctx, owner)
	if err != nil {
		return s.fail(log, res, fmt.Errorf("reload owner: %w", err))
	}
	r, ok := u.Find(id)
	if !ok {
		res.Outcome = OutcomeVanished
		log.Debug("reminder vanished before evaluation")
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeReminderVanished, Data: res})
		return res
	}
	res.Name = r.Name

	until, err := s.eval.TimeUntil(r, now)
	if err != nil {
		return s.fail(log, res, fmt.Errorf("evaluate %q: %w", r.Name, err))
	}
	res.Until = until

	switch p.Decide(r, until, now) {
	case NotDue:
		res.Outcome = OutcomeNotDue
		return res
	case Suppressed:
		res.Outcome = OutcomeSuppressed
		log.Debug("reminder suppressed", logx.Duration("until", until))
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeReminderSuppress, Data: res})
		return res
	}

	if r.LastMessage != nil && !r.LastMessage.IsZero() {
		if err := s.notify.Delete(ctx, *r.LastMessage); err != nil {
			log.Debug("previous reminder not deleted", logx.Err(err))
		}
	}

	dctx, cancel := context.WithTimeout(ctx, p.DeliveryTimeout)
	ref, err := s.notify.Deliver(dctx, owner, notifier.Notification{
		Title:      notificationTitle,
		Text:       r.Name + " will begin in " + timers.FormatCountdown(until),
		ReminderID: r.ID,
	})
	cancel()
	if err != nil {
		return s.fail(log, res, err)
	}
	res.Message = ref

	stamped := r.Clone()
	at := now
	stamped.LastReminded = &at
	stamped.LastMessage = &ref
	if _, err := s.store.Set(ctx, owner, storage.Update{Op: storage.OpReplace, Reminder: stamped}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			res.Outcome = OutcomeVanished
			log.Info("reminder removed during delivery")
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeReminderVanished, Data: res})
			return res
		}
		return s.fail(log, res, fmt.Errorf("record delivery: %w", err))
	}

	res.Outcome = OutcomeFired
	log.Info("reminder fired", logx.String("name", r.Name), logx.Duration("until", until))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeReminderFired, Data: res})
	return res
}

func (s *Service) fail(log logx.Logger, res UnitResult, err error) UnitResult {
	res.Outcome = OutcomeFailed
	res.Err = err
	log.Warn("reminder unit failed", logx.Err(err))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeReminderFailed, Data: res})
	return res
}
