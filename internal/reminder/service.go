// Package reminder exposes the user-facing operations: creating and
// removing reminders and querying the event timers.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gw2bot/internal/domain"
	"gw2bot/internal/eventbus"
	"gw2bot/internal/gamedata"
	"gw2bot/internal/storage"
	"gw2bot/internal/timers"
	logx "gw2bot/pkg/logx"
)

var (
	ErrLookupMiss     = errors.New("no event found matching that name")
	ErrLeadOutOfRange = errors.New("lead time out of range")
	ErrUnknownGroup   = errors.New("unknown event timer group")
	ErrUnknownKind    = errors.New("unknown reminder kind")
)

type Service struct {
	store storage.Store
	data  *gamedata.Data
	gen   *timers.Generator
	bus   eventbus.Bus
	log   logx.Logger
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithLogger(log logx.Logger) Option { return func(s *Service) { s.log = log } }
func WithBus(bus eventbus.Bus) Option   { return func(s *Service) { s.bus = bus } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides reminder ID generation.
func WithIDs(gen func() string) Option { return func(s *Service) { s.newID = gen } }

func New(store storage.Store, data *gamedata.Data, gen *timers.Generator, opts ...Option) *Service {
	s := &Service{
		store: store,
		data:  data,
		gen:   gen,
		bus:   eventbus.Nop{},
		log:   logx.Nop(),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.gen == nil && data != nil {
		s.gen = timers.NewGenerator(data.Bosses)
	}
	return s
}

// LeadFromMinutes converts a whole-minute lead into seconds.
func LeadFromMinutes(minutes int) (int, error) {
	if minutes < 0 {
		return 0, fmt.Errorf("%w: that's not how time works", ErrLeadOutOfRange)
	}
	if minutes*60 > domain.MaxLeadSeconds {
		return 0, fmt.Errorf("%w: time can't be greater than one hour", ErrLeadOutOfRange)
	}
	return minutes * 60, nil
}

// lookup resolves an event name case-insensitively. Bosses are searched
// before map phases; the first match wins.
func (s *Service) lookup(name string) (domain.Reminder, bool) {
	name = strings.TrimSpace(name)
	if name == "" || s.data == nil {
		return domain.Reminder{}, false
	}
	for _, b := range s.data.Bosses {
		if strings.EqualFold(b.Name, name) {
			return domain.Reminder{Kind: domain.KindBoss, Name: b.Name}, true
		}
	}
	for _, g := range s.data.Groups {
		for _, m := range g.Maps {
			for _, p := range m.Phases {
				if p.Name != "" && strings.EqualFold(p.Name, name) {
					return domain.Reminder{Kind: domain.KindPhase, Name: p.Name, Group: g.ID, MapName: m.Name}, true
				}
			}
		}
	}
	return domain.Reminder{}, false
}

// SetReminder creates a reminder for the named boss or map phase.
func (s *Service) SetReminder(ctx context.Context, owner int64, eventName string, leadSeconds int) (domain.Reminder, error) {
	if leadSeconds < 0 || leadSeconds > domain.MaxLeadSeconds {
		return domain.Reminder{}, fmt.Errorf("%w: %d seconds", ErrLeadOutOfRange, leadSeconds)
	}
	r, ok := s.lookup(eventName)
	if !ok {
		return domain.Reminder{}, fmt.Errorf("%w: %q", ErrLookupMiss, eventName)
	}
	r.ID = s.newID()
	r.LeadSeconds = leadSeconds
	r.CreatedAt = s.now().UTC()

	if _, err := s.store.Set(ctx, owner, storage.Update{Op: storage.OpPush, Reminder: r}); err != nil {
		return domain.Reminder{}, err
	}
	s.log.Info("reminder set", logx.Int64("owner", owner), logx.String("reminder", r.ID), logx.String("kind", string(r.Kind)), logx.String("name", r.Name), logx.Int("lead_s", leadSeconds))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeReminderCreated, Data: r.Clone()})
	return r, nil
}

func (s *Service) List(ctx context.Context, owner int64) ([]domain.Reminder, error) {
	u, err := s.store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	return u.Reminders, nil
}

// Unsubscribe removes one reminder by ID. It reports whether anything was removed.
func (s *Service) Unsubscribe(ctx context.Context, owner int64, id string) (bool, error) {
	return s.pull(ctx, owner, storage.Match{ReminderID: strings.TrimSpace(id)})
}

// UnsubscribeByMessage removes the reminder whose last notification is ref.
func (s *Service) UnsubscribeByMessage(ctx context.Context, owner int64, ref domain.MessageRef) (bool, error) {
	if ref.IsZero() {
		return false, nil
	}
	return s.pull(ctx, owner, storage.Match{LastMessage: &ref})
}

func (s *Service) pull(ctx context.Context, owner int64, m storage.Match) (bool, error) {
	if m.IsZero() {
		return false, nil
	}
	res, err := s.store.Set(ctx, owner, storage.Update{Op: storage.OpPull, Match: m})
	if err != nil {
		return false, err
	}
	if res.Modified == 0 {
		return false, nil
	}
	s.log.Info("reminder removed", logx.Int64("owner", owner), logx.Int("count", res.Modified))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeReminderRemoved, Data: map[string]any{"owner": owner, "count": res.Modified}})
	return true, nil
}

// GetUpcoming lists the next boss spawns. limit <= 0 selects the default of 8.
func (s *Service) GetUpcoming(now time.Time, limit int) []timers.UpcomingEvent {
	if limit <= 0 {
		limit = timers.DefaultUpcomingLimit
	}
	if s.gen == nil {
		return nil
	}
	return timers.Upcoming(s.gen.For(now), now, limit)
}

type MapPhase struct {
	Map        string
	Current    string
	HasCurrent bool
	Next       string
	NextAt     time.Time
	Until      time.Duration
}

type GroupPhases struct {
	Group string
	Title string
	Maps  []MapPhase
}

// GetCurrentPhase resolves every map of the group at now.
func (s *Service) GetCurrentPhase(group string, now time.Time) (GroupPhases, error) {
	g, ok := s.data.Group(group)
	if !ok {
		return GroupPhases{}, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	out := GroupPhases{Group: g.ID, Title: g.Title, Maps: make([]MapPhase, 0, len(g.Maps))}
	for _, m := range g.Maps {
		st, err := timers.CurrentPhase(m, now)
		if err != nil {
			return GroupPhases{}, err
		}
		until := time.Duration(st.MinutesUntilNext) * time.Minute
		out.Maps = append(out.Maps, MapPhase{
			Map:        m.Name,
			Current:    st.Current,
			HasCurrent: st.HasCurrent,
			Next:       st.Next,
			NextAt:     now.Add(until),
			Until:      until,
		})
	}
	return out, nil
}

// TimeUntil returns how long until the reminder's next event occurrence.
func (s *Service) TimeUntil(r domain.Reminder, now time.Time) (time.Duration, error) {
	switch r.Kind {
	case domain.KindBoss:
		if s.gen == nil {
			return 0, fmt.Errorf("%w: %q", ErrLookupMiss, r.Name)
		}
		eta, ok := timers.NextOccurrence(s.gen.For(now), now, r.Name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrLookupMiss, r.Name)
		}
		return eta.Sub(now), nil
	case domain.KindPhase:
		m, ok := s.data.Map(r.Group, r.MapName)
		if !ok {
			return 0, fmt.Errorf("%w: %s/%s", ErrLookupMiss, r.Group, r.MapName)
		}
		return timers.TimeUntilNamedPhase(m, now, r.Name)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
}
