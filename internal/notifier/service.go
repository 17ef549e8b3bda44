package notifier

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gw2bot/internal/domain"
	"gw2bot/internal/eventbus"
	kit "gw2bot/internal/transport"
	logx "gw2bot/pkg/logx"
)

var ErrNoAdapter = errors.New("notifier: no transport adapter")

// Service is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	log     logx.Logger
	adapter kit.Adapter
	bus     eventbus.Bus
	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	s := &Service{adapter: adapter, log: log, bus: bus}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s.cfg = cfg
	// burst = rate so short spikes at tick boundaries pass untouched
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) snapshot() (Config, *rate.Limiter, kit.Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.limiter, s.adapter
}

// Render formats a notification body.
func Render(n Notification) string {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return n.Text
	}
	return title + "\n" + n.Text
}

// Deliver sends n to the owner's private chat and returns the reference of
// the sent message.
func (s *Service) Deliver(ctx context.Context, owner int64, n Notification) (domain.MessageRef, error) {
	cfg, lim, ad := s.snapshot()
	if ad == nil {
		return domain.MessageRef{}, &DeliveryError{Owner: owner, Err: ErrNoAdapter}
	}

	text := Render(n)
	opt := &kit.SendOptions{DisablePreview: true}
	if n.ReminderID != "" {
		opt.Actions = []kit.Action{{Label: "❌ Unsubscribe", Unique: ActionUnsubscribe, Data: n.ReminderID}}
	}
	to := kit.ChatTarget{ChatID: owner}

	maxAttempts := 1 + cfg.RetryMax
	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		if err := lim.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		ref, err := ad.SendText(callCtx, to, text, opt)
		cancel()
		if err == nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeNotificationSent, Data: NotificationEvent{
				Owner: owner, ReminderID: n.ReminderID, MessageID: ref.MessageID, Attempts: attempt, At: time.Now(),
			}})
			return domain.MessageRef{ChatID: ref.ChatID, MessageID: ref.MessageID}, nil
		}
		lastErr = err
		s.log.Debug("notification send failed", logx.Int64("owner", owner), logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if attempt >= maxAttempts || ctx.Err() != nil {
			break
		}
		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			lastErr = ctx.Err()
			attempt = maxAttempts
		}
	}

	derr := &DeliveryError{Owner: owner, Attempts: attempt, Err: lastErr}
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeNotificationError, Data: NotificationEvent{
		Owner: owner, ReminderID: n.ReminderID, Attempts: attempt, At: time.Now(), Error: lastErr.Error(),
	}})
	return domain.MessageRef{}, derr
}

// Delete removes a previously delivered message. Callers treat failures as
// best-effort.
func (s *Service) Delete(ctx context.Context, ref domain.MessageRef) error {
	if ref.IsZero() {
		return nil
	}
	cfg, _, ad := s.snapshot()
	if ad == nil {
		return ErrNoAdapter
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	return ad.DeleteMessage(callCtx, kit.MessageRef{ChatID: ref.ChatID, MessageID: ref.MessageID})
}

// retryDelay is the wait before attempt+1: base * 2^(attempt-1) with
// 0.7..1.3 jitter, capped at RetryMaxDelay.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	return min(max(d, 0), cfg.RetryMaxDelay)
}
