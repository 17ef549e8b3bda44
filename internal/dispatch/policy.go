package dispatch

import (
	"time"

	"gw2bot/internal/domain"
)

// Policy holds the loop's timing knobs. Zero fields take the defaults.
type Policy struct {
	// Interval between ticks.
	Interval time.Duration
	// FireGuard widens the firing window past the lead so a reminder is not
	// missed between two ticks.
	FireGuard time.Duration
	// SuppressWindow is added to the lead to form the quiet period after a
	// notification.
	SuppressWindow time.Duration
	// DeliveryTimeout bounds one delivery including retries.
	DeliveryTimeout time.Duration
	// Workers caps concurrent reminder units per tick.
	Workers int
}

const (
	DefaultInterval        = 10 * time.Second
	DefaultFireGuard       = 30 * time.Second
	DefaultSuppressWindow  = 120 * time.Second
	DefaultDeliveryTimeout = 10 * time.Second
	DefaultWorkers         = 8
)

func DefaultPolicy() Policy {
	return Policy{
		Interval:        DefaultInterval,
		FireGuard:       DefaultFireGuard,
		SuppressWindow:  DefaultSuppressWindow,
		DeliveryTimeout: DefaultDeliveryTimeout,
		Workers:         DefaultWorkers,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Interval <= 0 {
		p.Interval = d.Interval
	}
	if p.FireGuard <= 0 {
		p.FireGuard = d.FireGuard
	}
	if p.SuppressWindow <= 0 {
		p.SuppressWindow = d.SuppressWindow
	}
	if p.DeliveryTimeout <= 0 {
		p.DeliveryTimeout = d.DeliveryTimeout
	}
	if p.Workers <= 0 {
		p.Workers = d.Workers
	}
	return p
}

type Decision int

const (
	NotDue Decision = iota
	Fire
	Suppressed
)

func (d Decision) String() string {
	switch d {
	case Fire:
		return "fire"
	case Suppressed:
		return "suppressed"
	default:
		return "not_due"
	}
}

// Decide applies the firing guard and the suppression window.
//
// A reminder fires when the event is closer than lead+FireGuard, unless it
// was reminded less than lead+SuppressWindow ago.
func (p Policy) Decide(r domain.Reminder, until time.Duration, now time.Time) Decision {
	p = p.withDefaults()
	if until >= r.Lead()+p.FireGuard {
		return NotDue
	}
	if r.Acknowledged() && now.Sub(*r.LastReminded) < r.Lead()+p.SuppressWindow {
		return Suppressed
	}
	return Fire
}
