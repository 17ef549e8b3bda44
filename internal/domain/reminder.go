// Package domain holds the reminder aggregate shared by the store, the
// reminder service and the dispatch loop.
package domain

import (
	"strings"
	"time"
)

type Kind string

const (
	KindBoss  Kind = "boss"
	KindPhase Kind = "phase"
)

// MaxLeadSeconds bounds how far ahead of an event a reminder may fire.
const MaxLeadSeconds = 3600

// MessageRef points at a delivered notification so it can be deleted later.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

func (r MessageRef) IsZero() bool { return r.ChatID == 0 && r.MessageID == 0 }

// Reminder is one user's request to be notified ahead of an event.
//
// Group and MapName are only set for KindPhase.
type Reminder struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Group       string `json:"group,omitempty"`
	MapName     string `json:"map_name,omitempty"`
	LeadSeconds int    `json:"lead_seconds"`

	LastReminded *time.Time  `json:"last_reminded,omitempty"`
	LastMessage  *MessageRef `json:"last_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (r Reminder) Lead() time.Duration { return time.Duration(r.LeadSeconds) * time.Second }

// Clone returns a deep copy so callers never share the nullable fields.
func (r Reminder) Clone() Reminder {
	out := r
	if r.LastReminded != nil {
		t := *r.LastReminded
		out.LastReminded = &t
	}
	if r.LastMessage != nil {
		m := *r.LastMessage
		out.LastMessage = &m
	}
	return out
}

// Acknowledged reports whether the reminder has fired at least once.
func (r Reminder) Acknowledged() bool { return r.LastReminded != nil }

// User is the per-owner document holding an unordered reminder collection.
type User struct {
	OwnerID   int64      `json:"owner_id"`
	Reminders []Reminder `json:"reminders"`
}

// Find returns the reminder with the given ID.
func (u User) Find(id string) (Reminder, bool) {
	id = strings.TrimSpace(id)
	for _, r := range u.Reminders {
		if r.ID == id {
			return r, true
		}
	}
	return Reminder{}, false
}

func (u User) Clone() User {
	out := User{OwnerID: u.OwnerID}
	if len(u.Reminders) > 0 {
		out.Reminders = make([]Reminder, len(u.Reminders))
		for i, r := range u.Reminders {
			out.Reminders[i] = r.Clone()
		}
	}
	return out
}
