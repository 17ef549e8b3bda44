package storage

import (
	"errors"
	"fmt"
	"time"

	"gw2bot/internal/domain"
)

var (
	ErrDisabled          = errors.New("storage disabled")
	ErrNotFound          = errors.New("storage: reminder not found")
	ErrUnknownCollection = errors.New("storage: unknown collection")
	ErrInvalidUpdate     = errors.New("storage: invalid update")
)

// CollectionUsers is the only collection: one document per owner.
const CollectionUsers = "users"

// Config configures storage.
//
// Driver values:
//   - "memory" (default when empty)
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

type Op int

const (
	// OpReplace overwrites the reminder with the same ID.
	OpReplace Op = iota + 1
	// OpPush appends a reminder to the owner's collection.
	OpPush
	// OpPull removes every reminder matching Update.Match.
	OpPull
)

func (o Op) String() string {
	switch o {
	case OpReplace:
		return "replace"
	case OpPush:
		return "push"
	case OpPull:
		return "pull"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Match selects reminders for OpPull. ReminderID wins when both are set.
type Match struct {
	ReminderID  string
	LastMessage *domain.MessageRef
}

func (m Match) IsZero() bool { return m.ReminderID == "" && m.LastMessage == nil }

func (m Match) matches(r domain.Reminder) bool {
	if m.ReminderID != "" {
		return r.ID == m.ReminderID
	}
	if m.LastMessage != nil {
		return r.LastMessage != nil && *r.LastMessage == *m.LastMessage
	}
	return false
}

type Update struct {
	Op       Op
	Reminder domain.Reminder
	Match    Match
}

func (u Update) validate() error {
	switch u.Op {
	case OpReplace, OpPush:
		if u.Reminder.ID == "" {
			return fmt.Errorf("%w: %s without reminder id", ErrInvalidUpdate, u.Op)
		}
	case OpPull:
		if u.Match.IsZero() {
			return fmt.Errorf("%w: pull without match", ErrInvalidUpdate)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidUpdate, u.Op)
	}
	return nil
}

type Result struct {
	Matched  int
	Modified int
}

// Filter narrows Iter. HasReminders skips owners with an empty collection.
type Filter struct {
	HasReminders bool
}

// StoreError wraps a driver failure. Callers log it and retry later.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "storage " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
