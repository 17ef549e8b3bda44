package notifier

import (
	"fmt"
	"time"
)

// ActionUnsubscribe is the inline button kind attached to reminder
// notifications. Its payload is the reminder ID.
const ActionUnsubscribe = "unsub"

type Config struct {
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// Timeout bounds a single adapter call.
	Timeout time.Duration
}

// Notification is one reminder message. When ReminderID is set the message
// carries an Unsubscribe action.
type Notification struct {
	Title      string
	Text       string
	ReminderID string
}

// NotificationEvent is published on the event bus for delivery outcomes.
type NotificationEvent struct {
	Owner      int64     `json:"owner"`
	ReminderID string    `json:"reminder_id,omitempty"`
	MessageID  int       `json:"message_id,omitempty"`
	Attempts   int       `json:"attempts"`
	At         time.Time `json:"at"`
	Error      string    `json:"error,omitempty"`
}

// DeliveryError reports that a notification could not be sent after all
// attempts.
type DeliveryError struct {
	Owner    int64
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %d failed after %d attempt(s): %v", e.Owner, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
