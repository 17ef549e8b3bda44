package storage

import (
	"context"
	"errors"
	"iter"
	"strings"

	"gw2bot/internal/domain"
	logx "gw2bot/pkg/logx"
)

// Store is the persistence API used by the reminder service and the
// dispatch loop.
type Store interface {
	// Get returns the owner's document. An owner without reminders yields
	// an empty document, not an error.
	Get(ctx context.Context, owner int64) (domain.User, error)
	Set(ctx context.Context, owner int64, u Update) (Result, error)
	// Iter streams owner documents. Results are snapshotted before the first
	// yield so callers may issue Get/Set while iterating.
	Iter(ctx context.Context, collection string, f Filter) iter.Seq2[domain.User, error]
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "none":
		return nil, ErrDisabled
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func errSeq(err error) iter.Seq2[domain.User, error] {
	return func(yield func(domain.User, error) bool) {
		yield(domain.User{}, err)
	}
}
