package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gw2bot/internal/domain"
	logx "gw2bot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

const reminderColumns = `id, owner_id, kind, name, grp, map_name, lead_seconds, last_reminded, last_chat_id, last_message_id, created_at`

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, wrapErr("open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapErr("open", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log.With(logx.String("comp", "storage.sqlite"))}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, wrapErr("migrate", err)
	}
	st.log.Debug("sqlite store opened", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Get(ctx context.Context, owner int64) (domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE owner_id = ? ORDER BY created_at, id`, owner)
	if err != nil {
		return domain.User{}, wrapErr("get", err)
	}
	defer rows.Close()

	u := domain.User{OwnerID: owner}
	for rows.Next() {
		_, r, err := scanReminder(rows)
		if err != nil {
			return domain.User{}, wrapErr("get", err)
		}
		u.Reminders = append(u.Reminders, r)
	}
	if err := rows.Err(); err != nil {
		return domain.User{}, wrapErr("get", err)
	}
	return u, nil
}

func (s *sqliteStore) Set(ctx context.Context, owner int64, u Update) (Result, error) {
	if err := u.validate(); err != nil {
		return Result{}, err
	}
	switch u.Op {
	case OpPush:
		r := u.Reminder
		chatID, msgID := refArgs(r.LastMessage)
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO reminders(`+reminderColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			r.ID, owner, string(r.Kind), r.Name, r.Group, r.MapName, r.LeadSeconds,
			timeArg(r.LastReminded), chatID, msgID, r.CreatedAt.UnixNano(),
		)
		if err != nil {
			return Result{}, wrapErr("push", err)
		}
		return Result{Matched: 1, Modified: 1}, nil

	case OpReplace:
		r := u.Reminder
		chatID, msgID := refArgs(r.LastMessage)
		res, err := s.db.ExecContext(ctx,
			`UPDATE reminders SET kind=?, name=?, grp=?, map_name=?, lead_seconds=?,
			 last_reminded=?, last_chat_id=?, last_message_id=?
			 WHERE id = ? AND owner_id = ?`,
			string(r.Kind), r.Name, r.Group, r.MapName, r.LeadSeconds,
			timeArg(r.LastReminded), chatID, msgID, r.ID, owner,
		)
		if err != nil {
			return Result{}, wrapErr("replace", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Result{}, wrapErr("replace", err)
		}
		if n == 0 {
			return Result{}, ErrNotFound
		}
		return Result{Matched: int(n), Modified: int(n)}, nil

	default: // OpPull
		var (
			res sql.Result
			err error
		)
		if u.Match.ReminderID != "" {
			res, err = s.db.ExecContext(ctx,
				`DELETE FROM reminders WHERE owner_id = ? AND id = ?`, owner, u.Match.ReminderID)
		} else {
			ref := u.Match.LastMessage
			res, err = s.db.ExecContext(ctx,
				`DELETE FROM reminders WHERE owner_id = ? AND last_chat_id = ? AND last_message_id = ?`,
				owner, ref.ChatID, ref.MessageID)
		}
		if err != nil {
			return Result{}, wrapErr("pull", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Result{}, wrapErr("pull", err)
		}
		return Result{Matched: int(n), Modified: int(n)}, nil
	}
}

func (s *sqliteStore) Iter(ctx context.Context, collection string, f Filter) iter.Seq2[domain.User, error] {
	if collection != CollectionUsers {
		return errSeq(wrapErr("iter", ErrUnknownCollection))
	}
	// Owners only exist through their reminders, so every owner row set is
	// non-empty and HasReminders needs no extra predicate.
	_ = f

	users, err := s.loadAll(ctx)
	if err != nil {
		return errSeq(wrapErr("iter", err))
	}
	return func(yield func(domain.User, error) bool) {
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				yield(domain.User{}, wrapErr("iter", err))
				return
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}

// loadAll drains the cursor before returning so the single connection is
// free for Get/Set calls issued by the consumer.
func (s *sqliteStore) loadAll(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders ORDER BY owner_id, created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		owner, r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		if n := len(users); n == 0 || users[n-1].OwnerID != owner {
			users = append(users, domain.User{OwnerID: owner})
		}
		last := &users[len(users)-1]
		last.Reminders = append(last.Reminders, r)
	}
	return users, rows.Err()
}

func scanReminder(rows *sql.Rows) (int64, domain.Reminder, error) {
	var (
		r            domain.Reminder
		owner        int64
		kind         string
		lastReminded sql.NullInt64
		lastChat     sql.NullInt64
		lastMsg      sql.NullInt64
		createdAt    int64
	)
	if err := rows.Scan(&r.ID, &owner, &kind, &r.Name, &r.Group, &r.MapName, &r.LeadSeconds,
		&lastReminded, &lastChat, &lastMsg, &createdAt); err != nil {
		return 0, domain.Reminder{}, err
	}
	r.Kind = domain.Kind(kind)
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastReminded.Valid {
		t := time.Unix(0, lastReminded.Int64).UTC()
		r.LastReminded = &t
	}
	if lastChat.Valid && lastMsg.Valid {
		r.LastMessage = &domain.MessageRef{ChatID: lastChat.Int64, MessageID: int(lastMsg.Int64)}
	}
	return owner, r, nil
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func refArgs(ref *domain.MessageRef) (any, any) {
	if ref == nil {
		return nil, nil
	}
	return ref.ChatID, ref.MessageID
}
