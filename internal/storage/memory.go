package storage

import (
	"context"
	"iter"
	"sort"
	"sync"

	"gw2bot/internal/domain"
)

type memoryStore struct {
	mu     sync.RWMutex
	owners map[int64][]domain.Reminder
	closed bool
}

// NewMemory returns a process-local store.
func NewMemory() Store {
	return &memoryStore{owners: map[int64][]domain.Reminder{}}
}

func (s *memoryStore) Get(ctx context.Context, owner int64) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, wrapErr("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.User{}, wrapErr("get", ErrDisabled)
	}
	return domain.User{OwnerID: owner, Reminders: s.owners[owner]}.Clone(), nil
}

func (s *memoryStore) Set(ctx context.Context, owner int64, u Update) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, wrapErr("set", err)
	}
	if err := u.validate(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, wrapErr("set", ErrDisabled)
	}

	list := s.owners[owner]
	switch u.Op {
	case OpPush:
		for _, r := range list {
			if r.ID == u.Reminder.ID {
				return Result{}, wrapErr("push", ErrInvalidUpdate)
			}
		}
		s.owners[owner] = append(list, u.Reminder.Clone())
		return Result{Matched: 1, Modified: 1}, nil

	case OpReplace:
		for i, r := range list {
			if r.ID == u.Reminder.ID {
				list[i] = u.Reminder.Clone()
				return Result{Matched: 1, Modified: 1}, nil
			}
		}
		return Result{}, ErrNotFound

	default: // OpPull
		kept := list[:0:0]
		removed := 0
		for _, r := range list {
			if u.Match.matches(r) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if removed == 0 {
			return Result{}, nil
		}
		if len(kept) == 0 {
			delete(s.owners, owner)
		} else {
			s.owners[owner] = kept
		}
		return Result{Matched: removed, Modified: removed}, nil
	}
}

func (s *memoryStore) Iter(ctx context.Context, collection string, f Filter) iter.Seq2[domain.User, error] {
	if collection != CollectionUsers {
		return errSeq(wrapErr("iter", ErrUnknownCollection))
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errSeq(wrapErr("iter", ErrDisabled))
	}
	ids := make([]int64, 0, len(s.owners))
	for id, list := range s.owners {
		if f.HasReminders && len(list) == 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, domain.User{OwnerID: id, Reminders: s.owners[id]}.Clone())
	}
	s.mu.RUnlock()

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

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
