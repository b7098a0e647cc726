package service

import (
	"context"
	"errors"
	"sync"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory store.Store with injectable failures.
type memStore struct {
	mu      sync.Mutex
	users   map[string]domain.User
	entries []domain.AuditEntry

	lookupErr error
	appendErr error
}

func newMemStore(users ...domain.User) *memStore {
	s := &memStore{users: make(map[string]domain.User)}
	for _, u := range users {
		s.users[domain.NormalizeIdentifier(u.Identifier)] = u
	}
	return s
}

func (s *memStore) Users() store.Users               { return memUsers{s} }
func (s *memStore) AuditEntries() store.AuditEntries { return memAudit{s} }
func (s *memStore) Close() error                     { return nil }
func (s *memStore) Ping(context.Context) error       { return nil }

func (s *memStore) audit() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.entries...)
}

type memUsers struct{ s *memStore }

func (u memUsers) GetUserByIdentifier(_ context.Context, identifier string) (domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.lookupErr != nil {
		return domain.User{}, u.s.lookupErr
	}
	user, ok := u.s.users[domain.NormalizeIdentifier(identifier)]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return user, nil
}

func (u memUsers) CreateUser(_ context.Context, user domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	key := domain.NormalizeIdentifier(user.Identifier)
	if _, ok := u.s.users[key]; ok {
		return store.ErrAlreadyExists
	}
	u.s.users[key] = user
	return nil
}

func (u memUsers) ListUsers(context.Context) ([]domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make([]domain.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		out = append(out, user)
	}
	return out, nil
}

type memAudit struct{ s *memStore }

func (a memAudit) Append(_ context.Context, e domain.AuditEntry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if a.s.appendErr != nil {
		return a.s.appendErr
	}
	a.s.entries = append(a.s.entries, e)
	return nil
}

func (a memAudit) List(_ context.Context, f store.AuditFilter) ([]domain.AuditEntry, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range a.s.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return f.Tail(out), nil
}
