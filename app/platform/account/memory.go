package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"authgate/app/database"
)

// memoryStore is a mutex-guarded in-process Store, used by tests and local
// tooling that run without Postgres. It enforces the same invariants as the
// SQL store: unique emails and atomic failure recording.
type memoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]database.User
}

func NewMemoryStore() Store {
	return &memoryStore{users: make(map[uuid.UUID]database.User)}
}

func (s *memoryStore) Create(ctx context.Context, user *database.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	s.users[user.ID] = *user
	return nil
}

func (s *memoryStore) ByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *memoryStore) ByEmail(ctx context.Context, email string) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) ByResetToken(ctx context.Context, tokenHash string, now time.Time) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ResetTokenHash != nil && *user.ResetTokenHash == tokenHash &&
			user.ResetTokenExpiry != nil && user.ResetTokenExpiry.After(now) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) Update(ctx context.Context, user *database.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	s.users[user.ID] = *user
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memoryStore) List(ctx context.Context, filter ListFilter) ([]database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []database.User
	for _, user := range s.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.Locked != nil && user.Locked != *filter.Locked {
			continue
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(users) {
			return nil, nil
		}
		users = users[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(users) {
		users = users[:filter.Limit]
	}
	return users, nil
}

func (s *memoryStore) RecordFailure(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return false, ErrNotFound
	}

	if user.FailedAttempts < LockoutThreshold {
		user.FailedAttempts++
	}
	if user.FailedAttempts >= LockoutThreshold {
		user.Locked = true
	}

	s.users[id] = user
	return user.Locked, nil
}

func (s *memoryStore) RecordSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}

	user.FailedAttempts = 0
	user.Locked = false
	user.LastLogin = &at

	s.users[id] = user
	return nil
}
