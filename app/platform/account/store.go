package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authgate/app/database"
)

// LockoutThreshold is the number of consecutive failed login attempts that
// locks an account.
const LockoutThreshold = 5

// Store is the persistence boundary for account records. All credential,
// lock and reset state flows through these operations; nothing else writes
// those fields.
type Store interface {
	Create(ctx context.Context, user *database.User) error
	ByID(ctx context.Context, id uuid.UUID) (*database.User, error)
	ByEmail(ctx context.Context, email string) (*database.User, error)
	// ByResetToken locates the account whose stored reset token digest
	// matches and whose expiry lies after now, in a single lookup.
	ByResetToken(ctx context.Context, tokenHash string, now time.Time) (*database.User, error)
	Update(ctx context.Context, user *database.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]database.User, error)

	// RecordFailure applies one failed login attempt as a single atomic
	// update and reports whether the account is locked afterwards. Two
	// concurrent failures must never both observe the pre-lock counter and
	// under-count the lock.
	RecordFailure(ctx context.Context, id uuid.UUID) (bool, error)
	// RecordSuccess clears the attempt counter, clears the lock flag and
	// stamps the last successful login.
	RecordSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ListFilter struct {
	Role   string
	Locked *bool
	Limit  int
	Offset int
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, user *database.User) error {
	result := s.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return result.Error
	}
	return nil
}

func (s *gormStore) ByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	var user database.User
	result := s.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *gormStore) ByEmail(ctx context.Context, email string) (*database.User, error) {
	var user database.User
	result := s.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *gormStore) ByResetToken(ctx context.Context, tokenHash string, now time.Time) (*database.User, error) {
	var user database.User
	result := s.db.WithContext(ctx).First(&user, "reset_token_hash = ? AND reset_token_expiry > ?", tokenHash, now)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *gormStore) Update(ctx context.Context, user *database.User) error {
	result := s.db.WithContext(ctx).Save(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return result.Error
	}
	return nil
}

func (s *gormStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&database.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) List(ctx context.Context, filter ListFilter) ([]database.User, error) {
	query := s.db.WithContext(ctx).Model(&database.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Locked != nil {
		query = query.Where("locked = ?", *filter.Locked)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var users []database.User
	result := query.Offset(filter.Offset).Order("created_at DESC").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

func (s *gormStore) RecordFailure(ctx context.Context, id uuid.UUID) (bool, error) {
	// Single statement so concurrent attempts against the same account
	// cannot both read the pre-lock counter and lose the lock transition.
	var locked *bool
	result := s.db.WithContext(ctx).Raw(`
		UPDATE account.user
		SET failed_attempts = LEAST(failed_attempts + 1, ?),
		    locked = locked OR failed_attempts + 1 >= ?
		WHERE id = ?
		RETURNING locked
	`, LockoutThreshold, LockoutThreshold, id).Scan(&locked)
	if result.Error != nil {
		return false, result.Error
	}
	if locked == nil {
		return false, ErrNotFound
	}
	return *locked, nil
}

func (s *gormStore) RecordSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := s.db.WithContext(ctx).Exec(`
		UPDATE account.user
		SET failed_attempts = 0, locked = false, last_login = ?
		WHERE id = ?
	`, at, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
