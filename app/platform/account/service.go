package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"authgate/app/auth"
	"authgate/app/database"
	"authgate/pkg/utils"
)

// Service owns the account lifecycle: registration, credential verification,
// the lockout state machine and the password reset flow.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Store() Store {
	return s.store
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserByIDString fetches an account by its textual identifier. A value that
// does not parse as a UUID behaves like a missing account.
func UserByIDString(ctx context.Context, store Store, id string) (*database.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return store.ByID(ctx, userID)
}

// Register creates a standard-role account. The requested role is never taken
// from the caller here; elevation happens only through admin user management.
func (s *Service) Register(ctx context.Context, name, email, password string) (*database.User, error) {
	return s.Create(ctx, name, email, password, database.RoleUser)
}

func (s *Service) Create(ctx context.Context, name, email, password, role string) (*database.User, error) {
	if !database.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	email = NormalizeEmail(email)

	if _, err := s.store.ByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user := &database.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: utils.HashPassword(password),
		Role:         role,
		CreatedAt:    time.Now(),
	}

	// The store enforces uniqueness again; the pre-check above only gives a
	// friendlier fast path for the common case.
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies an email/password pair and applies the lockout state
// machine. An unknown email is indistinguishable from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*database.User, error) {
	user, err := s.store.ByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Locked accounts reject before the password is even checked.
	if user.Locked {
		return nil, ErrAccountLocked
	}

	if !utils.VerifyPassword(password, user.PasswordHash) {
		locked, err := s.store.RecordFailure(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.store.RecordSuccess(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.FailedAttempts = 0
	user.Locked = false
	user.LastLogin = &now

	return user, nil
}

// RequestReset generates a reset token, persists its digest and expiry, and
// returns the cleartext exactly once. Delivery is the caller's concern.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.ByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", err
	}

	cleartext, hash, expiry, err := auth.GenerateResetToken()
	if err != nil {
		return "", err
	}

	user.ResetTokenHash = &hash
	user.ResetTokenExpiry = &expiry
	if err := s.store.Update(ctx, user); err != nil {
		return "", err
	}

	return cleartext, nil
}

// ConsumeReset redeems a reset token and sets a new password. The token is
// single use: both reset fields are cleared in the same update.
func (s *Service) ConsumeReset(ctx context.Context, cleartext, newPassword string) (*database.User, error) {
	user, err := s.store.ByResetToken(ctx, auth.HashResetToken(cleartext), time.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}

	s.setPassword(user, newPassword)
	user.ResetTokenHash = nil
	user.ResetTokenExpiry = nil

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, user *database.User, currentPassword, newPassword string) error {
	if !utils.VerifyPassword(currentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	s.setPassword(user, newPassword)
	return s.store.Update(ctx, user)
}

// SetPassword replaces an account's credential without knowledge of the
// current one. Admin user management only.
func (s *Service) SetPassword(ctx context.Context, user *database.User, newPassword string) error {
	s.setPassword(user, newPassword)
	return s.store.Update(ctx, user)
}

func (s *Service) UpdateProfile(ctx context.Context, user *database.User, name, email string) error {
	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = NormalizeEmail(email)
	}
	return s.store.Update(ctx, user)
}

func (s *Service) AdminUnlock(ctx context.Context, id uuid.UUID) (*database.User, error) {
	user, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Locked = false
	user.FailedAttempts = 0
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// setPassword always re-derives the stored hash with a fresh salt, even when
// the plaintext is unchanged.
func (s *Service) setPassword(user *database.User, plaintext string) {
	user.PasswordHash = utils.HashPassword(plaintext)
}
