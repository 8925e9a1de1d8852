package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/app/database"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	return NewService(NewMemoryStore()), context.Background()
}

func TestRegister(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "Alice@X.com", "Secret1")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.Equal(t, database.RoleUser, user.Role)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "Secret1", user.PasswordHash)
	assert.False(t, user.Locked)
	assert.Zero(t, user.FailedAttempts)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	// Same address with a different case is still a duplicate.
	_, err = svc.Register(ctx, "Mallory", "ALICE@x.com", "Other1")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.Create(ctx, "Alice", "alice@x.com", "Secret1", "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterDuplicateEmailConcurrent(t *testing.T) {
	svc, ctx := newTestService(t)

	const workers = 8
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var created, duplicates int
	for err := range results {
		switch {
		case err == nil:
			created++
		case assert.ErrorIs(t, err, ErrDuplicateEmail):
			duplicates++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, duplicates)
}

func TestAuthenticate(t *testing.T) {
	svc, ctx := newTestService(t)

	registered, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice@x.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotNil(t, user.LastLogin)
	assert.WithinDuration(t, time.Now(), *user.LastLogin, time.Minute)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc, ctx := newTestService(t)

	// Unknown email and wrong password are indistinguishable.
	_, err := svc.Authenticate(ctx, "nobody@x.com", "Secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	stored, err := svc.Store().ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedAttempts)
	assert.False(t, stored.Locked)
}

func TestLockoutThreshold(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	for i := 1; i < LockoutThreshold; i++ {
		_, err := svc.Authenticate(ctx, "alice@x.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}

	// The attempt that reaches the threshold reports the lock.
	_, err = svc.Authenticate(ctx, "alice@x.com", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked)

	stored, err := svc.Store().ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Locked)
	assert.Equal(t, LockoutThreshold, stored.FailedAttempts)

	// Locked accounts reject even the correct password.
	_, err = svc.Authenticate(ctx, "alice@x.com", "Secret1")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLockoutConcurrent(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	const workers = 12
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Authenticate(ctx, "alice@x.com", "wrong")
		}()
	}
	wg.Wait()

	stored, err := svc.Store().ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Locked)
	assert.LessOrEqual(t, stored.FailedAttempts, LockoutThreshold)
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	for i := 0; i < LockoutThreshold-1; i++ {
		svc.Authenticate(ctx, "alice@x.com", "wrong")
	}

	_, err = svc.Authenticate(ctx, "alice@x.com", "Secret1")
	require.NoError(t, err)

	stored, err := svc.Store().ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedAttempts)
	assert.False(t, stored.Locked)
	assert.NotNil(t, stored.LastLogin)
}

func TestAdminUnlock(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	for i := 0; i < LockoutThreshold; i++ {
		svc.Authenticate(ctx, "alice@x.com", "wrong")
	}
	_, err = svc.Authenticate(ctx, "alice@x.com", "Secret1")
	require.ErrorIs(t, err, ErrAccountLocked)

	unlocked, err := svc.AdminUnlock(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)
	assert.Zero(t, unlocked.FailedAttempts)

	_, err = svc.Authenticate(ctx, "alice@x.com", "Secret1")
	assert.NoError(t, err)
}

func TestAdminUnlockNotFound(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.AdminUnlock(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResetFlow(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	token, err := svc.RequestReset(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stored, err := svc.Store().ByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenHash)
	assert.NotEqual(t, token, *stored.ResetTokenHash)

	reset, err := svc.ConsumeReset(ctx, token, "NewSecret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, reset.ID)
	assert.Nil(t, reset.ResetTokenHash)
	assert.Nil(t, reset.ResetTokenExpiry)

	_, err = svc.Authenticate(ctx, "alice@x.com", "NewSecret1")
	assert.NoError(t, err)
	_, err = svc.Authenticate(ctx, "alice@x.com", "Secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResetTokenSingleUse(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	token, err := svc.RequestReset(ctx, "alice@x.com")
	require.NoError(t, err)

	_, err = svc.ConsumeReset(ctx, token, "NewSecret1")
	require.NoError(t, err)

	_, err = svc.ConsumeReset(ctx, token, "OtherSecret1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetTokenExpired(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	token, err := svc.RequestReset(ctx, "alice@x.com")
	require.NoError(t, err)

	// Force the expiry into the past; an expired token behaves exactly like
	// one that never existed.
	stored, err := svc.Store().ByID(ctx, user.ID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	stored.ResetTokenExpiry = &past
	require.NoError(t, svc.Store().Update(ctx, stored))

	_, err = svc.ConsumeReset(ctx, token, "NewSecret1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetUnknownToken(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.ConsumeReset(ctx, "deadbeef", "NewSecret1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestRequestResetUnknownEmail(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.RequestReset(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	svc, ctx := newTestService(t)

	user, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user, "wrong", "NewSecret1")
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = svc.ChangePassword(ctx, user, "Secret1", "NewSecret1")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice@x.com", "NewSecret1")
	assert.NoError(t, err)
}

// Register, fail five logins, unlock, then log in with the right password.
func TestLockoutScenario(t *testing.T) {
	svc, ctx := newTestService(t)

	alice, err := svc.Register(ctx, "Alice", "alice@x.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, database.RoleUser, alice.Role)

	var lastErr error
	for i := 0; i < 5; i++ {
		_, lastErr = svc.Authenticate(ctx, "alice@x.com", "wrong")
	}
	assert.ErrorIs(t, lastErr, ErrAccountLocked)

	_, err = svc.AdminUnlock(ctx, alice.ID)
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice@x.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
}
