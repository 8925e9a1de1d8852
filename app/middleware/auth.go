package middleware

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"authgate/app/auth"
	"authgate/app/database"
	"authgate/app/platform/account"
)

const CookieToken = "token"

var errUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves a request's credential material to an account.
// Every variant checks the lock state before considering the account
// authenticated.
type Authenticator interface {
	Authenticate(c *fiber.Ctx) (*database.User, error)
	Provider() string
}

// ForStrategy resolves the Authenticator for the configured strategy once,
// at startup.
func ForStrategy(strategy auth.Strategy) Authenticator {
	switch strategy {
	case auth.StrategySession:
		return &SessionAuthenticator{}
	case auth.StrategyBasic:
		return &BasicAuthenticator{}
	default:
		return &TokenAuthenticator{}
	}
}

// RequireAuth guards a route with the given authenticator and attaches the
// resolved user to the request.
func RequireAuth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := a.Authenticate(c)
		if err != nil {
			if errors.Is(err, account.ErrAccountLocked) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account_locked"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
		}

		recordAuthSession(c, a.Provider(), user)

		c.Locals("auth_provider", a.Provider())
		c.Locals("user", *user)

		return c.Next()
	}
}

type TokenAuthenticator struct{}

func (a *TokenAuthenticator) Provider() string { return "token" }

func (a *TokenAuthenticator) Authenticate(c *fiber.Ctx) (*database.User, error) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		tokenString = c.Cookies(CookieToken)
	}
	if tokenString == "" {
		return nil, errUnauthenticated
	}

	tokens := c.Locals("tokens").(*auth.TokenService)
	claims, err := tokens.Verify(tokenString)
	if err != nil {
		return nil, errUnauthenticated
	}

	// A valid token alone does not imply current authorization: the account
	// must still exist and must not be locked.
	store := c.Locals("store").(account.Store)
	user, err := store.ByID(c.Context(), claims.UserID)
	if err != nil {
		return nil, errUnauthenticated
	}
	if user.Locked {
		return nil, account.ErrAccountLocked
	}

	return user, nil
}

type SessionAuthenticator struct{}

func (a *SessionAuthenticator) Provider() string { return "session" }

func (a *SessionAuthenticator) Authenticate(c *fiber.Ctx) (*database.User, error) {
	sessions := c.Locals("session_store").(*session.Store)

	sess, err := sessions.Get(c)
	if err != nil {
		return nil, errUnauthenticated
	}

	userID, ok := sess.Get("user_id").(string)
	if !ok || userID == "" {
		return nil, errUnauthenticated
	}

	store := c.Locals("store").(account.Store)
	user, err := account.UserByIDString(c.Context(), store, userID)
	if err != nil {
		sess.Destroy()
		return nil, errUnauthenticated
	}
	if user.Locked {
		sess.Destroy()
		return nil, account.ErrAccountLocked
	}

	return user, nil
}

type BasicAuthenticator struct{}

func (a *BasicAuthenticator) Provider() string { return "basic" }

func (a *BasicAuthenticator) Authenticate(c *fiber.Ctx) (*database.User, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(authHeader, "Basic ") {
		return nil, errUnauthenticated
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return nil, errUnauthenticated
	}

	email, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, errUnauthenticated
	}

	// Full credential verification per request; the account service applies
	// the lockout policy.
	accounts := c.Locals("accounts").(*account.Service)
	user, err := accounts.Authenticate(c.Context(), email, password)
	if err != nil {
		if errors.Is(err, account.ErrAccountLocked) {
			return nil, err
		}
		return nil, errUnauthenticated
	}

	return user, nil
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func recordAuthSession(c *fiber.Ctx, provider string, user *database.User) {
	db, ok := c.Locals("db").(*gorm.DB)
	if !ok {
		return
	}

	ip := c.IP()
	if len(c.IPs()) > 1 {
		ip = c.IPs()[0]
	}

	db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"ip_address", "updated_at"}),
	}).Create(&database.AuthSession{
		UserID:    user.ID,
		Provider:  provider,
		IPAddress: ip,
		UpdatedAt: time.Now(),
	})
}
