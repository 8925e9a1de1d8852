package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"

	"authgate/app/auth"
	"authgate/app/config"
	"authgate/app/database"
	"authgate/app/mail"
	"authgate/app/middleware"
	"authgate/app/platform/account"
)

// issueToken signs a bearer token for the user and mirrors it into the token
// cookie with a matching expiry.
func issueToken(c *fiber.Ctx, user *database.User) (string, error) {
	cfg := c.Locals("config").(*config.Config)
	tokens := c.Locals("tokens").(*auth.TokenService)

	token, err := tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieToken,
		Value:    token,
		Expires:  time.Now().Add(tokens.Lifetime()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
	})

	return token, nil
}

func openSession(c *fiber.Ctx, user *database.User) error {
	cfg := c.Locals("config").(*config.Config)
	if cfg.Strategy != auth.StrategySession {
		return nil
	}

	sessions := c.Locals("session_store").(*session.Store)
	sess, err := sessions.Get(c)
	if err != nil {
		return err
	}

	sess.Set("user_id", user.ID.String())
	return sess.Save()
}

func Register(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	type RegisterInput struct {
		Name            string `json:"name" validate:"required,min=2,max=50"`
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,min=6"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	var input RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	// Role is never taken from the request body here. Elevation happens only
	// through admin user management.
	user, err := accounts.Register(c.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Email already in use"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	token, err := issueToken(c, user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
	if err := openSession(c, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": user})
}

func Login(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	type LoginInput struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user, err := accounts.Authenticate(c.Context(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountLocked):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account_locked"})
		case errors.Is(err, account.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid credentials"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	token, err := issueToken(c, user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
	if err := openSession(c, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(fiber.Map{"token": token, "user": user})
}

func Logout(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieToken,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
	})

	if cfg.Strategy == auth.StrategySession {
		sessions := c.Locals("session_store").(*session.Store)
		if sess, err := sessions.Get(c); err == nil {
			sess.Destroy()
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

func GetCurrentUser(c *fiber.Ctx) error {
	user := c.Locals("user").(database.User)

	return c.JSON(user)
}

func UpdateDetails(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)
	user := c.Locals("user").(database.User)

	type UpdateDetailsInput struct {
		Name  string `json:"name" validate:"omitempty,min=2,max=50"`
		Email string `json:"email" validate:"omitempty,email"`
	}

	var input UpdateDetailsInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if input.Name == "" && input.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Nothing to update"})
	}

	if err := accounts.UpdateProfile(c.Context(), &user, input.Name, input.Email); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Email already in use"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(user)
}

func UpdatePassword(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)
	user := c.Locals("user").(database.User)

	type UpdatePasswordInput struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=6,nefield=CurrentPassword"`
	}

	var input UpdatePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	err := accounts.ChangePassword(c.Context(), &user, input.CurrentPassword, input.NewPassword)
	if err != nil {
		if errors.Is(err, account.ErrWrongPassword) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Current password is incorrect"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	token, err := issueToken(c, &user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(fiber.Map{"token": token})
}

func ForgotPassword(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	accounts := c.Locals("accounts").(*account.Service)

	type ForgotPasswordInput struct {
		Email string `json:"email" validate:"required,email"`
	}

	var input ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	// The response is identical whether or not the account exists, so this
	// endpoint cannot be used to enumerate accounts.
	accepted := func() error {
		return c.JSON(fiber.Map{"message": "If the account exists, a reset email has been sent"})
	}

	token, err := accounts.RequestReset(c.Context(), input.Email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			log.Errorf("failed to create reset token: %v", err)
		}
		return accepted()
	}

	resetURL := fmt.Sprintf("%s/resetpassword/%s", cfg.PublicURL, token)

	if cfg.MailgunDomain == "" {
		log.Infof("mail disabled; reset URL for %s: %s", account.NormalizeEmail(input.Email), resetURL)
		return accepted()
	}

	mailer := mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
	if err := mailer.SendPasswordReset(account.NormalizeEmail(input.Email), resetURL); err != nil {
		log.Errorf("failed to send reset email: %v", err)
	}

	return accepted()
}

func ResetPassword(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	type ResetPasswordInput struct {
		Password        string `json:"password" validate:"required,min=6"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	var input ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user, err := accounts.ConsumeReset(c.Context(), c.Params("reset_token"), input.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidResetToken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid or expired reset token"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	token, err := issueToken(c, user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(fiber.Map{"token": token})
}

func GetAccountStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(database.User)

	return c.JSON(fiber.Map{
		"locked":          user.Locked,
		"failed_attempts": user.FailedAttempts,
		"last_login":      user.LastLogin,
	})
}

func UnlockAccount(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid user ID"})
	}

	user, err := accounts.AdminUnlock(c.Context(), userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(user)
}
