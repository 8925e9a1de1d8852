package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"authgate/app/config"
	"authgate/app/database"
	"authgate/app/platform/account"
)

func GetAllUsers(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	filter := account.ListFilter{
		Role:   c.Query("role"),
		Limit:  c.QueryInt("limit", 25),
		Offset: c.QueryInt("offset", 0),
	}
	if locked := c.Query("locked"); locked == "true" || locked == "false" {
		value := locked == "true"
		filter.Locked = &value
	}

	users, err := accounts.Store().List(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(fiber.Map{"count": len(users), "data": users})
}

func GetUser(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	user, err := account.UserByIDString(c.Context(), accounts.Store(), c.Params("user_id"))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(user)
}

func CreateUser(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	type CreateUserInput struct {
		Name     string `json:"name" validate:"required,min=2,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Role     string `json:"role" validate:"omitempty,oneof=user administrator"`
	}

	var input CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	if input.Role == "" {
		input.Role = database.RoleUser
	}

	user, err := accounts.Create(c.Context(), input.Name, input.Email, input.Password, input.Role)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Email already in use"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func UpdateUser(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)

	user, err := account.UserByIDString(c.Context(), accounts.Store(), c.Params("user_id"))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	type UpdateUserInput struct {
		Name     string `json:"name" validate:"omitempty,min=2,max=50"`
		Email    string `json:"email" validate:"omitempty,email"`
		Role     string `json:"role" validate:"omitempty,oneof=user administrator"`
		Password string `json:"password" validate:"omitempty,min=6"`
	}

	var input UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid input"})
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	if input.Role != "" {
		user.Role = input.Role
	}

	if err := accounts.UpdateProfile(c.Context(), user, input.Name, input.Email); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Email already in use"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	// Password replacement always re-hashes; there is no change detection.
	if input.Password != "" {
		if err := accounts.SetPassword(c.Context(), user, input.Password); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
		}
	}

	return c.JSON(user)
}

func DeleteUser(c *fiber.Ctx) error {
	accounts := c.Locals("accounts").(*account.Service)
	current := c.Locals("user").(database.User)

	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid user ID"})
	}

	if userID == current.ID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "You cannot delete your own account"})
	}

	if err := accounts.Store().Delete(c.Context(), userID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
