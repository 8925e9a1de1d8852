package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"

	"authgate/app/auth"
	"authgate/app/config"
	"authgate/app/database"
	"authgate/app/handlers"
	"authgate/app/middleware"
	"authgate/app/platform/account"
	"authgate/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	store := account.NewStore(db)
	accounts := account.NewService(store)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenLifetime())

	sessions := session.New(session.Config{
		Expiration:     24 * time.Hour,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.IsProduction(),
		KeyGenerator: func() string {
			return utils.GenerateRandomString(64)
		},
	})

	app := fiber.New()

	app.Use(compress.New())
	app.Use(helmet.New())
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(healthcheck.New())

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("db", db)
		c.Locals("store", store)
		c.Locals("accounts", accounts)
		c.Locals("tokens", tokens)
		c.Locals("session_store", sessions)
		return c.Next()
	})

	authRequired := middleware.RequireAuth(middleware.ForStrategy(cfg.Strategy))
	adminOnly := middleware.AdminMiddleware

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/forgotpassword", handlers.ForgotPassword)
	authGroup.Put("/resetpassword/:reset_token", handlers.ResetPassword)

	authGroup.Get("/logout", authRequired, handlers.Logout)
	authGroup.Get("/me", authRequired, handlers.GetCurrentUser)
	authGroup.Put("/updatedetails", authRequired, handlers.UpdateDetails)
	authGroup.Put("/updatepassword", authRequired, handlers.UpdatePassword)
	authGroup.Get("/status", authRequired, handlers.GetAccountStatus)
	authGroup.Put("/unlock/:user_id", authRequired, adminOnly, handlers.UnlockAccount)

	users := api.Group("/users", authRequired, adminOnly)
	users.Get("/", handlers.GetAllUsers)
	users.Post("/", handlers.CreateUser)
	users.Get("/:user_id", handlers.GetUser)
	users.Put("/:user_id", handlers.UpdateUser)
	users.Delete("/:user_id", handlers.DeleteUser)

	app.Use(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	log.Fatal(app.Listen(fmt.Sprintf(":%d", cfg.ServerPort)))
}
