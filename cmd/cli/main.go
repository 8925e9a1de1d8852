package main

import (
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"authgate/app/database"
	"authgate/pkg/utils"
)

var (
	apiBaseURL string
	apiToken   string
)

type ResponseError struct {
	Message string `json:"message"`
}

type authResponse struct {
	Token string        `json:"token"`
	User  database.User `json:"user"`
}

type userListResponse struct {
	Count int             `json:"count"`
	Data  []database.User `json:"data"`
}

var apiServiceBase = func() *resty.Client {
	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetHeader("Accept", "application/json").
		SetError(&ResponseError{}).
		OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				if e, ok := resp.Error().(*ResponseError); ok && e.Message != "" {
					return fmt.Errorf("%s", e.Message)
				}
				return fmt.Errorf("request failed: %s", resp.Status())
			}
			return nil
		})

	if apiToken != "" {
		client.SetAuthToken(apiToken)
	}
	return client
}

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "Authgate CLI",
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Sign in and print a bearer token",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var result authResponse
		_, err := apiServiceBase().R().
			SetBody(map[string]string{
				"email":    args[0],
				"password": args[1],
			}).
			SetResult(&result).
			Post("/auth/login")
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		fmt.Println("User ID :", result.User.ID)
		fmt.Println("Role    :", result.User.Role)
		fmt.Println("Token   :", result.Token)
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <name> <email>",
	Short: "Create a new user with a generated password",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		password := utils.GenerateRandomString(12)

		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"name":     args[0],
				"email":    args[1],
				"password": password,
			}).
			SetResult(&database.User{}).
			Post("/users/")
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		user := resp.Result().(*database.User)

		fmt.Println("User ID  :", user.ID)
		fmt.Println("Email    :", user.Email)
		fmt.Println("Role     :", user.Role)
		fmt.Println("Password :", password)
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Run: func(cmd *cobra.Command, args []string) {
		var result userListResponse
		_, err := apiServiceBase().R().
			SetResult(&result).
			Get("/users/")
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		for _, user := range result.Data {
			fmt.Printf("%s  %-30s %s\n", user.ID, user.Email, user.Role)
		}
		fmt.Println("Total:", result.Count)
	},
}

var userUnlockCmd = &cobra.Command{
	Use:   "unlock <user_id>",
	Short: "Unlock a locked user account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetResult(&database.User{}).
			Put(fmt.Sprintf("/auth/unlock/%s", args[0]))
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		user := resp.Result().(*database.User)

		fmt.Println("User ID :", user.ID)
		fmt.Println("Email   :", user.Email)
		fmt.Println("Unlocked")
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <user_id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, err := apiServiceBase().R().
			Delete(fmt.Sprintf("/users/%s", args[0]))
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		fmt.Println("Deleted")
	},
}

func main() {
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userUnlockCmd)
	userCmd.AddCommand(userDeleteCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(userCmd)

	rootCmd.PersistentFlags().StringVarP(&apiBaseURL, "api", "a", "http://localhost:3000/api", "API base URL")
	rootCmd.PersistentFlags().StringVarP(&apiToken, "token", "t", "", "Bearer token")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
