package database

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser          = "user"
	RoleAdministrator = "administrator"
)

// ValidRole reports whether the role is part of the closed role set.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdministrator
}

// User represents a user account in the system
type User struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name             string     `json:"name"`
	Email            string     `json:"email" gorm:"uniqueIndex"`
	PasswordHash     string     `json:"-"`
	Role             string     `json:"role" gorm:"default:'user'"`
	Locked           bool       `json:"-" gorm:"default:false"`
	FailedAttempts   int        `json:"-" gorm:"default:0"`
	ResetTokenHash   *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	LastLogin        *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at" gorm:"default:now()"`
}

// TableName specifies the database table name for the User model
func (u *User) TableName() string {
	return "account.user"
}

// AuthSession records the last authenticated request per user and provider.
type AuthSession struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Provider  string    `json:"provider" gorm:"primaryKey"`
	IPAddress string    `json:"ip_address"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *AuthSession) TableName() string {
	return "account.auth_session"
}
