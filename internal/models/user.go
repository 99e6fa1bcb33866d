// Package models contains data structures for the forum's domain entities.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a forum member. Its ID is issued by the identity layer at signup
// and is not a database sequence.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Roles     []Role    `gorm:"many2many:user_roles;" json:"roles"`
	Version   uint      `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleNames returns the names of the roles assigned to the user.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Role is a named permission group.
type Role struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;not null;size:64" json:"name"`
}

// UserRole is a row of the user_roles join table.
type UserRole struct {
	UserID string    `gorm:"primaryKey;size:64"`
	RoleID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// TableName returns the join table shared with User.Roles.
func (UserRole) TableName() string {
	return "user_roles"
}

// Built-in role names.
const (
	RoleUser      = "User"
	RoleModerator = "Moderator"
	RoleAdmin     = "Admin"
)

// BuiltInRoles are created at bootstrap so a fresh database is usable.
var BuiltInRoles = []string{RoleUser, RoleModerator, RoleAdmin}

func (r *Role) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
