package models

import "time"

// UserRole enumerates the roles a user can hold.
type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleTutor   UserRole = "tutor"
	UserRoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleStudent, UserRoleTutor, UserRoleAdmin:
		return true
	}
	return false
}

// UserStatus enumerates account states.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents an account that can own, submit or grade tasks.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      UserRole   `gorm:"size:16;not null;default:student" json:"role"`
	Status    UserStatus `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CanAuthorTasks reports whether the user may create tasks outside a project they tutor.
func (u User) CanAuthorTasks() bool {
	return u.Role == UserRoleTutor || u.Role == UserRoleAdmin
}
