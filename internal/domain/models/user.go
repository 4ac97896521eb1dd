package models

import (
	"net/mail"
	"strings"
	"time"
)

// Role determines a user's fixed capability set
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleTechnician Role = "technician"
)

// ParseRole accepts any letter case
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleSupervisor, RoleTechnician:
		return r, nil
	}
	return "", Validation("unknown role %q", s)
}

// AccountStatus is whether a user may act at all
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// User is an operator of the system. Deactivated, never deleted.
type User struct {
	ID         string        `json:"id" db:"id" bson:"_id"`
	Name       string        `json:"name" db:"name" bson:"name"`
	Email      string        `json:"email" db:"email" bson:"email"`
	Phone      string        `json:"phone" db:"phone" bson:"phone"`
	Role       Role          `json:"role" db:"role" bson:"role"`
	Department string        `json:"department" db:"department" bson:"department"`
	Status     AccountStatus `json:"status" db:"status" bson:"status"`
	LastLogin  *time.Time    `json:"last_login,omitempty" db:"last_login" bson:"last_login,omitempty"`
	Version    int64         `json:"version" db:"version" bson:"version"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	c := *u
	c.LastLogin = cloneTime(u.LastLogin)
	return &c
}

// Active reports whether the account may act
func (u *User) Active() bool {
	return u.Status == AccountActive
}

// ValidateUser checks the user-supplied attributes of an account
func ValidateUser(u *User) error {
	if strings.TrimSpace(u.Name) == "" {
		return Validation("user name is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return Validation("invalid email %q", u.Email)
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	if u.Status != AccountActive && u.Status != AccountInactive {
		return Validation("unknown account status %q", u.Status)
	}
	return nil
}

// UserFilter selects users
type UserFilter struct {
	Role       Role
	Status     AccountStatus
	SearchText string
}

// Matches reports whether the user satisfies the filter
func (f UserFilter) Matches(u *User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.SearchText != "" && !containsFold(u.Name, f.SearchText) && !containsFold(u.Email, f.SearchText) {
		return false
	}
	return true
}
