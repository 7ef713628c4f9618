package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleNone  UserRole = "none"
	RoleAdmin UserRole = "admin"
	RoleOwner UserRole = "owner"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleNone, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on registrations, results and broadcasts.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleOwner
}

type User struct {
	ID       int       `json:"id" db:"id"`
	Handle   string    `json:"handle" db:"handle"`
	Phone    *string   `json:"phone,omitempty" db:"phone"`
	ChatID   *int64    `json:"-" db:"chat_id"`
	Role     UserRole  `json:"role" db:"role"`
	Banned   bool      `json:"banned" db:"banned"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

func (u *User) HasChat() bool {
	return u != nil && u.ChatID != nil && *u.ChatID != 0
}

// LoginProfile is what a login writes onto the user row.
type LoginProfile struct {
	Handle string
	Phone  *string
	ChatID *int64
}

// NormalizeHandle trims the handle and makes sure it starts with "@".
func NormalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(h, "@") {
		h = "@" + h
	}
	return h
}
