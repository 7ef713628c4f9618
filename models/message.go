package models

import "time"

type MessageKind string

const (
	MessageUserToAdmin MessageKind = "user_to_admin"
	MessageAdminToUser MessageKind = "admin_to_user"
)

type Message struct {
	ID         int         `json:"id" db:"id"`
	FromUserID int         `json:"from_user_id" db:"from_user_id"`
	ToUserID   *int        `json:"to_user_id,omitempty" db:"to_user_id"`
	Kind       MessageKind `json:"kind" db:"kind"`
	Body       string      `json:"body" db:"body"`
	Read       bool        `json:"read" db:"read"`
	SentAt     time.Time   `json:"sent_at" db:"sent_at"`

	FromHandle string `json:"from_handle,omitempty" db:"-"`
}

// AdminLog is one row of the admin audit trail.
type AdminLog struct {
	ID        int       `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
