package models

import "time"

type BroadcastTarget string

const (
	TargetAll      BroadcastTarget = "all"
	TargetKnockout BroadcastTarget = "knockout"
	TargetLeague   BroadcastTarget = "league"
	TargetSpecific BroadcastTarget = "specific"
)

func (t BroadcastTarget) Valid() bool {
	switch t {
	case TargetAll, TargetKnockout, TargetLeague, TargetSpecific:
		return true
	}
	return false
}

type Broadcast struct {
	ID           int             `json:"id" db:"id"`
	AuthorID     int             `json:"author_id" db:"author_id"`
	Target       BroadcastTarget `json:"target" db:"target"`
	TargetUserID *int            `json:"target_user_id,omitempty" db:"target_user_id"`
	Body         string          `json:"body" db:"body"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// UserBroadcast is the per-recipient delivery record of a Broadcast.
type UserBroadcast struct {
	BroadcastID int        `json:"broadcast_id" db:"broadcast_id"`
	UserID      int        `json:"user_id" db:"user_id"`
	ReadAt      *time.Time `json:"read_at,omitempty" db:"read_at"`

	Body      string          `json:"body,omitempty" db:"-"`
	Target    BroadcastTarget `json:"target,omitempty" db:"-"`
	CreatedAt time.Time       `json:"created_at" db:"-"`
}
