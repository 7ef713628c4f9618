package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Decided reports whether the status is terminal.
func (s RegistrationStatus) Decided() bool {
	return s == RegistrationApproved || s == RegistrationRejected
}

type Registration struct {
	ID              int                `json:"id" db:"id"`
	UserID          int                `json:"user_id" db:"user_id"`
	BracketID       int                `json:"bracket_id" db:"bracket_id"`
	TournamentID    int                `json:"tournament_id" db:"tournament_id"`
	Status          RegistrationStatus `json:"status" db:"status"`
	ProofKey        string             `json:"-" db:"proof_key"`
	TransactionRef  *string            `json:"transaction_ref,omitempty" db:"transaction_ref"`
	RejectionReason *string            `json:"rejection_reason,omitempty" db:"rejection_reason"`
	DecidedBy       *string            `json:"decided_by,omitempty" db:"decided_by"`
	SubmittedAt     time.Time          `json:"submitted_at" db:"submitted_at"`
	DecidedAt       *time.Time         `json:"decided_at,omitempty" db:"decided_at"`

	ProofURL       string         `json:"proof_url,omitempty" db:"-"`
	TournamentType TournamentType `json:"tournament_type,omitempty" db:"-"`
}

// Decision carries who decided a registration and why.
type Decision struct {
	Actor  string
	Reason string
	At     time.Time
}
