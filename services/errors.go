package services

import (
	"errors"
	"fmt"
)

// Error classes. Every service error wraps exactly one of them so callers can
// classify with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("requested resource not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrForbidden          = fmt.Errorf("%w: operation not allowed for the current user", ErrUnauthorized)
	ErrUserBanned         = fmt.Errorf("%w: user is banned", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid handle or pin", ErrUnauthorized)

	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrTournamentNotFound   = fmt.Errorf("%w: tournament not found", ErrNotFound)
	ErrBracketNotFound      = fmt.Errorf("%w: bracket not found", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("%w: registration not found", ErrNotFound)
	ErrMatchNotFound        = fmt.Errorf("%w: match not found", ErrNotFound)
	ErrBroadcastNotFound    = fmt.Errorf("%w: broadcast not found", ErrNotFound)

	ErrBracketFull                       = fmt.Errorf("%w: bracket is full", ErrConflict)
	ErrAlreadyDecided                    = fmt.Errorf("%w: registration already decided", ErrConflict)
	ErrDuplicateApproved                 = fmt.Errorf("%w: user already approved in this tournament", ErrConflict)
	ErrAlreadyCompleted                  = fmt.Errorf("%w: match already completed", ErrConflict)
	ErrRegistrationNotOpen               = fmt.Errorf("%w: tournament registration is not open", ErrConflict)
	ErrTournamentInvalidStatusTransition = fmt.Errorf("%w: invalid tournament status transition", ErrConflict)
	ErrFixturesExist                     = fmt.Errorf("%w: tournament already has matches", ErrConflict)

	ErrInvalidProof          = fmt.Errorf("%w: invalid payment proof", ErrInvalidInput)
	ErrNegativeScore         = fmt.Errorf("%w: scores must be non-negative", ErrInvalidInput)
	ErrMatchHasBye           = fmt.Errorf("%w: match has an empty slot", ErrInvalidInput)
	ErrInvalidMatch          = fmt.Errorf("%w: invalid match", ErrInvalidInput)
	ErrPlayerNotRegistered   = fmt.Errorf("%w: player has no approved registration in this tournament", ErrInvalidInput)
	ErrInvalidTournament     = fmt.Errorf("%w: invalid tournament", ErrInvalidInput)
	ErrNotLeague             = fmt.Errorf("%w: tournament is not a league", ErrInvalidInput)
	ErrWinnerNotParticipant  = fmt.Errorf("%w: winner has no approved registration in this tournament", ErrInvalidInput)
	ErrWinnerRequired        = fmt.Errorf("%w: a knockout with players needs a winner", ErrInvalidInput)
	ErrInvalidBroadcast      = fmt.Errorf("%w: invalid broadcast", ErrInvalidInput)
	ErrEmptyMessage          = fmt.Errorf("%w: message body is empty", ErrInvalidInput)
	ErrInvalidRole           = fmt.Errorf("%w: invalid role", ErrInvalidInput)
	ErrHandleRequired        = fmt.Errorf("%w: handle is required", ErrInvalidInput)
	ErrCannotChangeOwnerRole = fmt.Errorf("%w: the owner's role cannot be changed", ErrInvalidInput)
)
