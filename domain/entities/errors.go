package entities

import (
	"errors"
	"fmt"
)

// Error kinds returned by raffle operations. Callers classify with errors.Is.
var (
	ErrRoundNotFound      = errors.New("round not found")
	ErrRoundClosed        = errors.New("round is not open for ticket sales")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNotReady           = errors.New("round is not ready to close")
	ErrRandomnessPending  = errors.New("randomness not yet delivered")
	ErrAlreadyResolved    = errors.New("round winner already resolved")
	ErrNotWinner          = errors.New("claimant is not the round winner")
	ErrAlreadyClaimed     = errors.New("prize already claimed")
	ErrRoundNotCompleted  = errors.New("round is not completed")
	ErrRoundInProgress    = errors.New("a round is still in progress")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidRandomValue = errors.New("invalid random value")

	// ErrPriceMismatch is an InvalidAmount raised when the offered unit price
	// differs from the round's ticket price
	ErrPriceMismatch = fmt.Errorf("%w: unit price does not match ticket price", ErrInvalidAmount)
)

// RoundError attaches the round id to an error kind
type RoundError struct {
	RoundID int64
	Kind    error
	Detail  string
}

// Error implements the error interface
func (e *RoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("round %d: %v: %s", e.RoundID, e.Kind, e.Detail)
	}
	return fmt.Sprintf("round %d: %v", e.RoundID, e.Kind)
}

// Unwrap returns the error kind so errors.Is matches the sentinel
func (e *RoundError) Unwrap() error {
	return e.Kind
}

// NewRoundError creates a RoundError with an optional formatted detail
func NewRoundError(roundID int64, kind error, format string, args ...any) *RoundError {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &RoundError{RoundID: roundID, Kind: kind, Detail: detail}
}

// ErrorKind returns a short machine-readable name for a known error kind
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrRoundNotFound):
		return "not_found"
	case errors.Is(err, ErrRoundClosed):
		return "round_closed"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrRandomnessPending):
		return "randomness_pending"
	case errors.Is(err, ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, ErrNotWinner):
		return "not_winner"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrRoundNotCompleted):
		return "round_not_completed"
	case errors.Is(err, ErrRoundInProgress):
		return "round_in_progress"
	case errors.Is(err, ErrInvalidAccount):
		return "invalid_account"
	case errors.Is(err, ErrInvalidRandomValue):
		return "invalid_random_value"
	default:
		return "internal"
	}
}
