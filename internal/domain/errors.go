package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNotEligible       = errors.New("user is not eligible for this action")
	ErrAlreadyVoted      = errors.New("user has already voted")
	ErrSessionNotVoting  = errors.New("session is not in voting phase")
	ErrValidation        = errors.New("validation failed")

	ErrNotModerator = fmt.Errorf("%w: caller is not the session moderator", ErrNotEligible)
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
