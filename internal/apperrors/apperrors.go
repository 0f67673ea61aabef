package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidRequest = errors.New("invalid request body")
	ErrValidation     = errors.New("validation failed")

	// ErrNotActive guards completion idempotency: a round whose effects were
	// already applied is inactive and must never be reprocessed.
	ErrNotActive   = errors.New("evaluation round is not active")
	ErrNoConsensus = errors.New("evaluation round has no consensus set")
)

type RoundNotActiveError struct{ RoundID string }

func (e *RoundNotActiveError) Error() string {
	return fmt.Sprintf("evaluation round '%s' is not active", e.RoundID)
}
func (e *RoundNotActiveError) Is(target error) bool { return target == ErrNotActive }

type NoConsensusError struct{ RoundID string }

func (e *NoConsensusError) Error() string {
	return fmt.Sprintf("evaluation round '%s' has no consensus set", e.RoundID)
}
func (e *NoConsensusError) Is(target error) bool { return target == ErrNoConsensus }

type InvalidModeError struct{ Mode string }

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("'%s' is not a valid game mode", e.Mode)
}
func (e *InvalidModeError) Is(target error) bool { return target == ErrValidation }

type InvalidConsensusError struct{ Consensus string }

func (e *InvalidConsensusError) Error() string {
	return fmt.Sprintf("'%s' is not a valid consensus", e.Consensus)
}
func (e *InvalidConsensusError) Is(target error) bool { return target == ErrValidation }
