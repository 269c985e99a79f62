package errors

import "errors"

var (
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrProposalClosed       = errors.New("proposal voting window is closed")
	ErrProposalStillOpen    = errors.New("proposal voting window is still open")
	ErrVoterNotFound        = errors.New("voter has never been granted credits")
	ErrInsufficientCredits  = errors.New("insufficient voting credits")
	ErrInvalidAmount        = errors.New("amount must be a non-negative integer")
	ErrInvalidIdentity      = errors.New("caller identity is required")
	ErrInvalidProposalInput = errors.New("invalid proposal input")
	ErrConflict             = errors.New("ballot storage conflict")
)
