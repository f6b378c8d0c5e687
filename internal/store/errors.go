package store

import "errors"

var (
	// ErrAlreadyRated is returned when a participant already carries an earned reward.
	ErrAlreadyRated = errors.New("participant already rated")
	// ErrNotPending is returned when an instance left the pending state mid-update.
	ErrNotPending = errors.New("instance is not pending")
	// ErrInsufficientBalance is returned when a payout exceeds the child's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)
