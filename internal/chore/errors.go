package chore

import (
	"errors"

	"github.com/encero/chores-tracker-sub000/internal/store"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotScheduled   = errors.New("schedule does not fire on this date")
	ErrNotParticipant = errors.New("child is not a participant of this chore")
	ErrInvalidEffort  = errors.New("percentages must total 100%")
	ErrInvalidInput   = errors.New("invalid input")

	// Aliases of the store sentinels; errors.Is matches either source.
	ErrNotPending   = store.ErrNotPending
	ErrAlreadyRated = store.ErrAlreadyRated
)
