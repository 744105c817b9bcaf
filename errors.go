package showcontrol

import (
	"errors"
)

// Module-specific errors for the show control module.
var (
	// Configuration errors
	ErrInvalidDefaultSyncMS = errors.New("defaultShowSyncMS must not be negative")
	ErrInvalidTickInterval  = errors.New("tickInterval must be positive")
	ErrInvalidCatchUpPolicy = errors.New("invalid catch-up policy")
	ErrInvalidSchedule      = errors.New("invalid show schedule")

	// Runtime errors
	ErrModuleNotInitialized      = errors.New("show control module not initialized")
	ErrNoSubjectForEventEmission = errors.New("no subject available for event emission")
)
