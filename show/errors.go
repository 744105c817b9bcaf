package show

import (
	"errors"
)

// Show engine errors.
var (
	// Registration errors
	ErrDuplicateName         = errors.New("show or pool name already registered")
	ErrInvalidShowDefinition = errors.New("invalid show definition")

	// Lookup errors
	ErrShowNotFound = errors.New("show not found")

	// Pool errors
	ErrEmptyPool         = errors.New("show pool has no members")
	ErrInvalidPoolPolicy = errors.New("invalid show pool policy")
	ErrInvalidPoolMember = errors.New("invalid show pool member")

	// Config validation errors
	ErrInvalidShowConfig  = errors.New("invalid show config")
	ErrMissingShowName    = errors.New("show name is required")
	ErrInvalidSpeed       = errors.New("speed must be positive")
	ErrInvalidLoops       = errors.New("loops must be -1 or a non-negative integer")
	ErrInvalidSyncMS      = errors.New("sync_ms must not be negative")
	ErrUnknownConfigField = errors.New("unknown show config field")
	ErrConfigFieldType    = errors.New("show config field has wrong type")
	ErrShowNameMismatch   = errors.New("updated config targets a different show")

	// Player errors
	ErrPlayerStopTimeout = errors.New("show player shutdown timed out")
)
