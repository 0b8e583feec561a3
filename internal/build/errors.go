package build

import "errors"

// Errors for build validation and state transitions.
var (
	ErrProjectNameRequired = errors.New("project name is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrNotFound            = errors.New("build not found")
	ErrUnknownPhase        = errors.New("unknown phase")
	ErrInvalidTransition   = errors.New("invalid phase transition")
)
