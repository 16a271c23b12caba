package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Recoverable statistical errors
	ErrNotEnoughSamples = errors.New("not enough non-null samples")

	// Collaborator contract violations
	ErrProcess = errors.New("check process error")

	// Validation errors raised at context construction
	ErrDatasetValidation = errors.New("dataset validation failed")
	ErrModelValidation   = errors.New("model validation failed")
	ErrValue             = errors.New("invalid value")

	// Capability errors
	ErrNotSupported = errors.New("operation not supported")

	// Static-prediction misuse
	ErrUnseenData = fmt.Errorf("%w: unseen data passed for inference with static predictions", ErrValue)
)

// Error constructors with context
func NewProcessError(property string, reason string) error {
	return fmt.Errorf("%w: property %s: %s", ErrProcess, property, reason)
}

func NewDatasetValidationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrDatasetValidation, reason)
}

func NewModelValidationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrModelValidation, reason)
}

func NewValueError(reason string) error {
	return fmt.Errorf("%w: %s", ErrValue, reason)
}

func NewNotSupportedError(reason string) error {
	return fmt.Errorf("%w: %s", ErrNotSupported, reason)
}

// Error checking helpers
func IsNotEnoughSamples(err error) bool {
	return errors.Is(err, ErrNotEnoughSamples)
}

func IsProcessError(err error) bool {
	return errors.Is(err, ErrProcess)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrDatasetValidation) ||
		errors.Is(err, ErrModelValidation) ||
		errors.Is(err, ErrValue)
}

func IsUnseenDataError(err error) bool {
	return errors.Is(err, ErrUnseenData)
}
