package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors abort a comparison before any data is touched
	ErrConfiguration = errors.New("invalid comparison configuration")

	// Data errors abort a comparison when no usable input survives intake
	ErrNoUsableData = errors.New("no usable abundance data in any run")

	// Insufficient data for a statistical computation
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// Error constructors with context
func NewConfigurationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, reason)
}

func NewDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrNoUsableData, reason)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrNoUsableData)
}
