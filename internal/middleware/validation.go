package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateInputText validates one operator utterance.
func ValidateInputText(text string) error {
	if len(text) == 0 {
		return errors.New("text cannot be empty")
	}
	if len(text) > 4096 {
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a quote session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateCompanyID validates a company ID.
func ValidateCompanyID(id string) error {
	if len(id) == 0 {
		return errors.New("company ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("company ID exceeds maximum length")
	}
	return nil
}

// ValidateStepID validates the shape of a step id for reset requests.
func ValidateStepID(id string) error {
	if len(id) == 0 {
		return errors.New("step cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("step exceeds maximum length")
	}
	return nil
}
