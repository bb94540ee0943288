package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrMissingDate      = errors.New("date is required")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
	ErrMissingCategory  = errors.New("category is required")
	ErrMissingSource    = errors.New("source is required")
	ErrReasonTooLong    = errors.New("reason too long (max 200 characters)")
	ErrSourceTooLong    = errors.New("source too long (max 200 characters)")
	ErrUnknownKind      = errors.New("kind must be expense or income")
	ErrNotFound         = errors.New("record not found")
	ErrNotSignedIn      = errors.New("not signed in")
	ErrSignInCancelled  = errors.New("sign-in cancelled")
	ErrInsufficientData = errors.New("insufficient data for advice")
	ErrAdviceBusy       = errors.New("advice request already in progress")
	ErrEmptyAdvice      = errors.New("advice service returned no text")
)

// ConfigError lists everything wrong with the backend configuration. It is fatal for the session.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	if len(e.Problems) == 1 {
		return "configuration invalid: " + e.Problems[0]
	}
	return fmt.Sprintf("configuration validation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}

// AuthError is a recoverable sign-in or sign-out failure.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StoreError is a subscription or mutation failure against a collection.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError rejects user input before it reaches the store.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AdviceError covers advice request failures and the no-data precondition.
type AdviceError struct {
	Err error
}

func (e *AdviceError) Error() string {
	return "advice: " + e.Err.Error()
}

func (e *AdviceError) Unwrap() error { return e.Err }
