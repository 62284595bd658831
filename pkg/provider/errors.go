package provider

import (
	"errors"
	"fmt"
)

// Failure classes for backend calls. Callers match them with errors.Is;
// none of them are retried inside the gateway.
var (
	ErrUnavailable = errors.New("provider unavailable")
	ErrTimeout     = errors.New("provider timeout")
	ErrRateLimited = errors.New("provider rate limited")
)

// Error wraps a backend failure with the provider name and its failure
// class. Kind is one of the sentinels above.
type Error struct {
	Provider string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
