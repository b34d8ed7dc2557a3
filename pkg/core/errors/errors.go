// Package errors provides ossuary's error taxonomy (spec §7) and
// convenience wrappers around the standard errors package.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per taxonomy kind (spec §7).
var (
	// ErrInputError is an unknown ecosystem, malformed name, or
	// unparseable cutoff. Surfaced to the caller; never cached.
	ErrInputError = errors.New("input error")

	// ErrUnresolvedRepo means no upstream repo URL could be found, or it
	// pointed at an unsupported forge. Optionally cached as a null
	// record for 1 hour to avoid stampedes.
	ErrUnresolvedRepo = errors.New("unresolved repository")

	// ErrTransientCollectFailure is a network, 5xx, or backoff-exhausted
	// rate-limit failure. Triggers degraded scoring when at least one of
	// git/forge succeeded; otherwise propagates.
	ErrTransientCollectFailure = errors.New("transient collection failure")

	// ErrRepoGone is a deleted/DMCA'd/403-after-known-good repository.
	// Terminal; cached for 24 hours.
	ErrRepoGone = errors.New("repository gone")

	// ErrInternalInvariantViolated aborts the current task. Never cached;
	// surfaced as fatal.
	ErrInternalInvariantViolated = errors.New("internal invariant violated")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is a convenience wrapper around errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// Wrap wraps err with a message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// InputError builds an ErrInputError with context.
func InputError(what string) error {
	return fmt.Errorf("%s: %w", what, ErrInputError)
}

// UnresolvedRepoError builds an ErrUnresolvedRepo with context.
func UnresolvedRepoError(ecosystem, name string) error {
	return fmt.Errorf("%s:%s: no upstream repository found: %w", ecosystem, name, ErrUnresolvedRepo)
}

// TransientCollectFailureError builds an ErrTransientCollectFailure with context.
func TransientCollectFailureError(op string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrTransientCollectFailure, err)
	}
	return fmt.Errorf("%s: %w", op, ErrTransientCollectFailure)
}

// RepoGoneError builds an ErrRepoGone with context.
func RepoGoneError(repo string) error {
	return fmt.Errorf("%s: %w", repo, ErrRepoGone)
}

// InvariantError builds an ErrInternalInvariantViolated with context.
func InvariantError(what string) error {
	return fmt.Errorf("%s: %w", what, ErrInternalInvariantViolated)
}

// IsInputError reports whether err is (or wraps) ErrInputError.
func IsInputError(err error) bool { return errors.Is(err, ErrInputError) }

// IsUnresolvedRepo reports whether err is (or wraps) ErrUnresolvedRepo.
func IsUnresolvedRepo(err error) bool { return errors.Is(err, ErrUnresolvedRepo) }

// IsTransientCollectFailure reports whether err is (or wraps) ErrTransientCollectFailure.
func IsTransientCollectFailure(err error) bool { return errors.Is(err, ErrTransientCollectFailure) }

// IsRepoGone reports whether err is (or wraps) ErrRepoGone.
func IsRepoGone(err error) bool { return errors.Is(err, ErrRepoGone) }

// IsInvariantViolated reports whether err is (or wraps) ErrInternalInvariantViolated.
func IsInvariantViolated(err error) bool { return errors.Is(err, ErrInternalInvariantViolated) }

// ExitCode maps an error to the CLI exit code documented in spec §6:
// 0 success, 1 unresolved repo, 2 transient failure, 3 input error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsUnresolvedRepo(err):
		return 1
	case IsInputError(err):
		return 3
	case IsTransientCollectFailure(err):
		return 2
	default:
		return 2
	}
}

// Join combines multiple errors into a single error.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// MultiError aggregates errors raised by independent branches, e.g. the
// git and forge collectors running concurrently under the orchestrator.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v (and %d more)", len(m.Errors), m.Errors[0], len(m.Errors)-1)
	}
}

// Add appends err to the MultiError if non-nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors reports whether any error has been added.
func (m *MultiError) HasErrors() bool { return len(m.Errors) > 0 }

// ErrorOrNil returns nil if no errors were added, else the MultiError.
func (m *MultiError) ErrorOrNil() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// NewMultiError creates a new, empty MultiError.
func NewMultiError() *MultiError {
	return &MultiError{}
}
