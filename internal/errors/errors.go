package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the session packages
var (
	// Session errors
	ErrNoSession         = errors.New("no active session")
	ErrSessionSuperseded = errors.New("session operation superseded")

	// Credential store errors
	ErrKeyRequired = errors.New("key is required")
	ErrStoreClosed = errors.New("credential store closed")

	// Configuration errors
	ErrMissingConfig   = errors.New("missing configuration")
	ErrUnknownProvider = errors.New("unknown identity provider")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
