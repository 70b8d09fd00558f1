package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	apperrors "github.com/jrsteele09/go-learner-session/internal/errors"
)

// Kind is the closed set of failure categories a provider error maps to.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindUnconfirmed
	KindInvalidCredential
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindConflict:
		return "conflict error"
	case KindUnconfirmed:
		return "unconfirmed account"
	case KindInvalidCredential:
		return "invalid credential"
	case KindNetwork:
		return "network error"
	}
	return "unknown provider error"
}

// Error is a provider failure normalised to a Kind. Message is the
// provider's own text and is safe to show to the user.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrUnconfirmed       = &Error{Kind: KindUnconfirmed}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrUnknownProvider   = &Error{Kind: KindUnknown}
)

func NewError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("[identity %s] %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Message == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify maps an arbitrary provider error onto the closed taxonomy.
// Errors already classified keep their kind, "no session" passes through
// untouched and transport failures become KindNetwork.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrNoSession) {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op != "" {
			return err
		}
		classified := *e
		classified.Op = op
		return &classified
	}
	if isNetworkError(err) {
		return NewError(KindNetwork, op, "Network Error", err)
	}
	return NewError(KindUnknown, op, err.Error(), err)
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
