// Package errkind is the closed error taxonomy shared by the query path and the
// inference worker. Adapters classify failures at the boundary so callers never
// match on error strings.
package errkind

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindUnavailable     Kind = "unavailable"
	KindSchemaViolation Kind = "schema_violation"
	KindInternal        Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "unknown error"
	}
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s (op=%s kind=%s): %v", e.Message, e.Op, e.Kind, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s (op=%s kind=%s)", e.Message, e.Op, e.Kind)
	case e.Cause != nil:
		return fmt.Sprintf("%s failed (kind=%s): %v", e.Op, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%s failed (kind=%s)", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func New(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

func NotFound(op, msg string) error { return New(KindNotFound, op, msg, nil) }

func InvalidInput(op, msg string) error { return New(KindInvalidInput, op, msg, nil) }

func Unavailable(op string, cause error) error {
	return New(KindUnavailable, op, "dependency unavailable", cause)
}

func SchemaViolation(op, msg string, cause error) error {
	return New(KindSchemaViolation, op, msg, cause)
}

func Internal(op string, cause error) error { return New(KindInternal, op, "", cause) }

// KindOf reports the kind of the outermost classified error in the chain.
// Bare network and deadline errors count as unavailable; everything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ke *Error
	if errors.As(err, &ke) && ke.Kind != "" {
		return ke.Kind
	}
	if IsTransient(err) {
		return KindUnavailable
	}
	return KindInternal
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// IsTransient matches connection-level failures that carry no classification yet.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
