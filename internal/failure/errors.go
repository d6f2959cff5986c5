// Package failure classifies the errors a brief run can end with.
package failure

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Kind identifies which step of a run failed and how.
type Kind string

const (
	DataAccess       Kind = "data_access"
	NoDataAvailable  Kind = "no_data_available"
	InsufficientData Kind = "insufficient_data"
	Generation       Kind = "generation"
	Configuration    Kind = "configuration"
	Delivery         Kind = "delivery"
)

// Error tags an underlying error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kinded error from a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: eris.New(msg)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: eris.Wrap(err, msg)}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Fatal reports whether err must abort the run before anything is mailed.
// Configuration and delivery failures happen after the report is on disk and
// are not fatal; unclassified errors are.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case Configuration, Delivery:
		return false
	default:
		return true
	}
}

// IsTransient returns true if err looks like a network hiccup (timeout,
// connection reset, DNS) rather than a persistent fault. The job never
// retries; the flag only tells the operator whether re-running is likely
// to help.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"rate limit",
		"overloaded",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
