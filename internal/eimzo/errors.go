package eimzo

import (
	"errors"
	"fmt"
)

// Kind classifies failures of calls to the E-IMZO server.
type Kind int

const (
	// KindUpstream is a transport failure or an HTTP 5xx from the server.
	KindUpstream Kind = iota + 1
	// KindProtocol is a malformed body or an unexpected envelope.
	KindProtocol
	// KindAuth is a non-1 status from the auth endpoint.
	KindAuth
	// KindVerification is a non-1 status from the timestamp or pkcs7 endpoints.
	KindVerification
)

func (k Kind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindVerification:
		return "verification"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every Client call that fails.
//
// Status holds the E-IMZO status field for KindAuth and KindVerification, the
// HTTP status code for a 5xx KindUpstream, and 0 otherwise. Message is safe to
// show to end users.
type Error struct {
	Kind     Kind
	Endpoint Endpoint
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("eimzo %s %s: %s: %v", e.Kind, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("eimzo %s %s: %s", e.Kind, e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
