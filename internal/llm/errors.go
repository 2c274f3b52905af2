package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind classifies a failed completion attempt. The classification is
// total: every error a provider client returns carries exactly one kind.
type ErrorKind int

const (
	// KindConfiguration means the credential is missing or malformed.
	// Detected locally, before any network call is made.
	KindConfiguration ErrorKind = iota
	// KindAuth means the provider rejected the credential.
	KindAuth
	// KindThrottle means the provider reported rate limiting.
	KindThrottle
	// KindNetwork means a transport failure (DNS, TCP, TLS) or timeout.
	KindNetwork
	// KindUnknown covers everything else.
	KindUnknown
)

// String returns the kind name for logs and metrics labels.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuth:
		return "auth"
	case KindThrottle:
		return "throttle"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a classified completion failure.
type Error struct {
	Kind  ErrorKind
	cause error
}

// NewError wraps cause with a classification.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Reply returns the stable, user-facing message for the failure. Each kind
// maps to a distinct string; unknown failures include up to 100 characters
// of the underlying error text.
func (e *Error) Reply() string {
	switch e.Kind {
	case KindConfiguration:
		return "Error: no valid API key is configured. Please contact the administrator."
	case KindAuth:
		return "The API key was rejected by the provider. Please contact the administrator."
	case KindThrottle:
		return "Too many requests right now. Please try again in a moment."
	case KindNetwork:
		return "Could not reach the model provider. Please check the server's network."
	default:
		return "Unexpected error: " + excerpt(e.cause, 100)
	}
}

// ReplyFor maps any completion error to its user-facing reply text. Errors
// that somehow escaped classification count as unknown, keeping the mapping
// total.
func ReplyFor(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reply()
	}
	return (&Error{Kind: KindUnknown, cause: err}).Reply()
}

// KindOf returns the classification of a completion error, KindUnknown for
// anything unclassified.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

func excerpt(err error, n int) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if len(s) > n {
		s = s[:n]
	}
	return s
}

// classifyTransport maps transport-level failures shared by all providers.
// Deadline expiry counts as a network failure: the call had no reply.
func classifyTransport(err error) (*Error, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetwork, cause: err}, true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Kind: KindNetwork, cause: err}, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, cause: err}, true
	}
	return nil, false
}
