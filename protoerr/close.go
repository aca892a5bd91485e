// Package protoerr declares the graphql-transport-ws protocol's typed,
// close-code-bearing errors and the single underlying error type
// (CloseError) they all share.
//
// A CloseError is fatal to a session: whoever produces one is expected to
// hand it to Messenger.Error so the peer learns both the human-readable
// reason and the numeric close code (the one exception is noted on
// InvalidRequestFormat). Per-operation GraphQL errors are
// never represented as a CloseError — those are reported as an Error
// frame and do not end the session.
package protoerr

import (
	"fmt"

	"github.com/bloomwire/gtws/protoerr/code"
)

// Kind discriminates the closed set of protocol-framing failures a
// CloseError can represent, independently of its numeric Code (several
// kinds share the same code).
type Kind string

const (
	KindNoType                  Kind = "NoType"
	KindInvalidType             Kind = "InvalidType"
	KindInvalidRequestFormat    Kind = "InvalidRequestFormat"
	KindInvalidResponseFormat   Kind = "InvalidResponseFormat"
	KindInvalidEncoding         Kind = "InvalidEncoding"
	KindUnauthorized            Kind = "Unauthorized"
	KindNotInitialized          Kind = "NotInitialized"
	KindTooManyInitializations  Kind = "TooManyInitializations"
	KindSubscriberAlreadyExists Kind = "SubscriberAlreadyExists"
	KindInternalAPIStreamIssue  Kind = "InternalAPIStreamIssue"
	KindGraphQLError            Kind = "GraphQLError"
)

// CloseError represents a fatal, close-code-bearing protocol error. It
// implements error and carries everything Messenger.Error needs.
type CloseError struct {
	// Kind identifies which member of the taxonomy this is.
	Kind Kind

	// Code is the numeric WebSocket close code sent to the peer.
	Code int

	// Reason is the human-readable diagnostic sent to the peer, always
	// prefixed with the numeric code by Error().
	Reason string

	// Err is the underlying cause, if any (e.g. a JSON decode error).
	Err error
}

// Error renders the diagnostic exactly as it is sent to the peer:
// "<code>: <reason>". The underlying cause, if any, is available through
// Unwrap for local logging but is deliberately not appended here — a
// peer-visible "4401: Unauthorized" must stay that message regardless of
// what internal error the AuthHook happened to return.
func (e CloseError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Reason)
}

func (e CloseError) Unwrap() error {
	return e.Err
}

// NoType is returned when a frame's envelope is missing its "type" field.
func NoType() CloseError {
	return CloseError{Kind: KindNoType, Code: code.BadRequest, Reason: "missing type"}
}

// InvalidType is returned when a frame's "type" is not one this peer
// recognizes for its role (decodes to the unknown sentinel).
func InvalidType(typ string) CloseError {
	return CloseError{Kind: KindInvalidType, Code: code.BadRequest, Reason: fmt.Sprintf("invalid type: %s", typ)}
}

// InvalidRequestFormat is returned when a client-originated frame of a
// known type fails to decode into its specific variant, or violates a
// structural invariant of that variant (e.g. a DataSync Next whose
// payload is a subscription operation). The DataSync case is the one
// place the server engine does not close the session with it: it sends
// the rendered message and code inside an Error frame tagged with that
// Next's id instead.
func InvalidRequestFormat(typ string, cause error) CloseError {
	return CloseError{
		Kind:   KindInvalidRequestFormat,
		Code:   code.BadRequest,
		Reason: fmt.Sprintf("invalid request format for %q", typ),
		Err:    cause,
	}
}

// InvalidResponseFormat is returned when a server-originated frame of a
// known type fails to decode into its specific variant. It exists for
// the client engine, which is just as exposed to a malformed peer as the
// server is.
func InvalidResponseFormat(typ string, cause error) CloseError {
	return CloseError{
		Kind:   KindInvalidResponseFormat,
		Code:   code.BadRequest,
		Reason: fmt.Sprintf("invalid response format for %q", typ),
		Err:    cause,
	}
}

// InvalidEncoding is returned when the envelope itself is not valid JSON.
func InvalidEncoding(cause error) CloseError {
	return CloseError{Kind: KindInvalidEncoding, Code: code.BadRequest, Reason: "invalid encoding", Err: cause}
}

// Unauthorized is returned when the AuthHook rejects a ConnectionInit.
func Unauthorized(cause error) CloseError {
	return CloseError{Kind: KindUnauthorized, Code: code.Unauthorized, Reason: "Unauthorized", Err: cause}
}

// NotInitialized is returned when an operation that requires an
// acknowledged ConnectionInit arrives before one has been accepted.
func NotInitialized() CloseError {
	return CloseError{Kind: KindNotInitialized, Code: code.Unauthorized, Reason: "not initialized"}
}

// TooManyInitializations is returned on a second ConnectionInit.
func TooManyInitializations() CloseError {
	return CloseError{Kind: KindTooManyInitializations, Code: code.TooManyInitialisationRequests, Reason: "too many initialization requests"}
}

// SubscriberAlreadyExists is returned when a Subscribe names an operation
// id that is already reserved or has an active subscription.
func SubscriberAlreadyExists(id string) CloseError {
	return CloseError{
		Kind:   KindSubscriberAlreadyExists,
		Code:   code.SubscriberAlreadyExists,
		Reason: fmt.Sprintf("Subscriber for %s already exists", id),
	}
}

// InternalAPIStreamIssue is returned when a Subscriber succeeds but
// returns a result with no Stream for an operation the engine classified
// as streaming.
func InternalAPIStreamIssue() CloseError {
	return CloseError{Kind: KindInternalAPIStreamIssue, Code: code.InternalServerError, Reason: "internal stream error"}
}

// GraphQLErrorClose wraps a host-supplied error that must be forwarded to
// the peer as a fatal, numerically-coded close, as opposed to a
// per-operation Error frame.
func GraphQLErrorClose(cause error, closeCode int) CloseError {
	return CloseError{Kind: KindGraphQLError, Code: closeCode, Reason: "GraphQLError", Err: cause}
}

// ConnectionInitTimeout is returned when no ConnectionInit arrives within
// the configured timeout.
func ConnectionInitTimeout() CloseError {
	return CloseError{Kind: KindUnauthorized, Code: code.ConnectionInitialisationTimeout, Reason: "connection initialisation timeout"}
}
