// Package frame implements the graphql-transport-ws wire format: the
// tagged frame variants of the graphql-transport-ws protocol and their
// JSON encoding/decoding.
//
// Decoding is deliberately two-pass (PeekType, then a type-specific
// Decode*) so that a peer can triage an unrecognized "type" before
// attempting to decode a variant it may not know about, preserving
// forward compatibility with future frame kinds. Every Decode* function
// returns a plain error; mapping that error to a numeric close code and a
// taxonomy Kind is the caller's job (the server and client engines do
// this differently, since a malformed inbound frame is a
// InvalidRequestFormat on the server side and an InvalidResponseFormat on
// the client side).
package frame

import "encoding/json"

// InitPayload is the host-defined, encodable shape carried inside a
// ConnectionInit frame. It is opaque to this package and is only ever
// handed to a host's AuthHook, once decoded.
type InitPayload map[string]interface{}

// GraphQLRequest is the parsed payload of a Subscribe frame: a GraphQL
// document together with its variables and the operation to run if the
// document defines more than one.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// ErrorLocation is a line/column pair pointing into the source of a
// GraphQL document, as used by GraphQLError.
type ErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is one entry of a GraphQL error response. It intentionally
// mirrors the shape of the GraphQL spec's error object rather than any
// particular execution engine's error type, so that any Executor or
// Subscriber implementation can produce it without depending on this
// module.
type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Locations  []ErrorLocation        `json:"locations,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

func (e *GraphQLError) Error() string {
	return e.Message
}

// ErrorList is an ordered list of GraphQL errors. Order is significant and
// is never reordered by this module; it is preserved from the Executor or
// Subscriber all the way into the wire-level error frame payload.
type ErrorList []*GraphQLError

// Error implements the error interface so an ErrorList can be passed
// wherever a plain error is expected (e.g. into WrapError).
func (e ErrorList) Error() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Error()
}

// WrapError converts a plain Go error into a single-entry ErrorList,
// preserving an existing ErrorList or *GraphQLError unchanged.
func WrapError(err error) ErrorList {
	if err == nil {
		return nil
	}

	switch v := err.(type) {
	case ErrorList:
		return v
	case *GraphQLError:
		return ErrorList{v}
	default:
		return ErrorList{{Message: v.Error()}}
	}
}

// Result is the payload of a Next frame: the outcome of executing one
// GraphQL operation, or one event of a subscription's event stream.
type Result struct {
	Data       json.RawMessage        `json:"data,omitempty"`
	Errors     ErrorList              `json:"errors,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// Type is the wire value of a frame's "type" discriminator.
type Type string

const (
	TypeConnectionInit Type = "connection_init"
	TypeConnectionAck  Type = "connection_ack"
	TypeSubscribe      Type = "subscribe"
	TypeNext           Type = "next"
	TypeError          Type = "error"
	TypeComplete       Type = "complete"
	TypePing           Type = "ping"
	TypePong           Type = "pong"

	// TypeUnknown names the unknown-type sentinel. PeekType does not
	// produce it: it returns the raw "type" string (empty when missing),
	// and the engines reject any value outside the types above.
	TypeUnknown Type = "unknown"
)

// ConnectionInitFrame is the C→S connection_init frame.
type ConnectionInitFrame struct {
	Payload InitPayload
}

// ConnectionAckFrame is the S→C connection_ack frame.
type ConnectionAckFrame struct {
	Payload map[string]interface{}
}

// SubscribeFrame is the C→S subscribe frame.
type SubscribeFrame struct {
	ID      string
	Payload GraphQLRequest
}

// NextFrame is the next frame, carried in both directions: S→C as an
// operation's result, and C→S (DataSync only) as a client-pushed result.
type NextFrame struct {
	ID      string
	Payload Result
}

// ErrorFrame is the S→C error frame.
type ErrorFrame struct {
	ID      string
	Payload ErrorList
}

// CompleteFrame is the complete frame, carried in both directions.
type CompleteFrame struct {
	ID string
}

// PingFrame is the ping frame, carried in both directions.
type PingFrame struct {
	Payload map[string]interface{}
}

// PongFrame is the pong frame, carried in both directions.
type PongFrame struct {
	Payload map[string]interface{}
}
