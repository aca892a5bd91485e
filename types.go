package gtws

import "github.com/bloomwire/gtws/frame"

// GraphQLRequest is the parsed payload of a Subscribe frame: a GraphQL
// document together with its variables and the operation to run if the
// document defines more than one. It is an alias of frame.GraphQLRequest
// so that the wire codec and this package's public API always agree on
// exactly one type.
type GraphQLRequest = frame.GraphQLRequest

// ErrorLocation is a line/column pair pointing into the source of a
// GraphQL document, as used by GraphQLError.
type ErrorLocation = frame.ErrorLocation

// GraphQLError is one entry of a GraphQL error response. It intentionally
// mirrors the shape of the GraphQL spec's error object rather than any
// particular execution engine's error type, so that any Executor or
// Subscriber implementation can produce it without depending on this
// module.
type GraphQLError = frame.GraphQLError

// ErrorList is an ordered list of GraphQL errors. Order is significant and
// is never reordered by this module; it is preserved from the Executor or
// Subscriber all the way into the wire-level error frame payload.
type ErrorList = frame.ErrorList

// WrapError converts a plain Go error into a single-entry ErrorList,
// preserving an existing ErrorList or *GraphQLError unchanged.
var WrapError = frame.WrapError

// Result is the payload of a Next frame: the outcome of executing one
// GraphQL operation, or one event of a subscription's event stream.
type Result = frame.Result
