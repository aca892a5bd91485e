package gtws

import (
	"context"

	"github.com/bloomwire/gtws/fanout"
	"github.com/bloomwire/gtws/frame"
)

// InitPayload is the host-defined, encodable shape carried inside a
// ConnectionInit frame. It is opaque to the engine and is only ever
// handed to the AuthHook; the engine does not copy it into session
// metadata itself. It is an alias of frame.InitPayload, the type the
// wire codec actually decodes into.
type InitPayload = frame.InitPayload

// AuthHook authorizes a ConnectionInit. A non-nil error rejects the
// connection with close code 4401 (Unauthorized). AuthHook is invoked in
// its own goroutine; it is this module's "Future<void>",
// realized as a function that blocks until it has an answer.
type AuthHook func(ctx context.Context, payload InitPayload) error

// Executor runs a one-shot (query or mutation) GraphQL operation to
// completion and returns its result. Like AuthHook, it is invoked from a
// dedicated goroutine and may block.
type Executor func(ctx context.Context, req *GraphQLRequest) (*Result, error)

// Subscriber starts a streaming (subscription) GraphQL operation. A
// successful call returns a SubscriptionResult; if its Stream is nil, the
// server engine treats this as a resolver misconfiguration and reports
// SubscriptionResult.Errors instead of opening a fan-out.
type Subscriber func(ctx context.Context, req *GraphQLRequest) (*SubscriptionResult, error)

// SubscriptionResult is the outcome of starting a subscription operation.
type SubscriptionResult struct {
	Stream EventSource
	Errors ErrorList
}

// EventFuture produces one subscription event. Like Executor, it is a
// blocking function invoked from its own goroutine rather than a
// first-class future value.
type EventFuture func(ctx context.Context) (*Result, error)

// EventObserver bundles the three callbacks an EventSource drives: one
// per produced event, one on a fatal source error, and one when the
// source has no more events to produce. This is the Go rendering of the
// "small trait/interface, not an inheritance tree" design note: a single
// struct of callbacks takes the place of an observer base class.
type EventObserver struct {
	OnEvent     func(EventFuture)
	OnError     func(err error)
	OnCompleted func()
}

// Disposer releases the resources an EventSource subscription holds
// (stopping goroutines, closing channels). Dispose must be safe to call
// more than once and from any goroutine. It is an alias of
// fanout.Disposer, the type the disposal bag that backs every
// subscription actually stores.
type Disposer = fanout.Disposer

// EventSource is a subscription's underlying stream of events. Subscriber
// implementations adapt whatever the GraphQL execution engine produces
// (a channel, a callback-based pub/sub handle, ...) into this shape.
type EventSource interface {
	Subscribe(observer EventObserver) Disposer
}

// DisposerFunc adapts a plain function to a Disposer.
type DisposerFunc = fanout.DisposerFunc
