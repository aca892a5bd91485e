package gtws

import (
	"context"
	"time"

	"github.com/bloomwire/gtws/logger"
)

// OnNextHook is the server-side DataSync handler for a client-pushed Next
// frame. A returned error is surfaced to that client as an Error frame
// tagged with id; it is never fatal to the session.
type OnNextHook func(ctx context.Context, id string, result *Result) error

// ServerOption configures a ServerEngine at construction time, in the
// functional-options idiom this corpus uses throughout its HTTP/IDE
// layer (see options.Option), generalized here to the protocol engine.
type ServerOption func(*serverConfig)

type serverConfig struct {
	auth                        AuthHook
	log                         *logger.LogWrapper
	onExit                      func()
	onMessage                   func(text string)
	onOperationComplete         func(id string)
	onOperationError            func(id string, errs ErrorList)
	onNext                      OnNextHook
	onPing                      func(payload map[string]interface{})
	onPong                      func(payload map[string]interface{})
	pingInterval                time.Duration
	closeOnSubscriptionComplete bool
	completeClosesSession       bool
	connectionInitTimeout       time.Duration
}

func defaultServerConfig() *serverConfig {
	return &serverConfig{
		log: logger.NewNoopLogger(),
		// Baseline semantics, as resolved by this module: a client Complete
		// tears the session down, and a naturally-completed subscription
		// closes the transport. DataSync hosts opt out of both with
		// WithCompleteClosesSession(false) and WithCloseOnSubscriptionComplete(false).
		closeOnSubscriptionComplete: true,
		completeClosesSession:       true,
	}
}

// WithAuth registers the hook that authorizes a ConnectionInit. Without
// one, every ConnectionInit succeeds (baseline default); DataSync
// deployments are expected to always supply one.
func WithAuth(hook AuthHook) ServerOption {
	return func(c *serverConfig) { c.auth = hook }
}

// WithLogger routes the engine's internal diagnostics through l instead
// of a no-op logger.
func WithLogger(l *logger.LogWrapper) ServerOption {
	return func(c *serverConfig) { c.log = l }
}

// WithOnExit registers the hook fired once when the session is torn down:
// a client Complete (when WithCompleteClosesSession is enabled), a
// one-shot operation or subscription closing the transport, a fatal
// protocol error, or the transport adapter reporting the connection
// closed through HandleClose.
func WithOnExit(fn func()) ServerOption {
	return func(c *serverConfig) { c.onExit = fn }
}

// WithOnMessage registers a raw-inbound-text tap, invoked for every
// message that reaches the receive pipeline (after the "44" quirk
// filter, before decoding).
func WithOnMessage(fn func(text string)) ServerOption {
	return func(c *serverConfig) { c.onMessage = fn }
}

// WithOnOperationComplete registers the hook fired whenever the server
// emits a terminal Complete for an operation id, and whenever a client
// Complete arrives for one.
func WithOnOperationComplete(fn func(id string)) ServerOption {
	return func(c *serverConfig) { c.onOperationComplete = fn }
}

// WithOnOperationError registers the hook fired whenever the server
// emits a terminal Error for an operation id.
func WithOnOperationError(fn func(id string, errs ErrorList)) ServerOption {
	return func(c *serverConfig) { c.onOperationError = fn }
}

// WithOnNext registers the DataSync handler for client-pushed Next
// frames. Leaving it unset makes a DataSync Next a silent no-op rather
// than a protocol error, so a host can enable the baseline profile simply
// by never calling this option.
func WithOnNext(fn OnNextHook) ServerOption {
	return func(c *serverConfig) { c.onNext = fn }
}

// WithOnPing registers a tap invoked when a client Ping arrives, in
// addition to the automatic Pong reply.
func WithOnPing(fn func(payload map[string]interface{})) ServerOption {
	return func(c *serverConfig) { c.onPing = fn }
}

// WithOnPong registers a tap invoked when a client Pong arrives.
func WithOnPong(fn func(payload map[string]interface{})) ServerOption {
	return func(c *serverConfig) { c.onPong = fn }
}

// WithPingInterval makes the server send an idle Ping whenever the
// connection has received no frame for d, resetting on every arrival.
// Zero (the default) disables idle pinging.
func WithPingInterval(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.pingInterval = d }
}

// WithCloseOnSubscriptionComplete controls whether the transport is
// closed after a subscription's source completes normally. Defaults to
// true (baseline); DataSync hosts pass false to keep the session open
// for further operations.
func WithCloseOnSubscriptionComplete(v bool) ServerOption {
	return func(c *serverConfig) { c.closeOnSubscriptionComplete = v }
}

// WithCompleteClosesSession controls whether a client-originated
// Complete tears the whole session down (firing onExit and closing the
// transport) or only completes that one operation (firing
// onOperationComplete and leaving the session open). Defaults to true
// (baseline); DataSync hosts pass false.
func WithCompleteClosesSession(v bool) ServerOption {
	return func(c *serverConfig) { c.completeClosesSession = v }
}

// WithConnectionInitTimeout closes the session with ConnectionInitTimeout
// if no ConnectionInit arrives within d of construction. Zero (the
// default) disables the timeout.
func WithConnectionInitTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.connectionInitTimeout = d }
}
