package gtws

import (
	"github.com/bloomwire/gtws/frame"
	"github.com/bloomwire/gtws/logger"
)

// OnConnectionAckCallback handles an inbound connection_ack frame.
type OnConnectionAckCallback func(f *frame.ConnectionAckFrame, engine *ClientEngine)

// OnNextCallback handles an inbound next frame.
type OnNextCallback func(f *frame.NextFrame, engine *ClientEngine)

// OnErrorCallback handles an inbound error frame.
type OnErrorCallback func(f *frame.ErrorFrame, engine *ClientEngine)

// OnCompleteCallback handles an inbound complete frame.
type OnCompleteCallback func(f *frame.CompleteFrame, engine *ClientEngine)

// ClientOption configures a ClientEngine at construction time.
type ClientOption func(*clientConfig)

type clientConfig struct {
	log             *logger.LogWrapper
	onConnectionAck OnConnectionAckCallback
	onNext          OnNextCallback
	onError         OnErrorCallback
	onComplete      OnCompleteCallback
	onMessage       func(text string)
	onPing          func(payload map[string]interface{})
	onPong          func(payload map[string]interface{})
	autoPong        bool
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		log:      logger.NewNoopLogger(),
		autoPong: true,
	}
}

// WithClientLogger routes the client engine's internal diagnostics
// through l instead of a no-op logger.
func WithClientLogger(l *logger.LogWrapper) ClientOption {
	return func(c *clientConfig) { c.log = l }
}

// WithOnConnectionAck registers the callback invoked when the server
// acknowledges this session's ConnectionInit.
func WithOnConnectionAck(fn OnConnectionAckCallback) ClientOption {
	return func(c *clientConfig) { c.onConnectionAck = fn }
}

// WithClientOnNext registers the callback invoked for every inbound next
// frame, whether it belongs to a one-shot operation or a subscription.
func WithClientOnNext(fn OnNextCallback) ClientOption {
	return func(c *clientConfig) { c.onNext = fn }
}

// WithOnError registers the callback invoked for every inbound error
// frame.
func WithOnError(fn OnErrorCallback) ClientOption {
	return func(c *clientConfig) { c.onError = fn }
}

// WithOnComplete registers the callback invoked for every inbound
// complete frame.
func WithOnComplete(fn OnCompleteCallback) ClientOption {
	return func(c *clientConfig) { c.onComplete = fn }
}

// WithClientOnMessage registers a raw-inbound-text tap.
func WithClientOnMessage(fn func(text string)) ClientOption {
	return func(c *clientConfig) { c.onMessage = fn }
}

// WithClientOnPing registers a tap invoked when a server Ping arrives, in
// addition to the automatic Pong reply (see WithAutoPong).
func WithClientOnPing(fn func(payload map[string]interface{})) ClientOption {
	return func(c *clientConfig) { c.onPing = fn }
}

// WithClientOnPong registers a tap invoked when a server Pong arrives.
func WithClientOnPong(fn func(payload map[string]interface{})) ClientOption {
	return func(c *clientConfig) { c.onPong = fn }
}

// WithAutoPong controls whether the client engine automatically replies
// to an inbound Ping with a Pong carrying the same payload. Defaults to
// true; pass false to handle liveness entirely through WithClientOnPing.
func WithAutoPong(v bool) ClientOption {
	return func(c *clientConfig) { c.autoPong = v }
}
