package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/logger"
	"github.com/bloomwire/gtws/utils/backoff"
)

var errSubprotocolMismatch = errors.New("server did not accept the " + Subprotocol + " subprotocol")

// EngineBuilder builds a fresh ClientEngine for one dialed connection. It
// is called again on every reconnect, mirroring EngineFactory's role on
// the server side: the builder binds msgr to whatever ClientOptions this
// deployment wants, including re-sending ConnectionInit from
// OnConnectionAck's absence if the host needs that.
type EngineBuilder func(msgr gtws.Messenger) *gtws.ClientEngine

// Dialer reconnects to a graphql-transport-ws server, backing off
// between attempts the way this corpus's utils/backoff.Backoff is meant
// to be used, generalized from a one-shot dial into a supervised loop.
// Nothing in this corpus dials out on its own — this is the client half
// of the module, mirroring the connection bring-up logic of its server
// side for the dialing direction instead.
type Dialer struct {
	url     string
	header  http.Header
	build   EngineBuilder
	log     *logger.LogWrapper
	backoff *backoff.Backoff

	mu     sync.Mutex
	cancel context.CancelFunc
}

// DialerOption configures a Dialer at construction time.
type DialerOption func(*Dialer)

// WithDialerHeader sets extra HTTP headers sent with the upgrade
// request (e.g. an Authorization header carried outside ConnectionInit).
func WithDialerHeader(h http.Header) DialerOption {
	return func(d *Dialer) { d.header = h }
}

// WithDialerLogger routes the dialer's own diagnostics (connect/retry
// events, as opposed to the ClientEngine's) through l.
func WithDialerLogger(l *logger.LogWrapper) DialerOption {
	return func(d *Dialer) { d.log = l }
}

// WithBackoff overrides the default exponential backoff between reconnect
// attempts.
func WithBackoff(b *backoff.Backoff) DialerOption {
	return func(d *Dialer) { d.backoff = b }
}

// NewDialer constructs a Dialer that connects to url (a ws:// or wss://
// endpoint) and builds a fresh ClientEngine via build on every successful
// connection.
func NewDialer(url string, build EngineBuilder, opts ...DialerOption) *Dialer {
	d := &Dialer{
		url:     url,
		build:   build,
		log:     logger.NewNoopLogger(),
		backoff: backoff.NewBackoff(nil),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run dials, reconnecting with backoff on every failure or disconnect,
// until ctx is canceled. It blocks until ctx is done.
func (d *Dialer) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}

		closed := make(chan struct{})
		if err := d.connectOnce(ctx, closed); err != nil {
			d.log.WithError(err).Warnf("dial failed")
		} else {
			d.backoff.Reset()
			<-closed
		}

		wait := d.backoff.Duration()
		d.log.Debugf("reconnecting in %s", wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Stop ends the reconnect loop started by Run.
func (d *Dialer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Dialer) connectOnce(ctx context.Context, closed chan struct{}) error {
	dialer := websocket.Dialer{Subprotocols: []string{Subprotocol}}

	ws, _, err := dialer.DialContext(ctx, d.url, d.header)
	if err != nil {
		return err
	}

	if ws.Subprotocol() != Subprotocol {
		ws.Close()
		return errSubprotocolMismatch
	}

	conn := NewConn(ws, d.log)
	engine := d.build(conn)
	conn.SetOnClose(func() {
		if engine != nil {
			engine.HandleClose()
		}
		close(closed)
	})
	conn.Listen()

	return nil
}
