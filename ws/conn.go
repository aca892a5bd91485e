// Package ws adapts gtws's abstract Messenger to concrete
// gorilla/websocket connections: a server-side upgrade handler, a
// client-side dialer with reconnect backoff, and the duplex Conn both
// share underneath. It generalizes this corpus's wsConnection, which
// paired a writeLoop/readLoop over *websocket.Conn with an
// OperationMessage envelope, to plain pre-encoded text frames, since
// gtws.frame already owns the envelope.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bloomwire/gtws/logger"
)

// WriteTimeout bounds how long a single outbound frame write may block
// before the connection is considered dead.
const WriteTimeout = 10 * time.Second

// ReadLimit caps the size of a single inbound frame.
const ReadLimit = 1 << 20

// Subprotocol is the graphql-transport-ws WebSocket subprotocol name
// negotiated during the HTTP upgrade.
const Subprotocol = "graphql-transport-ws"

// Conn implements gtws.Messenger over a *websocket.Conn: one writer
// goroutine draining an outgoing channel (so Send never blocks on the
// network) and one reader goroutine feeding whatever callback OnReceive
// registered.
type Conn struct {
	ws  *websocket.Conn
	log *logger.LogWrapper

	outgoing chan string
	onRecv   func(text string)

	// onClose fires exactly once, from the read loop, whenever this Conn
	// stops reading — whether because the peer closed the transport or
	// because Close/Error was called locally. Engines wire their
	// HandleClose here so fan-out cleanup runs even when the peer drops
	// the connection without ever sending a Complete.
	onClose func()

	mu     sync.Mutex
	closed bool
}

// NewConn wraps ws. The read and write loops do not start until Listen
// is called, so a caller can construct the Conn, hand it to an engine as
// a gtws.Messenger (which registers OnReceive), and only then set
// OnClose and start reading — avoiding any window where a frame could
// arrive before anything is listening for it. ws must already have
// completed the subprotocol handshake.
func NewConn(ws *websocket.Conn, log *logger.LogWrapper) *Conn {
	ws.SetReadLimit(ReadLimit)

	return &Conn{
		ws:       ws,
		log:      log,
		outgoing: make(chan string, 16),
	}
}

// SetOnClose registers the callback fired exactly once, from the read
// loop, whenever this Conn stops reading — whether because the peer
// closed the transport or because Close/Error was called locally.
// Engines wire their HandleClose here so fan-out cleanup runs even when
// the peer drops the connection without ever sending a Complete. It must
// be called before Listen.
func (c *Conn) SetOnClose(fn func()) {
	c.onClose = fn
}

// Listen starts the read and write loops. Call it only after the
// Messenger consumer (a ServerEngine or ClientEngine) has already
// registered its OnReceive callback and, if needed, SetOnClose.
func (c *Conn) Listen() {
	go c.writeLoop()
	go c.readLoop()
}

// Send implements gtws.Messenger.
func (c *Conn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.outgoing <- text
	return nil
}

// OnReceive implements gtws.Messenger.
func (c *Conn) OnReceive(callback func(text string)) {
	c.onRecv = callback
}

// Error implements gtws.Messenger: it writes a WebSocket close control
// frame carrying code and message, then tears the connection down.
func (c *Conn) Error(message string, code int) error {
	if !c.markClosed() {
		return nil
	}

	deadline := time.Now().Add(100 * time.Millisecond)
	msg := websocket.FormatCloseMessage(code, message)
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && err != websocket.ErrCloseSent {
		c.log.WithError(err).Warnf("failed to write close control frame")
	}

	return c.ws.Close()
}

// Close implements gtws.Messenger: a normal shutdown with no close-code
// diagnostic to deliver. Frames already accepted by Send are still
// written; the write loop closes the socket once it has drained them.
func (c *Conn) Close() error {
	c.markClosed()
	return nil
}

// markClosed flips closed and closes the outgoing channel exactly once,
// reporting whether this call was the one to do it.
func (c *Conn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	close(c.outgoing)
	return true
}

func (c *Conn) writeLoop() {
	defer c.ws.Close()

	for text := range c.outgoing {
		c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			c.log.WithError(err).Warnf("sending frame failed")
			return
		}
	}
}

func (c *Conn) readLoop() {
	defer c.ws.Close()
	defer c.markClosed()
	defer func() {
		if c.onClose != nil {
			c.onClose()
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if c.onRecv != nil {
			c.onRecv(string(data))
		}
	}
}
