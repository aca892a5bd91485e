package gtws

// Messenger is the opaque duplex text-message transport both engines are
// built on. It is the generalization of this corpus's Connection
// interface: where that interface exposed the concrete *websocket.Conn
// to callers, Messenger exposes nothing but send/receive/close, so the
// engine never depends on any particular WebSocket library. Concrete
// implementations live in the ws subpackage.
type Messenger interface {
	// Send enqueues a text frame for transmission. Send is non-blocking
	// from the caller's perspective and safe to call from any goroutine;
	// implementations must preserve FIFO ordering of everything written
	// through one Messenger.
	Send(text string) error

	// OnReceive registers the callback invoked once per inbound text
	// frame. Registering a new callback replaces the previous one.
	// Implementations serialize callback invocations: at most one
	// delivery is ever in flight for a given Messenger.
	OnReceive(callback func(text string))

	// Error transmits a textual diagnostic and signals the protocol-level
	// close code to the peer, then closes the transport. message is
	// human-readable; code is a WebSocket close code in the 4000-4999
	// application range.
	Error(message string, code int) error

	// Close initiates a normal transport shutdown.
	Close() error
}
