package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/logger"
)

// EngineFactory builds a fresh ServerEngine for one accepted connection.
// It is called once per upgrade, after the subprotocol has already been
// negotiated, so the factory only needs to bind msgr to whatever
// Executor/Subscriber/options this deployment wants for that request.
type EngineFactory func(r *http.Request, msgr gtws.Messenger) *gtws.ServerEngine

// Handler upgrades graphql-transport-ws requests to a WebSocket and hands
// the resulting Conn to newEngine. It generalizes this corpus's
// Server.WSHandler, narrowed to the single subprotocol this module
// implements (the graphql-ws legacy subprotocol this corpus also served
// has no place in a spec built solely around graphql-transport-ws).
type Handler struct {
	newEngine EngineFactory
	log       *logger.LogWrapper
	upgrader  websocket.Upgrader
}

// NewHandler constructs a Handler that upgrades every request it
// receives and calls newEngine once per accepted connection. log, if
// nil, discards every diagnostic.
func NewHandler(newEngine EngineFactory, log *logger.LogWrapper) *Handler {
	if log == nil {
		log = logger.NewNoopLogger()
	}

	return &Handler{
		newEngine: newEngine,
		log:       log,
		upgrader: websocket.Upgrader{
			CheckOrigin:  func(r *http.Request) bool { return true },
			Subprotocols: []string{Subprotocol},
		},
	}
}

// IsUpgrade reports whether r is a WebSocket upgrade request, letting a
// caller route plain HTTP GraphQL requests and graphql-transport-ws
// sessions through the same net/http.Handler surface.
func IsUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// ServeHTTP performs the upgrade and wires an engine to it. It never
// falls back to plain HTTP; callers that also serve regular GraphQL
// requests should guard the call with IsUpgrade themselves, as this
// corpus's own Server.ServeHTTP does.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warnf("failed to establish websocket connection")
		return
	}

	if ws.Subprotocol() != Subprotocol {
		h.closeUnacceptable(ws)
		return
	}

	conn := NewConn(ws, h.log)
	engine := h.newEngine(r, conn)
	conn.SetOnClose(engine.HandleClose)
	conn.Listen()
}

func (h *Handler) closeUnacceptable(ws *websocket.Conn) {
	h.log.Warnf("client did not request the %q subprotocol", Subprotocol)
	msg := websocket.FormatCloseMessage(websocket.CloseProtocolError, "subprotocol not acceptable")
	ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(100*time.Millisecond))
	ws.Close()
}
