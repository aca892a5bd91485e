package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/ws"
)

func wsURL(t *testing.T, baseURL string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(baseURL, "http"))
	return "ws" + strings.TrimPrefix(baseURL, "http")
}

func dialGraphQLTransportWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: []string{ws.Subprotocol}}
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandlerRoundTripsOneShotOperation(t *testing.T) {
	handler := ws.NewHandler(func(r *http.Request, msgr gtws.Messenger) *gtws.ServerEngine {
		executor := func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.Result, error) {
			return &gtws.Result{Data: json.RawMessage(`{"hello":"world"}`)}, nil
		}
		return gtws.NewServerEngine(msgr, executor, nil)
	}, nil)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dialGraphQLTransportWS(t, wsURL(t, srv.URL))
	require.Equal(t, ws.Subprotocol, conn.Subprotocol())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"connection_init"}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, ackData, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(ackData), "connection_ack")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"subscribe","id":"op-1","payload":{"query":"{ hello }"}}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, nextData, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(nextData), `"next"`)
	require.Contains(t, string(nextData), `"world"`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, completeData, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(completeData), `"complete"`)
}

func TestHandlerRejectsUnknownSubprotocol(t *testing.T) {
	handler := ws.NewHandler(func(r *http.Request, msgr gtws.Messenger) *gtws.ServerEngine {
		return gtws.NewServerEngine(msgr, nil, nil)
	}, nil)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	dialer := websocket.Dialer{Subprotocols: []string{"not-a-real-protocol"}}
	conn, _, err := dialer.Dial(wsURL(t, srv.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}
