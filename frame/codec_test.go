package frame_test

import (
	"encoding/json"
	"testing"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/frame"
	"github.com/stretchr/testify/require"
)

func TestPeekType(t *testing.T) {
	typ, err := frame.PeekType([]byte(`{"type":"subscribe","id":"1","payload":{"query":"{hello}"}}`))
	require.NoError(t, err)
	require.Equal(t, "subscribe", typ)

	typ, err = frame.PeekType([]byte(`{"id":"1"}`))
	require.NoError(t, err)
	require.Equal(t, "", typ)

	_, err = frame.PeekType([]byte(`not json`))
	require.Error(t, err)
}

func TestConnectionInitRoundTrip(t *testing.T) {
	data, err := frame.EncodeConnectionInit(gtws.InitPayload{"token": "abc"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"connection_init","payload":{"token":"abc"}}`, string(data))

	f, err := frame.DecodeConnectionInit(data)
	require.NoError(t, err)
	require.Equal(t, gtws.InitPayload{"token": "abc"}, f.Payload)
}

func TestConnectionInitOmitsAbsentPayload(t *testing.T) {
	data, err := frame.EncodeConnectionInit(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"connection_init"}`, string(data))

	f, err := frame.DecodeConnectionInit(data)
	require.NoError(t, err)
	require.Nil(t, f.Payload)
}

func TestSubscribeRoundTrip(t *testing.T) {
	req := &gtws.GraphQLRequest{Query: "subscription { tick }", OperationName: "Tick"}
	data, err := frame.EncodeSubscribe("op-1", req)
	require.NoError(t, err)

	f, err := frame.DecodeSubscribe(data)
	require.NoError(t, err)
	require.Equal(t, "op-1", f.ID)
	require.Equal(t, *req, f.Payload)
}

func TestSubscribeRequiresID(t *testing.T) {
	_, err := frame.DecodeSubscribe([]byte(`{"type":"subscribe","payload":{"query":"{hello}"}}`))
	require.Error(t, err)
}

func TestNextRoundTripPreservesErrorOrder(t *testing.T) {
	result := &gtws.Result{
		Data: json.RawMessage(`{"hello":"world"}`),
		Errors: gtws.ErrorList{
			{Message: "first"},
			{Message: "second"},
			{Message: "third"},
		},
	}

	data, err := frame.EncodeNext("op-1", result)
	require.NoError(t, err)

	f, err := frame.DecodeNext(data)
	require.NoError(t, err)
	require.Len(t, f.Payload.Errors, 3)
	require.Equal(t, "first", f.Payload.Errors[0].Message)
	require.Equal(t, "second", f.Payload.Errors[1].Message)
	require.Equal(t, "third", f.Payload.Errors[2].Message)
}

func TestCompleteRoundTripHasNoPayloadField(t *testing.T) {
	data, err := frame.EncodeComplete("op-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"complete","id":"op-1"}`, string(data))

	f, err := frame.DecodeComplete(data)
	require.NoError(t, err)
	require.Equal(t, "op-1", f.ID)
}

func TestErrorRoundTrip(t *testing.T) {
	errs := gtws.ErrorList{{Message: "boom"}}
	data, err := frame.EncodeError("op-1", errs)
	require.NoError(t, err)

	f, err := frame.DecodeError(data)
	require.NoError(t, err)
	require.Equal(t, "op-1", f.ID)
	require.Equal(t, errs, f.Payload)
}

func TestPingPongRoundTrip(t *testing.T) {
	data, err := frame.EncodePing(map[string]interface{}{"n": float64(1)})
	require.NoError(t, err)

	f, err := frame.DecodePing(data)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"n": float64(1)}, f.Payload)

	data, err = frame.EncodePong(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"pong"}`, string(data))
}

func TestHasClosePrefix(t *testing.T) {
	require.True(t, frame.HasClosePrefix([]byte("4401: Unauthorized")))
	require.True(t, frame.HasClosePrefix([]byte("44")))
	require.False(t, frame.HasClosePrefix([]byte(`{"type":"ping"}`)))
	require.False(t, frame.HasClosePrefix([]byte("4")))
}
