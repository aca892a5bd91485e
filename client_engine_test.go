package gtws_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/frame"
)

func TestClientSendConnectionInitThenReceivesAck(t *testing.T) {
	msgr := newFakeMessenger()
	acked := make(chan struct{})

	c := gtws.NewClientEngine(msgr, gtws.WithOnConnectionAck(func(f *frame.ConnectionAckFrame, engine *gtws.ClientEngine) {
		close(acked)
	}))

	require.NoError(t, c.SendConnectionInit(gtws.InitPayload{"token": "abc"}))
	require.Len(t, msgr.frames(), 1)
	require.Equal(t, "connection_init", frameType(t, msgr.frames()[0]))

	ackData, err := frame.EncodeConnectionAck(nil)
	require.NoError(t, err)
	msgr.deliver(string(ackData))

	select {
	case <-acked:
	case <-time.After(time.Second):
		t.Fatal("onConnectionAck was never invoked")
	}
}

func TestClientSubscribeReceivesNextThenComplete(t *testing.T) {
	msgr := newFakeMessenger()
	var nexts []string
	complete := make(chan struct{})

	c := gtws.NewClientEngine(msgr,
		gtws.WithClientOnNext(func(f *frame.NextFrame, engine *gtws.ClientEngine) {
			nexts = append(nexts, string(f.Payload.Data))
		}),
		gtws.WithOnComplete(func(f *frame.CompleteFrame, engine *gtws.ClientEngine) {
			close(complete)
		}),
	)

	require.NoError(t, c.SendSubscribe("op-1", &gtws.GraphQLRequest{Query: "subscription { tick }"}))
	require.Equal(t, "subscribe", frameType(t, msgr.frames()[0]))

	next1, err := frame.EncodeNext("op-1", &gtws.Result{Data: json.RawMessage(`1`)})
	require.NoError(t, err)
	msgr.deliver(string(next1))

	completeFrame, err := frame.EncodeComplete("op-1")
	require.NoError(t, err)
	msgr.deliver(string(completeFrame))

	select {
	case <-complete:
	case <-time.After(time.Second):
		t.Fatal("onComplete was never invoked")
	}
	require.Equal(t, []string{"1"}, nexts)
}

func TestClientAutoRepliesPongToPing(t *testing.T) {
	msgr := newFakeMessenger()
	c := gtws.NewClientEngine(msgr)
	_ = c

	pingData, err := frame.EncodePing(map[string]interface{}{"n": float64(1)})
	require.NoError(t, err)
	msgr.deliver(string(pingData))

	require.Len(t, msgr.frames(), 1)
	require.Equal(t, "pong", frameType(t, msgr.frames()[0]))
}

func TestClientDisablesAutoPong(t *testing.T) {
	msgr := newFakeMessenger()
	c := gtws.NewClientEngine(msgr, gtws.WithAutoPong(false))
	_ = c

	pingData, err := frame.EncodePing(nil)
	require.NoError(t, err)
	msgr.deliver(string(pingData))

	require.Empty(t, msgr.frames())
}

func TestClientDataSyncPushEmitsNextWithFreshID(t *testing.T) {
	msgr := newFakeMessenger()
	c := gtws.NewClientEngine(msgr)

	events := make(chan gtws.EventFuture, 1)
	disposer := c.AddObservableSubscription(gtws.NewChannelSource(events))
	defer disposer.Dispose()

	events <- func(ctx context.Context) (*gtws.Result, error) {
		return &gtws.Result{Data: json.RawMessage(`{"pushed":true}`)}, nil
	}

	require.Eventually(t, func() bool { return len(msgr.frames()) >= 1 }, time.Second, time.Millisecond)

	f, err := frame.DecodeNext([]byte(msgr.frames()[0]))
	require.NoError(t, err)
	require.NotEmpty(t, f.ID)
	require.JSONEq(t, `{"pushed":true}`, string(f.Payload.Data))
}

func TestClientErrorFrameInvokesOnError(t *testing.T) {
	msgr := newFakeMessenger()
	errored := make(chan struct{})

	c := gtws.NewClientEngine(msgr, gtws.WithOnError(func(f *frame.ErrorFrame, engine *gtws.ClientEngine) {
		close(errored)
	}))

	require.NoError(t, c.SendSubscribe("op-1", &gtws.GraphQLRequest{Query: "subscription { tick }"}))

	errData, err := frame.EncodeError("op-1", gtws.ErrorList{{Message: "boom"}})
	require.NoError(t, err)
	msgr.deliver(string(errData))

	select {
	case <-errored:
	case <-time.After(time.Second):
		t.Fatal("onError was never invoked")
	}
}
