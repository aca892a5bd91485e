package gtws_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/metadata"
)

// fakeMessenger is an in-process gtws.Messenger that records every frame
// sent to it and every close/error call, driven directly by test code
// instead of a real WebSocket. It plays the role a loopback Connection
// would play against ws.Conn.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []string
	errCode  int
	errMsg   string
	closed   bool
	onRecv   func(text string)
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{}
}

func (f *fakeMessenger) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) OnReceive(callback func(text string)) {
	f.onRecv = callback
}

func (f *fakeMessenger) Error(message string, code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.errMsg = message
	f.errCode = code
	return nil
}

func (f *fakeMessenger) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeMessenger) deliver(text string) {
	f.onRecv(text)
}

func (f *fakeMessenger) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeMessenger) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func frameType(t *testing.T, text string) string {
	var env struct{ Type string }
	require.NoError(t, json.Unmarshal([]byte(text), &env))
	return env.Type
}

// eventually polls cond until it's true or the deadline expires, for
// assertions on state that changes from a goroutine the test doesn't
// control directly (auth hooks, executors, subscriptions all run off the
// calling goroutine in this module).
func eventually(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition never became true")
}

func TestPreInitSubscribeIsRejected(t *testing.T) {
	msgr := newFakeMessenger()
	e := gtws.NewServerEngine(msgr, nil, nil)
	_ = e

	msgr.deliver(`{"type":"subscribe","id":"op-1","payload":{"query":"{hello}"}}`)

	eventually(t, msgr.isClosed)
	require.Equal(t, 4401, msgr.errCode)
}

func TestAuthRejectionProducesExactUnauthorizedFrame(t *testing.T) {
	msgr := newFakeMessenger()
	e := gtws.NewServerEngine(msgr, nil, nil, gtws.WithAuth(func(ctx context.Context, payload gtws.InitPayload) error {
		return &gtws.GraphQLError{Message: "nope, wrong token"}
	}))
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)

	eventually(t, msgr.isClosed)
	require.Equal(t, "4401: Unauthorized", msgr.errMsg)
	require.Equal(t, 4401, msgr.errCode)
	require.Empty(t, msgr.frames())
}

func TestOneShotHappyPath(t *testing.T) {
	msgr := newFakeMessenger()
	executor := func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.Result, error) {
		return &gtws.Result{Data: json.RawMessage(`{"hello":"world"}`)}, nil
	}

	e := gtws.NewServerEngine(msgr, executor, nil)
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })
	require.Equal(t, "connection_ack", frameType(t, msgr.frames()[0]))

	msgr.deliver(`{"type":"subscribe","id":"op-1","payload":{"query":"{ hello }"}}`)

	eventually(t, func() bool { return len(msgr.frames()) >= 3 })
	frames := msgr.frames()
	require.Equal(t, "next", frameType(t, frames[1]))
	require.Equal(t, "complete", frameType(t, frames[2]))

	// A one-shot closes the transport by default.
	eventually(t, msgr.isClosed)
}

func TestOneShotExecutorFailureStillEmitsComplete(t *testing.T) {
	msgr := newFakeMessenger()
	executor := func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.Result, error) {
		return nil, errors.New("boom")
	}

	e := gtws.NewServerEngine(msgr, executor, nil)
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })

	msgr.deliver(`{"type":"subscribe","id":"op-1","payload":{"query":"{ hello }"}}`)

	eventually(t, func() bool { return len(msgr.frames()) >= 3 })
	frames := msgr.frames()
	require.Equal(t, "error", frameType(t, frames[1]))
	require.Equal(t, "complete", frameType(t, frames[2]))

	eventually(t, msgr.isClosed)
}

func TestServerToClientStreaming(t *testing.T) {
	msgr := newFakeMessenger()

	ch := make(chan gtws.EventFuture, 4)
	subscriber := func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.SubscriptionResult, error) {
		return &gtws.SubscriptionResult{Stream: gtws.NewChannelSource(ch)}, nil
	}

	e := gtws.NewServerEngine(msgr, nil, subscriber, gtws.WithCloseOnSubscriptionComplete(false))
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })

	msgr.deliver(`{"type":"subscribe","id":"op-1","payload":{"query":"subscription { tick }"}}`)

	ch <- func(ctx context.Context) (*gtws.Result, error) {
		return &gtws.Result{Data: json.RawMessage(`1`)}, nil
	}
	ch <- func(ctx context.Context) (*gtws.Result, error) {
		return &gtws.Result{Data: json.RawMessage(`2`)}, nil
	}
	close(ch)

	eventually(t, func() bool { return len(msgr.frames()) >= 4 })
	frames := msgr.frames()
	require.Equal(t, "next", frameType(t, frames[1]))
	require.Equal(t, "next", frameType(t, frames[2]))
	require.Equal(t, "complete", frameType(t, frames[3]))
}

func TestDataSyncNextRejectsNestedSubscription(t *testing.T) {
	msgr := newFakeMessenger()
	var onNextCalls int
	e := gtws.NewServerEngine(msgr, nil, nil, gtws.WithOnNext(func(ctx context.Context, id string, result *gtws.Result) error {
		onNextCalls++
		return nil
	}))
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })

	payload := gtws.Result{
		Data:       json.RawMessage(`{"watch":"x"}`),
		Extensions: map[string]interface{}{"query": "subscription { watch }"},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	msgr.deliver(`{"type":"next","id":"ds-1","payload":` + string(raw) + `}`)

	eventually(t, func() bool { return len(msgr.frames()) >= 2 })
	require.Equal(t, "error", frameType(t, msgr.frames()[1]))
	require.Equal(t, 0, onNextCalls)
	require.False(t, msgr.isClosed())
}

func TestDataSyncNextAcceptedWithoutNestedSubscription(t *testing.T) {
	msgr := newFakeMessenger()
	done := make(chan struct{})
	e := gtws.NewServerEngine(msgr, nil, nil, gtws.WithOnNext(func(ctx context.Context, id string, result *gtws.Result) error {
		close(done)
		return nil
	}))
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })

	msgr.deliver(`{"type":"next","id":"ds-1","payload":{"data":{"x":1}}}`)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onNext hook was never invoked")
	}
}

func TestClosePrefixMessagesAreDropped(t *testing.T) {
	msgr := newFakeMessenger()
	e := gtws.NewServerEngine(msgr, nil, nil)
	_ = e

	msgr.deliver("4401: Unauthorized")
	msgr.deliver(`{"type":"connection_init"}`)

	eventually(t, func() bool { return len(msgr.frames()) >= 1 })
	require.Equal(t, "connection_ack", frameType(t, msgr.frames()[0]))
}

func TestPingPongRoundTripOverEngine(t *testing.T) {
	msgr := newFakeMessenger()
	var pongPayload map[string]interface{}
	e := gtws.NewServerEngine(msgr, nil, nil, gtws.WithOnPong(func(p map[string]interface{}) {
		pongPayload = p
	}))
	_ = e

	msgr.deliver(`{"type":"ping","payload":{"n":1}}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })
	require.Equal(t, "pong", frameType(t, msgr.frames()[0]))

	msgr.deliver(`{"type":"pong","payload":{"n":2}}`)
	eventually(t, func() bool { return pongPayload != nil })
	require.Equal(t, float64(2), pongPayload["n"])
}

func TestIdlePingIsSentOnInterval(t *testing.T) {
	msgr := newFakeMessenger()
	e := gtws.NewServerEngine(msgr, nil, nil, gtws.WithPingInterval(20*time.Millisecond))
	_ = e

	eventually(t, func() bool { return len(msgr.frames()) >= 1 })
	require.Equal(t, "ping", frameType(t, msgr.frames()[0]))
}

func TestMetadataPropagatesFromAuthHookToExecutor(t *testing.T) {
	msgr := newFakeMessenger()
	var seenCtx context.Context

	e := gtws.NewServerEngine(msgr,
		func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.Result, error) {
			seenCtx = ctx
			return &gtws.Result{Data: json.RawMessage(`null`)}, nil
		},
		nil,
		gtws.WithAuth(func(ctx context.Context, payload gtws.InitPayload) error {
			metadata.Set(ctx, "user", "alice")
			return nil
		}),
		gtws.WithCloseOnSubscriptionComplete(false),
	)
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })

	msgr.deliver(`{"type":"subscribe","id":"op-1","payload":{"query":"{ hello }"}}`)
	eventually(t, func() bool { return seenCtx != nil })

	user, ok := metadata.ReadString(seenCtx, "user")
	require.True(t, ok)
	require.Equal(t, "alice", user)
}

func TestCompleteReleasesWithoutClosingWhenConfigured(t *testing.T) {
	msgr := newFakeMessenger()
	ch := make(chan gtws.EventFuture)
	subscriber := func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.SubscriptionResult, error) {
		return &gtws.SubscriptionResult{Stream: gtws.NewChannelSource(ch)}, nil
	}

	e := gtws.NewServerEngine(msgr, nil, subscriber, gtws.WithCompleteClosesSession(false))
	_ = e

	msgr.deliver(`{"type":"connection_init"}`)
	eventually(t, func() bool { return len(msgr.frames()) >= 1 })

	msgr.deliver(`{"type":"subscribe","id":"op-1","payload":{"query":"subscription { tick }"}}`)
	time.Sleep(10 * time.Millisecond)

	msgr.deliver(`{"type":"complete","id":"op-1"}`)
	time.Sleep(10 * time.Millisecond)

	require.False(t, msgr.isClosed())
}
