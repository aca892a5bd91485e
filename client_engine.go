package gtws

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bloomwire/gtws/fanout"
	"github.com/bloomwire/gtws/frame"
	"github.com/bloomwire/gtws/logger"
	"github.com/bloomwire/gtws/protoerr"
)

// ClientEngine is the client-side graphql-transport-ws peer state
// machine: it sends the outbound operations a client drives (connection
// init, subscribe, complete, the DataSync observable push) and dispatches
// inbound server frames to the callbacks registered through
// ClientOption. It mirrors ServerEngine's shape, generalized to the
// opposite role the same protocol plays for the peer that dials out.
type ClientEngine struct {
	cfg  *clientConfig
	msgr Messenger

	mu     sync.Mutex
	subIDs map[string]struct{}
	closed bool
	dsBag  *fanout.Bag
}

// NewClientEngine constructs a ClientEngine bound to msgr. Wire it to a
// concrete transport by having the adapter call msgr.OnReceive before any
// frame is expected, or rely on NewClientEngine itself to register the
// dispatch callback, as it does here.
func NewClientEngine(msgr Messenger, opts ...ClientOption) *ClientEngine {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &ClientEngine{
		cfg:    cfg,
		msgr:   msgr,
		subIDs: map[string]struct{}{},
		dsBag:  fanout.New(),
	}

	msgr.OnReceive(c.receive)

	return c
}

// receive triages and dispatches one inbound server frame. A server is
// just as capable of sending a malformed or unrecognized frame as a
// client is, so the failure modes mirror ServerEngine.receive exactly,
// substituting InvalidResponseFormat for InvalidRequestFormat.
func (c *ClientEngine) receive(text string) {
	data := []byte(text)

	if frame.HasClosePrefix(data) {
		return
	}

	if c.cfg.onMessage != nil {
		c.cfg.onMessage(text)
	}

	typ, err := frame.PeekType(data)
	if err != nil {
		c.fatal(protoerr.InvalidEncoding(err))
		return
	}

	switch frame.Type(typ) {
	case frame.TypeConnectionAck:
		c.handleConnectionAck(data)
	case frame.TypeNext:
		c.handleNext(data)
	case frame.TypeError:
		c.handleError(data)
	case frame.TypeComplete:
		c.handleComplete(data)
	case frame.TypePing:
		c.handlePing(data)
	case frame.TypePong:
		c.handlePong(data)
	case "":
		c.fatal(protoerr.NoType())
	default:
		c.fatal(protoerr.InvalidType(typ))
	}
}

func (c *ClientEngine) handleConnectionAck(data []byte) {
	af, err := frame.DecodeConnectionAck(data)
	if err != nil {
		c.fatal(protoerr.InvalidResponseFormat(string(frame.TypeConnectionAck), err))
		return
	}

	if c.cfg.onConnectionAck != nil {
		c.cfg.onConnectionAck(af, c)
	}
}

func (c *ClientEngine) handleNext(data []byte) {
	nf, err := frame.DecodeNext(data)
	if err != nil {
		c.fatal(protoerr.InvalidResponseFormat(string(frame.TypeNext), err))
		return
	}

	if c.cfg.onNext != nil {
		c.cfg.onNext(nf, c)
	}
}

func (c *ClientEngine) handleError(data []byte) {
	ef, err := frame.DecodeError(data)
	if err != nil {
		c.fatal(protoerr.InvalidResponseFormat(string(frame.TypeError), err))
		return
	}

	c.forgetSubscription(ef.ID)

	if c.cfg.onError != nil {
		c.cfg.onError(ef, c)
	}
}

func (c *ClientEngine) handleComplete(data []byte) {
	cf, err := frame.DecodeComplete(data)
	if err != nil {
		c.fatal(protoerr.InvalidResponseFormat(string(frame.TypeComplete), err))
		return
	}

	c.forgetSubscription(cf.ID)

	if c.cfg.onComplete != nil {
		c.cfg.onComplete(cf, c)
	}
}

func (c *ClientEngine) handlePing(data []byte) {
	pf, err := frame.DecodePing(data)
	if err != nil {
		c.fatal(protoerr.InvalidResponseFormat(string(frame.TypePing), err))
		return
	}

	if c.cfg.onPing != nil {
		c.cfg.onPing(pf.Payload)
	}

	if c.cfg.autoPong {
		c.send(frame.EncodePong(pf.Payload))
	}
}

func (c *ClientEngine) handlePong(data []byte) {
	pf, err := frame.DecodePong(data)
	if err != nil {
		c.fatal(protoerr.InvalidResponseFormat(string(frame.TypePong), err))
		return
	}

	if c.cfg.onPong != nil {
		c.cfg.onPong(pf.Payload)
	}
}

// SendConnectionInit sends the session-opening connection_init frame.
// payload may be nil.
func (c *ClientEngine) SendConnectionInit(payload InitPayload) error {
	data, err := frame.EncodeConnectionInit(payload)
	if err != nil {
		return err
	}
	return c.msgr.Send(string(data))
}

// SendSubscribe sends a subscribe frame naming id, remembering id so a
// later DataSync push can avoid colliding with it. Re-using an id already
// in flight is a caller bug, not a protocol condition this engine can
// enforce on itself — the server is the one that rejects the collision.
func (c *ClientEngine) SendSubscribe(id string, req *GraphQLRequest) error {
	data, err := frame.EncodeSubscribe(id, req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subIDs[id] = struct{}{}
	c.mu.Unlock()

	return c.msgr.Send(string(data))
}

// SendComplete sends a complete frame for id, ending that operation from
// the client's side (a subscription it no longer wants, or an early
// cancellation of a one-shot still in flight).
func (c *ClientEngine) SendComplete(id string) error {
	data, err := frame.EncodeComplete(id)
	if err != nil {
		return err
	}

	c.forgetSubscription(id)
	return c.msgr.Send(string(data))
}

// SendPing sends a ping frame, the client-initiated half of the liveness
// check; the server engine answers with a pong automatically.
func (c *ClientEngine) SendPing(payload map[string]interface{}) error {
	data, err := frame.EncodePing(payload)
	if err != nil {
		return err
	}
	return c.msgr.Send(string(data))
}

// AddObservableSubscription is the DataSync client-to-server push: it
// subscribes to source and, for every event it produces, emits a next
// frame under a freshly generated id that is guaranteed not to collide
// with any server-to-client subscribe this client currently has open. The
// returned Disposer unsubscribes from source; it does not itself send a
// complete frame, since the ids it mints are never subscribed on the
// server side and so have nothing there to complete. The subscription
// itself is tracked in dsBag so a session teardown disposes it along with
// everything else this client started.
func (c *ClientEngine) AddObservableSubscription(source EventSource) Disposer {
	key := "ds-" + uuid.NewString()
	_ = c.dsBag.Reserve(key)

	disposer := source.Subscribe(EventObserver{
		OnEvent: func(future EventFuture) {
			result, err := future(context.Background())
			if err != nil {
				c.fatal(protoerr.GraphQLErrorClose(err, 4500))
				return
			}
			id := c.freshDataSyncID()
			data, encErr := frame.EncodeNext(id, result)
			c.sendFor(id, data, encErr)
		},
		OnError: func(err error) {
			c.dsBag.Release(key)
			c.fatal(protoerr.GraphQLErrorClose(err, 4500))
		},
		OnCompleted: func() {
			c.dsBag.Release(key)
		},
	})

	if err := c.dsBag.Attach(key, disposer); err != nil {
		disposer.Dispose()
	}

	return disposer
}

// freshDataSyncID mints an operation id for a DataSync push, retrying on
// the astronomically unlikely event that uuid.NewString collides with an
// id this client currently has subscribed on the server.
func (c *ClientEngine) freshDataSyncID() string {
	for {
		id := uuid.NewString()

		c.mu.Lock()
		_, taken := c.subIDs[id]
		c.mu.Unlock()

		if !taken {
			return id
		}
	}
}

func (c *ClientEngine) forgetSubscription(id string) {
	c.mu.Lock()
	delete(c.subIDs, id)
	c.mu.Unlock()
}

// send encodes and writes a frame, logging (rather than closing the
// connection on) an encode failure — an encode failure here is this
// module's own bug, not a peer fault.
func (c *ClientEngine) send(data []byte, err error) {
	c.sendWith(c.cfg.log, data, err)
}

// sendFor is send for a frame that belongs to one operation id, tagging
// any failure it logs with that id.
func (c *ClientEngine) sendFor(id string, data []byte, err error) {
	c.sendWith(c.cfg.log.WithOperation(id), data, err)
}

func (c *ClientEngine) sendWith(log *logger.LogWrapper, data []byte, err error) {
	if err != nil {
		log.WithError(err).Errorf("failed to encode outbound frame")
		return
	}

	if err := c.msgr.Send(string(data)); err != nil {
		log.WithError(err).Warnf("failed to send frame")
	}
}

// HandleClose drains every DataSync subscription this client started.
// Transport adapters call this when the underlying connection drops
// outside of any frame the engine itself sent, mirroring
// ServerEngine.HandleClose for the client side.
func (c *ClientEngine) HandleClose() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.dsBag.DisposeAll()
}

// fatal reports a CloseError to the peer and tears the transport down,
// mirroring ServerEngine.fatal for the client side.
func (c *ClientEngine) fatal(ce protoerr.CloseError) {
	c.cfg.log.WithError(ce).Debugf("closing session")
	c.msgr.Error(ce.Error(), ce.Code)
	c.HandleClose()
}
