package gtws

import (
	"context"
	"sync"
	"time"

	"github.com/bloomwire/gtws/fanout"
	"github.com/bloomwire/gtws/frame"
	"github.com/bloomwire/gtws/logger"
	"github.com/bloomwire/gtws/metadata"
	"github.com/bloomwire/gtws/protoerr"
	"github.com/bloomwire/gtws/utils"
	"github.com/bloomwire/gtws/utils/interval"
)

// ServerEngine is the server-side graphql-transport-ws peer state
// machine: it interprets inbound client frames, drives
// the host-supplied Executor/Subscriber, and emits outbound server
// frames over a Messenger. It generalizes this corpus's wsConnection,
// which played the same role directly against *websocket.Conn and
// *graphql.Params/Result; here every GraphQL-engine-specific type is
// replaced by this module's abstract Executor/Subscriber/Result
// contracts.
type ServerEngine struct {
	cfg *serverConfig

	msgr       Messenger
	executor   Executor
	subscriber Subscriber

	mu          sync.Mutex
	initialized bool
	metaCtx     context.Context
	closed      bool

	bag      *fanout.Bag
	pingTick *interval.Interval
}

// NewServerEngine constructs a ServerEngine bound to msgr. executor
// serves one-shot (query/mutation) operations; subscriber serves
// streaming (subscription) operations. Either may be nil if the host
// never intends to receive that kind of operation; attempting one
// against a nil handler is reported to the peer as an Error frame rather
// than a panic.
func NewServerEngine(msgr Messenger, executor Executor, subscriber Subscriber, opts ...ServerOption) *ServerEngine {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	e := &ServerEngine{
		cfg:        cfg,
		msgr:       msgr,
		executor:   executor,
		subscriber: subscriber,
		bag:        fanout.New(),
	}

	msgr.OnReceive(e.receive)

	if cfg.pingInterval > 0 {
		e.pingTick = interval.SetInterval(func(*interval.Interval) {
			e.sendPing(nil)
		}, cfg.pingInterval)
	}

	if cfg.connectionInitTimeout > 0 {
		time.AfterFunc(cfg.connectionInitTimeout, func() {
			e.mu.Lock()
			init := e.initialized
			e.mu.Unlock()
			if !init {
				e.fatal(protoerr.ConnectionInitTimeout())
			}
		})
	}

	return e
}

// HandleClose drains every outstanding subscription fan-out and fires
// onExit. Transport adapters call this when the underlying connection
// drops outside of any frame the engine itself sent — the engine has no
// other way to learn the transport closed, since Messenger exposes no
// close-notification. Uncompleted subscriptions are cleaned up through
// this explicit teardown entrypoint rather than silently leaking, unlike
// the TODOs this corpus left in its own connection.close().
func (e *ServerEngine) HandleClose() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	if e.pingTick != nil {
		e.pingTick.Clear()
	}
	e.bag.DisposeAll()

	if e.cfg.onExit != nil {
		e.cfg.onExit()
	}
}

// teardownAndClose drains every outstanding fan-out and closes the
// transport. It is the path by which a one-shot operation's deliberate
// "close when done" path still honors the rule that the session owns
// every fan-out it started, even though the
// operation that triggered the close may not be the only one active.
func (e *ServerEngine) teardownAndClose() {
	e.HandleClose()
	e.msgr.Close()
}

func (e *ServerEngine) resetIdleTimer() {
	if e.pingTick != nil {
		e.pingTick.Reset(e.cfg.pingInterval)
	}
}

// receive is the Messenger's registered callback: one inbound text
// message, triaged and dispatched. Messenger guarantees at most one
// delivery in flight, so receive itself never needs to fence against
// concurrent calls of itself, only against asynchronous completions
// (auth/executor/subscriber/event futures) that re-enter session state
// from other goroutines.
func (e *ServerEngine) receive(text string) {
	data := []byte(text)

	if frame.HasClosePrefix(data) {
		return
	}

	if e.cfg.onMessage != nil {
		e.cfg.onMessage(text)
	}

	e.resetIdleTimer()

	typ, err := frame.PeekType(data)
	if err != nil {
		e.fatal(protoerr.InvalidEncoding(err))
		return
	}

	switch frame.Type(typ) {
	case frame.TypeConnectionInit:
		e.handleConnectionInit(data)
	case frame.TypeSubscribe:
		e.handleSubscribe(data)
	case frame.TypeComplete:
		e.handleComplete(data)
	case frame.TypeNext:
		e.handleNext(data)
	case frame.TypePing:
		e.handlePing(data)
	case frame.TypePong:
		e.handlePong(data)
	case "":
		e.fatal(protoerr.NoType())
	default:
		e.fatal(protoerr.InvalidType(typ))
	}
}

func (e *ServerEngine) handleConnectionInit(data []byte) {
	f, err := frame.DecodeConnectionInit(data)
	if err != nil {
		e.fatal(protoerr.InvalidRequestFormat(string(frame.TypeConnectionInit), err))
		return
	}

	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		e.fatal(protoerr.TooManyInitializations())
		return
	}
	e.mu.Unlock()

	go func() {
		metaCtx := metadata.New()
		var authErr error
		if e.cfg.auth != nil {
			authErr = e.cfg.auth(metaCtx, f.Payload)
		}

		if authErr != nil {
			e.fatal(protoerr.Unauthorized(authErr))
			return
		}

		e.mu.Lock()
		if e.initialized {
			e.mu.Unlock()
			e.fatal(protoerr.TooManyInitializations())
			return
		}
		e.initialized = true
		e.metaCtx = metaCtx
		e.mu.Unlock()

		e.send(frame.EncodeConnectionAck(nil))
	}()
}

func (e *ServerEngine) requireInitialized() (context.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metaCtx, e.initialized
}

func (e *ServerEngine) handleSubscribe(data []byte) {
	sf, err := frame.DecodeSubscribe(data)
	if err != nil {
		e.fatal(protoerr.InvalidRequestFormat(string(frame.TypeSubscribe), err))
		return
	}

	ctx, initialized := e.requireInitialized()
	if !initialized {
		e.fatal(protoerr.NotInitialized())
		return
	}

	if err := e.bag.Reserve(sf.ID); err != nil {
		e.fatal(protoerr.SubscriberAlreadyExists(sf.ID))
		return
	}

	go e.runSubscribe(ctx, sf)
}

func (e *ServerEngine) runSubscribe(ctx context.Context, sf *frame.SubscribeFrame) {
	req := sf.Payload
	kind, err := utils.ClassifyOperation(req.Query, req.OperationName)
	if err != nil {
		e.operationError(sf.ID, WrapError(err))
		return
	}

	if kind == utils.OperationSubscription {
		e.runStreaming(ctx, sf.ID, &req)
		return
	}

	e.runOneShot(ctx, sf.ID, &req)
}

func (e *ServerEngine) runOneShot(ctx context.Context, id string, req *GraphQLRequest) {
	defer e.bag.Release(id)

	if e.executor == nil {
		e.operationError(id, ErrorList{{Message: "no executor configured"}})
		e.teardownAndClose()
		return
	}

	result, err := e.executor(ctx, req)
	if err != nil {
		e.operationError(id, WrapError(err))
		e.operationComplete(id)
	} else {
		data, encErr := frame.EncodeNext(id, result)
		e.sendFor(id, data, encErr)
		e.operationComplete(id)
	}

	e.teardownAndClose()
}

func (e *ServerEngine) runStreaming(ctx context.Context, id string, req *GraphQLRequest) {
	if e.subscriber == nil {
		e.bag.Release(id)
		e.operationError(id, ErrorList{{Message: "no subscriber configured"}})
		return
	}

	subResult, err := e.subscriber(ctx, req)
	if err != nil {
		e.bag.Release(id)
		e.operationError(id, WrapError(err))
		return
	}

	if subResult == nil || subResult.Stream == nil {
		e.bag.Release(id)
		if subResult != nil && len(subResult.Errors) > 0 {
			e.operationError(id, subResult.Errors)
		} else {
			e.fatal(protoerr.InternalAPIStreamIssue())
		}
		return
	}

	disposer := subResult.Stream.Subscribe(EventObserver{
		OnEvent: func(future EventFuture) {
			result, err := future(ctx)
			if err != nil {
				if !e.bag.Has(id) {
					return
				}
				e.bag.Release(id)
				e.operationError(id, WrapError(err))
				return
			}
			if !e.bag.Has(id) {
				return
			}
			data, encErr := frame.EncodeNext(id, result)
			e.sendFor(id, data, encErr)
		},
		OnError: func(err error) {
			if !e.bag.Has(id) {
				return
			}
			e.bag.Release(id)
			e.operationError(id, WrapError(err))
		},
		OnCompleted: func() {
			if !e.bag.Has(id) {
				return
			}
			e.bag.Release(id)
			e.operationComplete(id)
			if e.cfg.closeOnSubscriptionComplete {
				e.teardownAndClose()
			}
		},
	})

	if err := e.bag.Attach(id, disposer); err != nil {
		disposer.Dispose()
	}
}

func (e *ServerEngine) handleComplete(data []byte) {
	cf, err := frame.DecodeComplete(data)
	if err != nil {
		e.fatal(protoerr.InvalidRequestFormat(string(frame.TypeComplete), err))
		return
	}

	e.bag.Release(cf.ID)

	if e.cfg.onOperationComplete != nil {
		e.cfg.onOperationComplete(cf.ID)
	}

	if e.cfg.completeClosesSession {
		e.teardownAndClose()
	}
}

func (e *ServerEngine) handleNext(data []byte) {
	nf, err := frame.DecodeNext(data)
	if err != nil {
		e.fatal(protoerr.InvalidRequestFormat(string(frame.TypeNext), err))
		return
	}

	ctx, initialized := e.requireInitialized()
	if !initialized {
		e.fatal(protoerr.NotInitialized())
		return
	}

	if q := payloadQuery(nf); q != "" {
		if kind, err := utils.ClassifyOperation(q, ""); err == nil && kind == utils.OperationSubscription {
			ce := protoerr.InvalidRequestFormat(string(frame.TypeNext), nil)
			data, encErr := frame.EncodeError(nf.ID, ErrorList{{
				Message:    ce.Error(),
				Extensions: map[string]interface{}{"code": ce.Code},
			}})
			e.sendFor(nf.ID, data, encErr)
			return
		}
	}

	if e.cfg.onNext == nil {
		return
	}

	go func() {
		if err := e.cfg.onNext(ctx, nf.ID, &nf.Payload); err != nil {
			data, encErr := frame.EncodeError(nf.ID, WrapError(err))
			e.sendFor(nf.ID, data, encErr)
		}
	}()
}

// payloadQuery extracts a best-effort GraphQL query string from a
// DataSync Next frame's result payload, if the host encoded one under a
// recognized extension key. DataSync Next payloads are GraphQL results,
// not requests, so classification only applies when the host chooses to
// carry the originating query for this guard; absent that, there is
// nothing to classify and the Next is accepted.
func payloadQuery(nf *frame.NextFrame) string {
	if nf.Payload.Extensions == nil {
		return ""
	}
	q, _ := nf.Payload.Extensions["query"].(string)
	return q
}

func (e *ServerEngine) handlePing(data []byte) {
	pf, err := frame.DecodePing(data)
	if err != nil {
		e.fatal(protoerr.InvalidRequestFormat(string(frame.TypePing), err))
		return
	}

	if e.cfg.onPing != nil {
		e.cfg.onPing(pf.Payload)
	}

	e.send(frame.EncodePong(pf.Payload))
}

func (e *ServerEngine) handlePong(data []byte) {
	pf, err := frame.DecodePong(data)
	if err != nil {
		e.fatal(protoerr.InvalidRequestFormat(string(frame.TypePong), err))
		return
	}

	if e.cfg.onPong != nil {
		e.cfg.onPong(pf.Payload)
	}
}

func (e *ServerEngine) sendPing(payload map[string]interface{}) {
	e.send(frame.EncodePing(payload))
}

func (e *ServerEngine) operationComplete(id string) {
	data, encErr := frame.EncodeComplete(id)
	e.sendFor(id, data, encErr)
	if e.cfg.onOperationComplete != nil {
		e.cfg.onOperationComplete(id)
	}
}

func (e *ServerEngine) operationError(id string, errs ErrorList) {
	data, encErr := frame.EncodeError(id, errs)
	e.sendFor(id, data, encErr)
	if e.cfg.onOperationError != nil {
		e.cfg.onOperationError(id, errs)
	}
}

// send encodes and writes a frame, logging (rather than closing the
// session on) an encode failure — an encode failure here is this
// module's own bug, not a peer fault, so it must not be reported to the
// peer as a protocol error.
func (e *ServerEngine) send(data []byte, err error) {
	e.sendWith(e.cfg.log, data, err)
}

// sendFor is send for a frame that belongs to one operation id, tagging
// any failure it logs with that id.
func (e *ServerEngine) sendFor(id string, data []byte, err error) {
	e.sendWith(e.cfg.log.WithOperation(id), data, err)
}

func (e *ServerEngine) sendWith(log *logger.LogWrapper, data []byte, err error) {
	if err != nil {
		log.WithError(err).Errorf("failed to encode outbound frame")
		return
	}

	if err := e.msgr.Send(string(data)); err != nil {
		log.WithError(err).Warnf("failed to send frame")
	}
}

// fatal reports a CloseError to the peer and tears the session down.
func (e *ServerEngine) fatal(ce protoerr.CloseError) {
	e.cfg.log.WithError(ce).Debugf("closing session")
	e.msgr.Error(ce.Error(), ce.Code)
	e.HandleClose()
}
