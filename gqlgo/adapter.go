// Package gqlgo adapts github.com/graphql-go/graphql schemas into the
// gtws.Executor and gtws.Subscriber contracts, generalizing this
// corpus's own use of graphql.Do/graphql.Subscribe inside
// wsConnection.handleSubscribe away from that handler's
// protocol-specific envelope and into the module's abstract
// Result/EventSource shapes.
package gqlgo

import (
	"context"
	"encoding/json"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/utils"
)

// RootFunc supplies the root value object for one operation. It may
// return any value a host finds convenient to build (a struct, a session
// record pulled from context) rather than graphql-go's own
// map[string]interface{} shape directly; rootObject re-marshals it.
type RootFunc func(ctx context.Context) interface{}

// NewExecutor adapts schema into a gtws.Executor that runs every
// query/mutation it's handed through graphql.Do.
func NewExecutor(schema graphql.Schema, root RootFunc) gtws.Executor {
	return func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.Result, error) {
		res := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			RootObject:     rootObject(ctx, root),
			Context:        ctx,
		})

		return toResult(res), nil
	}
}

// NewSubscriber adapts schema into a gtws.Subscriber that runs every
// subscription it's handed through graphql.Subscribe, translating the
// resulting chan *graphql.Result into an EventSource. The returned
// Disposer's Dispose cancels the context derived from ctx and handed to
// graphql.Subscribe, which stops graphql-go's own resolver goroutine, the
// same way this corpus's cancelFunc did.
func NewSubscriber(schema graphql.Schema, root RootFunc) gtws.Subscriber {
	return func(ctx context.Context, req *gtws.GraphQLRequest) (*gtws.SubscriptionResult, error) {
		subCtx, cancel := context.WithCancel(ctx)

		resultChannel := graphql.Subscribe(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			RootObject:     rootObject(subCtx, root),
			Context:        subCtx,
		})

		return &gtws.SubscriptionResult{
			Stream: &channelSource{
				inner:  gtws.NewChannelSource(pump(resultChannel)),
				cancel: cancel,
			},
		}, nil
	}
}

// channelSource wraps the EventSource backing one graphql.Subscribe
// channel so that disposing it also cancels the context that channel's
// resolver goroutine is watching, rather than just stopping delivery to
// this particular observer.
type channelSource struct {
	inner  gtws.EventSource
	cancel context.CancelFunc
}

func (s *channelSource) Subscribe(observer gtws.EventObserver) gtws.Disposer {
	d := s.inner.Subscribe(observer)
	return gtws.DisposerFunc(func() {
		d.Dispose()
		s.cancel()
	})
}

// pump translates a chan *graphql.Result into the chan gtws.EventFuture
// gtws.NewChannelSource expects, wrapping each already-resolved result in
// a future that ignores the context it's given — the work is done by the
// time it arrives on resultChannel.
func pump(resultChannel chan *graphql.Result) <-chan gtws.EventFuture {
	out := make(chan gtws.EventFuture)

	go func() {
		defer close(out)
		for res := range resultChannel {
			res := res
			out <- func(context.Context) (*gtws.Result, error) {
				return toResult(res), nil
			}
		}
	}()

	return out
}

// rootObject calls root and re-marshals whatever it returns into the
// map[string]interface{} graphql-go's RootObject expects, so a host can
// supply a root value of any encodable shape without hand-building a map.
func rootObject(ctx context.Context, root RootFunc) map[string]interface{} {
	out := map[string]interface{}{}
	if root == nil {
		return out
	}

	v := root(ctx)
	if v == nil {
		return out
	}

	if err := utils.ReMarshal(v, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func toResult(res *graphql.Result) *gtws.Result {
	data, _ := json.Marshal(res.Data)
	return &gtws.Result{
		Data:   json.RawMessage(data),
		Errors: toErrorList(res.Errors),
	}
}

func toErrorList(errs gqlerrors.FormattedErrors) gtws.ErrorList {
	if len(errs) == 0 {
		return nil
	}

	list := make(gtws.ErrorList, len(errs))
	for i, e := range errs {
		ge := &gtws.GraphQLError{Message: e.Message, Path: e.Path}
		for _, loc := range e.Locations {
			ge.Locations = append(ge.Locations, gtws.ErrorLocation{Line: loc.Line, Column: loc.Column})
		}
		list[i] = ge
	}
	return list
}
