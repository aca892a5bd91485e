package gtws

import "sync"

// chanSource adapts a Go channel of EventFuture into an EventSource. It
// generalizes this corpus's subscription manager, which held a bare
// `chan *graphql.Result` per operation id: parameterizing on EventFuture
// instead lets any Subscriber — not just one built on a specific GraphQL
// execution engine — produce a stream this way.
type chanSource struct {
	ch <-chan EventFuture
}

// NewChannelSource returns an EventSource whose events are read from ch,
// one at a time, each delivered to the observer before the next is read
// off the channel. This keeps per-operation ordering without any locking
// on the producer side: the consuming goroutine blocks on ch between
// events, so a Subscriber that already produces events into an ordered
// channel (e.g. adapting a `chan *graphql.Result` subscription resolver)
// needs no further synchronization to satisfy the fan-out's ordering
// guarantee.
func NewChannelSource(ch <-chan EventFuture) EventSource {
	return &chanSource{ch: ch}
}

func (s *chanSource) Subscribe(observer EventObserver) Disposer {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer func() {
			if observer.OnCompleted != nil {
				observer.OnCompleted()
			}
		}()

		for {
			select {
			case <-done:
				return
			case future, ok := <-s.ch:
				if !ok {
					return
				}
				if observer.OnEvent != nil {
					observer.OnEvent(future)
				}
			}
		}
	}()

	return DisposerFunc(func() {
		once.Do(func() { close(done) })
	})
}
