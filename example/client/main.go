// Command client is a minimal demonstration of gqlclient against the
// plain-HTTP endpoint served by example/server, and of ws.Dialer against
// its graphql-transport-ws endpoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/frame"
	"github.com/bloomwire/gtws/gqlclient"
	"github.com/bloomwire/gtws/ws"
)

func main() {
	httpClient, err := gqlclient.NewClient(&gqlclient.Options{URL: "http://localhost:3000/graphql"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build http client:", err)
		os.Exit(1)
	}

	rsp, err := httpClient.Request(gtws.GraphQLRequest{Query: "{ hello }"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "one-shot query failed:", err)
	} else if rsp.HasErrors() {
		fmt.Fprintln(os.Stderr, "one-shot query returned errors:", rsp.FirstError())
	} else {
		fmt.Println("hello query result:", string(rsp.Data()))
	}

	dialer := ws.NewDialer("ws://localhost:3000/graphql", func(msgr gtws.Messenger) *gtws.ClientEngine {
		engine := gtws.NewClientEngine(msgr,
			gtws.WithOnConnectionAck(func(f *frame.ConnectionAckFrame, engine *gtws.ClientEngine) {
				engine.SendSubscribe("watch-1", &gtws.GraphQLRequest{Query: "subscription { watch(iterations: 3, waitSeconds: 1) }"})
			}),
			gtws.WithClientOnNext(func(f *frame.NextFrame, engine *gtws.ClientEngine) {
				fmt.Println("watch event:", string(f.Payload.Data))
			}),
			gtws.WithOnComplete(func(f *frame.CompleteFrame, engine *gtws.ClientEngine) {
				fmt.Println("subscription complete")
			}),
		)
		engine.SendConnectionInit(nil)
		return engine
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dialer.Run(ctx)
}
