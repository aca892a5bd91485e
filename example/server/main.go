package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/gqlgo"
	"github.com/bloomwire/gtws/httpx"
	"github.com/bloomwire/gtws/ide"
	"github.com/bloomwire/gtws/logger"
	"github.com/bloomwire/gtws/ws"
)

var playground = ide.NewDefaultPlaygroundOptions()

var addr = ":3000"

func main() {
	l := logger.NewSimpleLogger()
	l.SetLevel(logger.TraceLevel)
	l.Infof("building schema...")

	schema, err := buildSchema(l.LogWrapper)
	if err != nil {
		l.Errorf("failed to build schema: %s", err)
		return
	}

	executor := gqlgo.NewExecutor(*schema, nil)
	subscriber := gqlgo.NewSubscriber(*schema, nil)

	wsHandler := ws.NewHandler(func(r *http.Request, msgr gtws.Messenger) *gtws.ServerEngine {
		return gtws.NewServerEngine(msgr, executor, subscriber,
			gtws.WithLogger(l.LogWrapper),
			gtws.WithPingInterval(30*time.Second),
			gtws.WithConnectionInitTimeout(5*time.Second),
		)
	}, l.LogWrapper)

	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		if ws.IsUpgrade(r) {
			wsHandler.ServeHTTP(w, r)
			return
		}
		serveHTTP(*schema, w, r)
	})

	l.Infof("listening on %s", addr)
	http.ListenAndServe(addr, mux)
}

// serveHTTP answers a plain HTTP GraphQL request outside of any
// graphql-transport-ws session, for clients that never need subscriptions.
// A browser asking for HTML instead gets the GraphQL Playground UI, which
// then talks back to this same endpoint over regular POSTs.
func serveHTTP(schema graphql.Schema, w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html") {
		ide.RenderPlayground(playground, w, r)
		return
	}

	opts := httpx.ParseRequest(r)

	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  opts.Query,
		VariableValues: opts.Variables,
		OperationName:  opts.OperationName,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(result)
}
