// Package ide serves the GraphQL Playground UI, wired against this
// module's own graphql-transport-ws subprotocol rather than a generic
// WebSocket guess, so the UI's subscription panel dials the same session
// endpoint ws.Handler accepts connections on.
package ide

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/bloomwire/gtws/ws"
)

// PlaygroundVersion the default version to use
var PlaygroundVersion = "1.7.28"

// PlaygroundOptions configures the rendered Playground UI. SubProtocol
// defaults to ws.Subprotocol, the one graphql-transport-ws subprotocol
// this module's server engine actually negotiates; it exists as a field
// rather than a hardcoded string only so a host fronting this module
// behind some other negotiated name can override it.
type PlaygroundOptions struct {
	Version              string
	SSL                  bool
	Endpoint             string
	SubscriptionEndpoint string
	SubProtocol          string
}

func NewDefaultPlaygroundOptions() *PlaygroundOptions {
	return &PlaygroundOptions{
		Version:     PlaygroundVersion,
		SubProtocol: ws.Subprotocol,
	}
}

func NewDefaultSSLPlaygroundOptions() *PlaygroundOptions {
	return &PlaygroundOptions{
		Version:     PlaygroundVersion,
		SSL:         true,
		SubProtocol: ws.Subprotocol,
	}
}

type playgroundData struct {
	PlaygroundVersion    string
	Endpoint             string
	SubscriptionEndpoint string
	SubProtocol          string
	SetTitle             bool
}

// RenderPlayground renders the Playground UI, pointing its subscription
// panel at the graphql-transport-ws session endpoint this request was
// served on (or config.SubscriptionEndpoint, if a host overrides it).
func RenderPlayground(config *PlaygroundOptions, w http.ResponseWriter, r *http.Request) {
	t := template.New("Playground")
	t, err := t.Parse(graphqlTransportWSPlaygroundTemplate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	endpoint := r.URL.Path
	if config.Endpoint != "" {
		endpoint = config.Endpoint
	}

	wsScheme := "ws:"
	if config.SSL {
		wsScheme = "wss:"
	}

	subscriptionEndpoint := fmt.Sprintf("%s//%v%s", wsScheme, r.Host, r.URL.Path)
	if config.SubscriptionEndpoint != "" {
		subscriptionEndpoint = config.SubscriptionEndpoint
	}

	subProtocol := config.SubProtocol
	if subProtocol == "" {
		subProtocol = ws.Subprotocol
	}

	version := ""
	if config.Version != "" {
		version = fmt.Sprintf("@%s", strings.TrimLeft(config.Version, "@"))
	}

	d := playgroundData{
		PlaygroundVersion:    version,
		Endpoint:             endpoint,
		SubscriptionEndpoint: subscriptionEndpoint,
		SubProtocol:          subProtocol,
		SetTitle:             true,
	}
	err = t.ExecuteTemplate(w, "index", d)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

const graphqlTransportWSPlaygroundTemplate = `
{{ define "index" }}
<!DOCTYPE html>
<html>
<!-- subscriptions negotiate the {{ .SubProtocol }} subprotocol -->

<head>
  <meta charset=utf-8/>
  <meta name="viewport" content="user-scalable=no, initial-scale=1.0, minimum-scale=1.0, maximum-scale=1.0, minimal-ui">
  <title>GraphQL Playground</title>
  <link rel="stylesheet" href="//cdn.jsdelivr.net/npm/graphql-playground-react{{ .PlaygroundVersion }}/build/static/css/index.css" />
  <link rel="shortcut icon" href="//cdn.jsdelivr.net/npm/graphql-playground-react{{ .PlaygroundVersion }}/build/favicon.png" />
  <script src="//cdn.jsdelivr.net/npm/graphql-playground-react{{ .PlaygroundVersion }}/build/static/js/middleware.js"></script>
</head>

<body>
  <div id="root">
    <style>
      body {
        background-color: rgb(23, 42, 58);
        font-family: Open Sans, sans-serif;
        height: 90vh;
      }

      #root {
        height: 100%;
        width: 100%;
        display: flex;
        align-items: center;
        justify-content: center;
      }

      .loading {
        font-size: 32px;
        font-weight: 200;
        color: rgba(255, 255, 255, .6);
        margin-left: 20px;
      }

      img {
        width: 78px;
        height: 78px;
      }

      .title {
        font-weight: 400;
      }
    </style>
    <img src='//cdn.jsdelivr.net/npm/graphql-playground-react/build/logo.png' alt=''>
    <div class="loading"> Loading
      <span class="title">GraphQL Playground</span>
    </div>
  </div>
  <script>window.addEventListener('load', function (event) {
      GraphQLPlayground.init(document.getElementById('root'), {
        endpoint: {{ .Endpoint }},
        subscriptionEndpoint: {{ .SubscriptionEndpoint }},
        setTitle: {{ .SetTitle }}
      })
    })</script>
</body>

</html>
{{ end }}
`
