// Package httpx parses a plain HTTP request into a gtws.GraphQLRequest,
// generalizing this corpus's Server.NewRequestOptions to the three content
// types it accepted (JSON body, form-urlencoded, raw "application/graphql"
// body) without the rest of Server's rendering and dispatch concerns.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bloomwire/gtws"
)

const (
	ContentTypeJSON           = "application/json"
	ContentTypeGraphQL        = "application/graphql"
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
)

// requestOptionsCompatibility handles clients that send variables as a
// JSON-encoded string rather than a nested object.
type requestOptionsCompatibility struct {
	Variables string `json:"variables"`
}

func fromForm(values url.Values) *gtws.GraphQLRequest {
	query := values.Get("query")
	if query == "" {
		return nil
	}

	variables := map[string]interface{}{}
	json.Unmarshal([]byte(values.Get("variables")), &variables)

	return &gtws.GraphQLRequest{
		Query:         query,
		Variables:     variables,
		OperationName: values.Get("operationName"),
	}
}

// ParseRequest extracts a GraphQLRequest from r, trying the URL query
// string first and then the body according to its Content-Type. It never
// returns an error; a request this module cannot make sense of is reported
// back as a GraphQLRequest with an empty Query, which the caller's executor
// will reject on its own.
func ParseRequest(r *http.Request) *gtws.GraphQLRequest {
	if req := fromForm(r.URL.Query()); req != nil {
		return req
	}

	if r.Method != http.MethodPost || r.Body == nil {
		return &gtws.GraphQLRequest{}
	}

	contentType := strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])

	switch contentType {
	case ContentTypeGraphQL:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return &gtws.GraphQLRequest{}
		}
		return &gtws.GraphQLRequest{Query: string(body)}

	case ContentTypeFormURLEncoded:
		if err := r.ParseForm(); err != nil {
			return &gtws.GraphQLRequest{}
		}
		if req := fromForm(r.PostForm); req != nil {
			return req
		}
		return &gtws.GraphQLRequest{}

	default:
		var req gtws.GraphQLRequest
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return &req
		}
		if err := json.Unmarshal(body, &req); err != nil {
			var compat requestOptionsCompatibility
			json.Unmarshal(body, &compat)
			json.Unmarshal([]byte(compat.Variables), &req.Variables)
		}
		return &req
	}
}
