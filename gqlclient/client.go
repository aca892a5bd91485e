// Package gqlclient is a minimal one-shot HTTP client for a plain
// (non-WebSocket) GraphQL endpoint, for hosts that only need a one-shot
// query/mutation and don't want to stand up a full ClientEngine session
// for it. Its request/response shapes are the same GraphQLRequest/Result
// the protocol engine itself uses, so a caller mixing this with
// ws.Dialer for subscriptions never has to convert between two
// GraphQL-shaped types.
package gqlclient

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bloomwire/gtws"
)

const defaultRequestTimeout = 10 * time.Second

// Options configures a Client at construction time.
type Options struct {
	URL            string
	Insecure       bool
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client is a one-shot HTTP client for a single GraphQL endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds a Client against opts.URL. A caller that already has
// its own configured *http.Client can supply it via opts.HTTPClient,
// bypassing Insecure/RequestTimeout.
func NewClient(opts *Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout == 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.Insecure},
			},
		}
	}

	return &Client{url: opts.URL, httpClient: httpClient}, nil
}

// Request sends req as a single JSON POST and decodes the response into a
// Response wrapping the server's Result.
func (c *Client) Request(req gtws.GraphQLRequest) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpRsp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpRsp.Body.Close()

	raw, err := io.ReadAll(httpRsp.Body)
	if err != nil {
		return nil, err
	}

	var result gtws.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}

	if httpRsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gqlclient: %s", httpRsp.Status)
	}

	return &Response{raw: raw, result: result}, nil
}
