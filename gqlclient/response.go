package gqlclient

import "github.com/bloomwire/gtws"

// Response wraps the decoded gtws.Result a one-shot request returned,
// alongside the raw response body for callers that want it.
type Response struct {
	raw    []byte
	result gtws.Result
}

// Raw returns the unparsed response body.
func (r *Response) Raw() []byte {
	return r.raw
}

// Data returns the result's data field, undecoded.
func (r *Response) Data() []byte {
	return r.result.Data
}

// Errors returns every GraphQL error the server returned, in order.
func (r *Response) Errors() gtws.ErrorList {
	return r.result.Errors
}

// FirstError returns the first error the server returned, or nil.
func (r *Response) FirstError() *gtws.GraphQLError {
	if !r.HasErrors() {
		return nil
	}
	return r.result.Errors[0]
}

// HasErrors reports whether the server returned any GraphQL errors.
func (r *Response) HasErrors() bool {
	return len(r.result.Errors) > 0
}
