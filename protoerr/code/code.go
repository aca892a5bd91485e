// Package code declares the numeric WebSocket close codes the
// graphql-transport-ws protocol sends to a peer.
package code

const (
	BadRequest                     = 4400
	Unauthorized                   = 4401
	ConnectionInitialisationTimeout = 4408
	SubscriberAlreadyExists        = 4409
	TooManyInitialisationRequests  = 4429
	InternalServerError            = 4500
)
