// Package gtws implements the graphql-transport-ws WebSocket sub-protocol
// core: a pair of peer state machines (server and client) that parse,
// validate, and dispatch the protocol's typed frame vocabulary over an
// opaque duplex message transport.
//
// The protocol itself (wire format, close codes, handshake order) is
// specified by https://github.com/enisdenjo/graphql-ws. This module also
// implements the "DataSync" extension, which additionally allows a client
// to push pre-computed query/mutation results to the server as Next
// frames while a subscription is ongoing.
//
// GraphQL execution, authentication, and the underlying transport are not
// implemented here; they are host-supplied collaborators described by the
// Executor, Subscriber, AuthHook, and Messenger types in this package.
// Concrete transport adapters live in the ws subpackage.
package gtws
