// Package utils implements small helpers shared by the server and client
// engines: converting between dynamically-typed payloads, and classifying
// a GraphQL request as streaming or one-shot ahead of dispatch.
package utils

import (
	"encoding/json"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ReMarshal converts one type to another by round-tripping through JSON.
func ReMarshal(in, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// OperationKind is the GraphQL operation kind a Subscribe frame's query
// selects, used to decide whether the server treats it as streaming
// (subscription) or one-shot (query/mutation).
type OperationKind int

const (
	OperationUnknown OperationKind = iota
	OperationQuery
	OperationMutation
	OperationSubscription
)

// ClassifyOperation parses query and reports the operation kind of the
// operation named operationName (or the query's only operation, if it
// defines exactly one and operationName is empty). A parse failure or an
// ambiguous/missing operation name is returned as an error; callers
// report it as an Error{id, [err]} without any preceding Next.
func ClassifyOperation(query, operationName string) (OperationKind, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query, Name: "graphql-transport-ws request"})
	if err != nil {
		return OperationUnknown, err
	}

	if operationName == "" && len(doc.Operations) > 1 {
		return OperationUnknown, fmt.Errorf("must provide operationName when the query defines multiple operations")
	}

	op := doc.Operations.ForName(operationName)
	if op == nil {
		return OperationUnknown, fmt.Errorf("no operation found for name %q", operationName)
	}

	switch op.Operation {
	case ast.Query:
		return OperationQuery, nil
	case ast.Mutation:
		return OperationMutation, nil
	case ast.Subscription:
		return OperationSubscription, nil
	default:
		return OperationUnknown, fmt.Errorf("unrecognized operation kind %q", op.Operation)
	}
}
