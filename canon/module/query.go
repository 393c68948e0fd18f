// Package module implements the guest/host invocation protocol from
// spec.md §4.4/§6: Query (read-only) and Transaction (state-mutating)
// wrappers carrying a numeric method id, the shared-page wire convention
// guest code decodes against, and the host-side invoker that drives a
// wasmer-go instance through it.
//
// Grounded on canon_module/src/query.rs + transaction.rs (the wrapper
// types) and on core/virtual_machine.go's HeavyVM/registerHost (the
// wasmer-go host binding style) from the teacher repo.
package module

import "synnergy-canon/canon"

// MethodID identifies one of a module's up to 256 exposed operations.
type MethodID = byte

// Query is a read-only invocation: it carries arguments of type A and
// expects a result of type R, dispatched by Method against a receiver of
// type S. Only Args is part of the wire encoding — Method travels
// alongside it in the page, between the receiver and the args (see
// HandleQuery for the page layout), and R only constrains
// the caller's decode step.
type Query[A canon.Canon, R canon.Canon] struct {
	Method MethodID
	Args   A
}

// NewQuery constructs a Query for the given method and arguments.
func NewQuery[A canon.Canon, R canon.Canon](method MethodID, args A) Query[A, R] {
	return Query[A, R]{Method: method, Args: args}
}

func (q Query[A, R]) EncodedLen() int { return q.Args.EncodedLen() }

func (q Query[A, R]) WriteTo(sink canon.Sink) error { return q.Args.WriteTo(sink) }
