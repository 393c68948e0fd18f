package module

import "synnergy-canon/canon"

// Transaction is a state-mutating invocation: like Query, but the guest
// dispatch stub also writes back an updated receiver, which becomes the
// caller's new state.
type Transaction[A canon.Canon, R canon.Canon] struct {
	Method MethodID
	Args   A
}

// NewTransaction constructs a Transaction for the given method and
// arguments.
func NewTransaction[A canon.Canon, R canon.Canon](method MethodID, args A) Transaction[A, R] {
	return Transaction[A, R]{Method: method, Args: args}
}

func (t Transaction[A, R]) EncodedLen() int { return t.Args.EncodedLen() }

func (t Transaction[A, R]) WriteTo(sink canon.Sink) error { return t.Args.WriteTo(sink) }
