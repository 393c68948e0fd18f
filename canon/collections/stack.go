// Package collections provides the one container type spec.md's testable
// properties actually exercise: a singly-linked Stack whose tail is owned
// by the store through a Ref rather than directly, so arbitrarily long
// stacks never form an owning cycle and can be built, persisted, and torn
// down one digest at a time.
//
// Grounded on canon_collections/src/stack.rs from the Rust original; this
// is hand-written rather than canon-derive generated because Go's type
// system has no way to express a generic sum type as a derive target the
// way the original's enum + proc-macro combination does.
package collections

import "synnergy-canon/canon"

// Stack is either Empty or a Node holding a value and a lazy reference to
// the rest of the stack. It is itself Canon, so a *Ref[Stack[T]] can own
// it indirectly — the recursive structure from spec.md's design notes §9.
type Stack[T canon.Canon] interface {
	canon.Canon
	isStack()
}

// Empty is the base case: the encoding is a single tag byte, 0.
type Empty[T canon.Canon] struct{}

func (Empty[T]) isStack()            {}
func (Empty[T]) EncodedLen() int     { return 1 }
func (Empty[T]) WriteTo(s canon.Sink) error {
	s.CopyBytes([]byte{0})
	return nil
}

// Node holds a value and the rest of the stack behind a Ref, so that a
// Node never directly owns its tail — the tail is either inlined (when
// small) or addressed by digest in the store.
type Node[T canon.Canon] struct {
	Value T
	Prev  *canon.Ref[Stack[T]]
}

func (*Node[T]) isStack() {}

func (n *Node[T]) EncodedLen() int {
	return 1 + n.Value.EncodedLen() + n.Prev.EncodedLen()
}

func (n *Node[T]) WriteTo(s canon.Sink) error {
	s.CopyBytes([]byte{1})
	if err := n.Value.WriteTo(s); err != nil {
		return err
	}
	return n.Prev.WriteTo(s)
}

// DecodeStack reads a Stack[T] given a decoder for the element type T.
func DecodeStack[T canon.Canon](src canon.Source, decodeT func(canon.Source) (T, error)) (Stack[T], error) {
	tag, err := src.ReadBytes(1)
	if err != nil {
		return nil, err
	}
	switch tag[0] {
	case 0:
		return Empty[T]{}, nil
	case 1:
		value, err := decodeT(src)
		if err != nil {
			return nil, err
		}
		prev, err := canon.DecodeRef(src, src.Store(), func(s canon.Source) (Stack[T], error) {
			return DecodeStack(s, decodeT)
		})
		if err != nil {
			return nil, err
		}
		return &Node[T]{Value: value, Prev: prev}, nil
	default:
		return nil, canon.ErrInvalidEncoding
	}
}

// Push returns a new Stack with v on top of s.
func Push[T canon.Canon](s Stack[T], v T, store canon.Store, decodeT func(canon.Source) (T, error)) Stack[T] {
	decodeSelf := func(src canon.Source) (Stack[T], error) { return DecodeStack(src, decodeT) }
	return &Node[T]{Value: v, Prev: canon.NewRef[Stack[T]](s, store, decodeSelf)}
}

// Pop returns the top value and the rest of the stack. It returns ok=false
// for an Empty stack.
func Pop[T canon.Canon](s Stack[T]) (value T, rest Stack[T], ok bool, err error) {
	n, isNode := s.(*Node[T])
	if !isNode {
		var zero T
		return zero, Empty[T]{}, false, nil
	}
	rest, err = n.Prev.Value()
	if err != nil {
		var zero T
		return zero, nil, false, err
	}
	return n.Value, rest, true, nil
}
