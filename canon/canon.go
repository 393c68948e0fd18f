// Package canon implements a deterministic, canonical byte codec over a
// closed set of primitives and algebraic compositions, a content-addressed
// store abstraction, and the lazy reference type (Ref) used to represent
// recursive data structures without owning cycles.
//
// The wire format is authoritative and versionless: every value declares an
// exact encoded length (EncodedLen), and the codec never retries or
// partially decodes. See SPEC_FULL.md for the full contract.
package canon

// Canon is the contract every storable/transmissible value implements: a
// deterministic encode, a matching decode, and a total EncodedLen that the
// encoder is required to honor exactly (see property P2, length honesty).
type Canon interface {
	// WriteTo serializes the value into sink, advancing it by exactly
	// EncodedLen() bytes.
	WriteTo(sink Sink) error

	// EncodedLen returns the number of bytes WriteTo will write.
	EncodedLen() int
}

// Decoding is not part of Canon: Go has no associated-type generics trick
// to put it on Canon itself without losing the ability to decode into a
// concrete type, so decoding is expressed as free functions of shape
// `func Decode<T>(Source) (T, error)` per type, following the derive
// contract in canon/derive.
//
// Sink is a write cursor over a contiguous destination: either a byte
// buffer (ByteSink) or a store-recursing sink used while materializing a
// Ref's indirect form.
type Sink interface {
	// CopyBytes appends b to the cursor, advancing by len(b). It panics if
	// the underlying buffer is exhausted; every caller is expected to have
	// computed EncodedLen and allocated exactly that many bytes up front.
	CopyBytes(b []byte)

	// Recur serializes v into the underlying Store and returns its
	// resulting Id, for use when a Ref decides to indirect rather than
	// inline.
	Recur(v Canon) (Id, error)

	// Store exposes the store backing this sink so that nested Ref values
	// know where a Recur call will land.
	Store() Store
}

// Source is a read cursor over an encoded byte sequence.
type Source interface {
	// ReadBytes returns the next n bytes and advances the cursor by n. It
	// returns ErrInvalidEncoding if fewer than n bytes remain.
	ReadBytes(n int) ([]byte, error)

	// Store exposes the store so that decoded Refs know where to fetch
	// their value from on demand.
	Store() Store
}
