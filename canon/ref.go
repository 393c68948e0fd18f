package canon

// refState names the three observable states of a Ref, per spec.md §3/§4.3:
// Resolved (owns a value, no cached digest), Identified (owns a digest
// only, value not yet fetched), and Both (owns a value and a digest known
// to encode to it).
type refState int

const (
	stateResolved refState = iota
	stateIdentified
	stateBoth
)

// indirectTag is the sentinel tag byte marking an indirect (digest)
// encoding. Per the design notes, 0x00 is free to use this way because a
// legal inline length is always in [1, IDLen] — a value whose EncodedLen is
// 0 never takes the inline branch (see the routing rule in inlineEligible),
// so tag 0 unambiguously means "indirect, IDLen digest bytes follow".
const indirectTag = 0x00

// Ref is the lazy reference type: logical ownership of a value of type T
// that may reside locally or in a Store, with ownership-breaking
// indirection instead of an owning cycle for recursive data structures
// (see canon/collections.Stack for the canonical example).
//
// A Ref is single-owner and not safe for concurrent use — callers must not
// share one across goroutines without external synchronization, matching
// the cooperative single-threaded guest model this type was designed for.
type Ref[T Canon] struct {
	st    refState
	id    Id
	value T
	store Store

	decode func(Source) (T, error)
}

// NewRef constructs a Ref in state Resolved, owning v directly. decode must
// be the package-level decoder for T (e.g. DecodeU64, or a derived
// record/sum decoder); it is needed so a later Decode call or a fetch from
// Identified state knows how to parse T's bytes.
func NewRef[T Canon](v T, store Store, decode func(Source) (T, error)) *Ref[T] {
	return &Ref[T]{st: stateResolved, value: v, store: store, decode: decode}
}

// inlineEligible reports whether a value of the given encoded length takes
// the inline branch of the wire format (0 < L <= IDLen).
func inlineEligible(encodedLen int) bool {
	return encodedLen > 0 && encodedLen <= IDLen
}

// Value returns the owned value, fetching it from the store first if the
// Ref is in state Identified. On return the Ref is in state Both (or stays
// Resolved if it already was).
func (r *Ref[T]) Value() (T, error) {
	if r.st == stateIdentified {
		var fetched T
		err := r.store.Get(r.id, func(src Source) error {
			v, err := r.decode(src)
			if err != nil {
				return err
			}
			fetched = v
			return nil
		})
		if err != nil {
			var zero T
			return zero, err
		}
		r.value = fetched
		r.st = stateBoth
	}
	return r.value, nil
}

// ValueMut ensures the Ref owns a locally-mutable value (fetching it from
// the store if necessary) and drops any cached digest, since a mutation
// invalidates it. After ValueMut the Ref is always in state Resolved. The
// returned pointer aliases the Ref's internal storage; callers mutate
// through it directly.
func (r *Ref[T]) ValueMut() (*T, error) {
	if r.st == stateIdentified {
		if _, err := r.Value(); err != nil {
			return nil, err
		}
	}
	r.st = stateResolved
	r.id = Id{}
	return &r.value, nil
}

// Id returns the digest of the owned value, computing and memoizing it via
// a DrySink if the Ref is currently Resolved. After Id the Ref is in state
// Both (or stays Identified if it already was).
func (r *Ref[T]) Id() (Id, error) {
	if r.st == stateResolved {
		id, err := IdOf(r.store, r.value)
		if err != nil {
			return Id{}, err
		}
		r.id = id
		r.st = stateBoth
	}
	return r.id, nil
}

// EncodedLen implements Canon. Per invariant I4, a Ref's on-wire size is
// 1 + L when the value inlines, else 1 + IDLen.
func (r *Ref[T]) EncodedLen() int {
	switch r.st {
	case stateIdentified, stateBoth:
		return 1 + IDLen
	default: // stateResolved
		l := r.value.EncodedLen()
		if inlineEligible(l) {
			return 1 + l
		}
		return 1 + IDLen
	}
}

// WriteTo implements Canon, per the encoding policy in spec.md §4.3: if the
// Ref already carries a digest (Identified or Both), re-emit the
// indirection tag and that digest without touching the store. If Resolved,
// inline the value when it's small enough, otherwise commit it to the
// store via Sink.Recur and transition to Both.
func (r *Ref[T]) WriteTo(s Sink) error {
	switch r.st {
	case stateIdentified, stateBoth:
		s.CopyBytes([]byte{indirectTag})
		s.CopyBytes(r.id[:])
		return nil
	default: // stateResolved
		l := r.value.EncodedLen()
		if inlineEligible(l) {
			s.CopyBytes([]byte{byte(l)})
			return r.value.WriteTo(s)
		}
		id, err := s.Recur(r.value)
		if err != nil {
			return err
		}
		s.CopyBytes([]byte{indirectTag})
		s.CopyBytes(id[:])
		r.id = id
		r.st = stateBoth
		return nil
	}
}

// DecodeRef reads a Ref[T] from source: an inline-length tag followed by
// that many payload bytes (state becomes Resolved, the value having been
// parsed directly, no store access needed), or the indirection sentinel
// followed by IDLen digest bytes (state becomes Identified; the value is
// fetched lazily on the first Value() call).
func DecodeRef[T Canon](src Source, store Store, decode func(Source) (T, error)) (*Ref[T], error) {
	tag, err := src.ReadBytes(1)
	if err != nil {
		return nil, err
	}
	if tag[0] == indirectTag {
		idBytes, err := src.ReadBytes(IDLen)
		if err != nil {
			return nil, err
		}
		var id Id
		copy(id[:], idBytes)
		return &Ref[T]{st: stateIdentified, id: id, store: store, decode: decode}, nil
	}
	l := int(tag[0])
	payload, err := src.ReadBytes(l)
	if err != nil {
		return nil, err
	}
	inner := NewByteSource(payload, store)
	v, err := decode(inner)
	if err != nil {
		return nil, err
	}
	return &Ref[T]{st: stateResolved, value: v, store: store, decode: decode}, nil
}
