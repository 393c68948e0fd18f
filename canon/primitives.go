package canon

import "encoding/binary"

// This file implements the compositional codec rules of the wire format
// for the closed set of primitives named in spec.md §3/§6: fixed-width
// big-endian integers, booleans, options, results, unit, and fixed-length
// arrays. Sums and products (tuples/records) are handled by the derive
// contract in canon/derive, which composes these.

// --- unsigned integers ---------------------------------------------------

// U8/U16/U32/U64 wrap Go's unsigned integer types so they satisfy Canon.
// Fixed width w, big-endian, two's-complement for signed variants.

type U8 uint8

func (v U8) EncodedLen() int { return 1 }
func (v U8) WriteTo(s Sink) error {
	s.CopyBytes([]byte{byte(v)})
	return nil
}
func DecodeU8(s Source) (U8, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return U8(b[0]), nil
}

type U16 uint16

func (v U16) EncodedLen() int { return 2 }
func (v U16) WriteTo(s Sink) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	s.CopyBytes(b[:])
	return nil
}
func DecodeU16(s Source) (U16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return U16(binary.BigEndian.Uint16(b)), nil
}

type U32 uint32

func (v U32) EncodedLen() int { return 4 }
func (v U32) WriteTo(s Sink) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	s.CopyBytes(b[:])
	return nil
}
func DecodeU32(s Source) (U32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return U32(binary.BigEndian.Uint32(b)), nil
}

type U64 uint64

func (v U64) EncodedLen() int { return 8 }
func (v U64) WriteTo(s Sink) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.CopyBytes(b[:])
	return nil
}
func DecodeU64(s Source) (U64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return U64(binary.BigEndian.Uint64(b)), nil
}

// U128 has no native Go scalar; represented as 16 raw bytes, big-endian.
type U128 [16]byte

func (v U128) EncodedLen() int { return 16 }
func (v U128) WriteTo(s Sink) error {
	s.CopyBytes(v[:])
	return nil
}
func DecodeU128(s Source) (U128, error) {
	b, err := s.ReadBytes(16)
	if err != nil {
		return U128{}, err
	}
	var out U128
	copy(out[:], b)
	return out, nil
}

// --- signed integers -------------------------------------------------

type I8 int8

func (v I8) EncodedLen() int { return 1 }
func (v I8) WriteTo(s Sink) error {
	s.CopyBytes([]byte{byte(v)})
	return nil
}
func DecodeI8(s Source) (I8, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return I8(int8(b[0])), nil
}

type I16 int16

func (v I16) EncodedLen() int { return 2 }
func (v I16) WriteTo(s Sink) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	s.CopyBytes(b[:])
	return nil
}
func DecodeI16(s Source) (I16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return I16(int16(binary.BigEndian.Uint16(b))), nil
}

type I32 int32

func (v I32) EncodedLen() int { return 4 }
func (v I32) WriteTo(s Sink) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	s.CopyBytes(b[:])
	return nil
}
func DecodeI32(s Source) (I32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return I32(int32(binary.BigEndian.Uint32(b))), nil
}

type I64 int64

func (v I64) EncodedLen() int { return 8 }
func (v I64) WriteTo(s Sink) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.CopyBytes(b[:])
	return nil
}
func DecodeI64(s Source) (I64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return I64(int64(binary.BigEndian.Uint64(b))), nil
}

// --- boolean ---------------------------------------------------------

// Bool encodes as a single 0x00/0x01 byte; any other byte fails decoding.
type Bool bool

func (v Bool) EncodedLen() int { return 1 }
func (v Bool) WriteTo(s Sink) error {
	if v {
		s.CopyBytes([]byte{0x01})
	} else {
		s.CopyBytes([]byte{0x00})
	}
	return nil
}
func DecodeBool(s Source) (Bool, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, wrap(ErrInvalidEncoding, "bool tag out of range")
	}
}

// --- unit --------------------------------------------------------------

// Unit encodes to zero bytes.
type Unit struct{}

func (Unit) EncodedLen() int        { return 0 }
func (Unit) WriteTo(s Sink) error   { return nil }
func DecodeUnit(s Source) (Unit, error) { return Unit{}, nil }

// --- option --------------------------------------------------------------

// Option encodes `00` when absent, `01 <payload>` when present.
type Option[T Canon] struct {
	Value   T
	Present bool
}

func Some[T Canon](v T) Option[T] { return Option[T]{Value: v, Present: true} }
func None[T Canon]() Option[T]    { var z T; return Option[T]{Value: z, Present: false} }

func (o Option[T]) EncodedLen() int {
	if !o.Present {
		return 1
	}
	return 1 + o.Value.EncodedLen()
}

func (o Option[T]) WriteTo(s Sink) error {
	if !o.Present {
		s.CopyBytes([]byte{0x00})
		return nil
	}
	s.CopyBytes([]byte{0x01})
	return o.Value.WriteTo(s)
}

// DecodeOption decodes an Option[T] given a decoder for T's payload.
func DecodeOption[T Canon](s Source, decode func(Source) (T, error)) (Option[T], error) {
	tag, err := s.ReadBytes(1)
	if err != nil {
		return Option[T]{}, err
	}
	switch tag[0] {
	case 0x00:
		return None[T](), nil
	case 0x01:
		v, err := decode(s)
		if err != nil {
			return Option[T]{}, err
		}
		return Some(v), nil
	default:
		return Option[T]{}, wrap(ErrInvalidEncoding, "option tag out of range")
	}
}

// --- result --------------------------------------------------------------

// Result encodes `00 <ok>` or `01 <err>`.
type Result[O Canon, E Canon] struct {
	Ok    O
	Err   E
	IsErr bool
}

func Ok[O Canon, E Canon](v O) Result[O, E]  { var z E; return Result[O, E]{Ok: v, Err: z, IsErr: false} }
func Fail[O Canon, E Canon](e E) Result[O, E] { var z O; return Result[O, E]{Ok: z, Err: e, IsErr: true} }

func (r Result[O, E]) EncodedLen() int {
	if r.IsErr {
		return 1 + r.Err.EncodedLen()
	}
	return 1 + r.Ok.EncodedLen()
}

func (r Result[O, E]) WriteTo(s Sink) error {
	if r.IsErr {
		s.CopyBytes([]byte{0x01})
		return r.Err.WriteTo(s)
	}
	s.CopyBytes([]byte{0x00})
	return r.Ok.WriteTo(s)
}

// DecodeResult decodes a Result[O, E] given decoders for each branch.
func DecodeResult[O Canon, E Canon](s Source, decodeOk func(Source) (O, error), decodeErr func(Source) (E, error)) (Result[O, E], error) {
	tag, err := s.ReadBytes(1)
	if err != nil {
		return Result[O, E]{}, err
	}
	switch tag[0] {
	case 0x00:
		v, err := decodeOk(s)
		if err != nil {
			return Result[O, E]{}, err
		}
		return Ok[O, E](v), nil
	case 0x01:
		e, err := decodeErr(s)
		if err != nil {
			return Result[O, E]{}, err
		}
		return Fail[O, E](e), nil
	default:
		return Result[O, E]{}, wrap(ErrInvalidEncoding, "result tag out of range")
	}
}

// --- fixed-length arrays -------------------------------------------------

// Array is a fixed-length sequence whose encoding is the concatenation of
// its elements' encodings, with no length header (the length is part of
// the type, known to both sides statically).
type Array[T Canon] []T

func (a Array[T]) EncodedLen() int {
	n := 0
	for _, e := range a {
		n += e.EncodedLen()
	}
	return n
}

func (a Array[T]) WriteTo(s Sink) error {
	for _, e := range a {
		if err := e.WriteTo(s); err != nil {
			return err
		}
	}
	return nil
}

// DecodeArray decodes exactly n elements of T using decode.
func DecodeArray[T Canon](s Source, n int, decode func(Source) (T, error)) (Array[T], error) {
	out := make(Array[T], n)
	for i := 0; i < n; i++ {
		v, err := decode(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
