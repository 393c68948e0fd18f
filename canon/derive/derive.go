// Package derive implements the structural composition rule that generated
// Canon code (see cmd/canon-derive) and hand-written records/sums both rely
// on: concatenate product fields in declaration order, and prefix a sum's
// variant fields with a one-byte declaration-order tag.
//
// Nothing here is generic over field types in the decode direction — Go
// has no way to express "decode N heterogeneously-typed fields" without
// either reflection or per-type generated code, so decode is always
// written (or generated) per type. These helpers only factor out the parts
// that genuinely are type-agnostic: field concatenation on the encode side
// and the tag-byte discipline on both sides.
package derive

import "synnergy-canon/canon"

// WriteFields writes each field's encoding in order, stopping at the first
// error. Used by generated product (struct) WriteTo methods.
func WriteFields(sink canon.Sink, fields ...canon.Canon) error {
	for _, f := range fields {
		if err := f.WriteTo(sink); err != nil {
			return err
		}
	}
	return nil
}

// FieldsLen sums each field's EncodedLen. Used by generated product
// EncodedLen methods.
func FieldsLen(fields ...canon.Canon) int {
	n := 0
	for _, f := range fields {
		n += f.EncodedLen()
	}
	return n
}

// WriteVariant writes the one-byte variant tag followed by the variant's
// fields, for a sum type with fewer than 256 variants. Used by generated
// sum WriteTo methods.
func WriteVariant(sink canon.Sink, tag byte, fields ...canon.Canon) error {
	sink.CopyBytes([]byte{tag})
	return WriteFields(sink, fields...)
}

// VariantLen is 1 (the tag byte) plus the sum of the variant's fields.
func VariantLen(fields ...canon.Canon) int {
	return 1 + FieldsLen(fields...)
}

// ReadVariantTag reads the one-byte variant tag and validates it against
// numVariants, returning canon.ErrInvalidEncoding if the tag is out of
// range. Used by generated sum Decode functions before dispatching on the
// tag.
func ReadVariantTag(src canon.Source, numVariants int) (byte, error) {
	b, err := src.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	if int(b[0]) >= numVariants {
		return 0, canon.ErrInvalidEncoding
	}
	return b[0], nil
}
