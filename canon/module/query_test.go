package module

import (
	"testing"

	"synnergy-canon/canon"
)

func TestQueryEncodesOnlyArgs(t *testing.T) {
	store := newTestStore()
	q := NewQuery[canon.U64, canon.U64](3, canon.U64(99))
	if q.EncodedLen() != 8 {
		t.Fatalf("expected 8 bytes (u64 args only, method id travels out of band), got %d", q.EncodedLen())
	}
	buf := make([]byte, q.EncodedLen())
	if err := q.WriteTo(canon.NewByteSink(buf, store)); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := canon.DecodeU64(canon.NewByteSource(buf, store))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != 99 {
		t.Fatalf("got %d", got)
	}
}

func TestTransactionEncodesOnlyArgs(t *testing.T) {
	store := newTestStore()
	tx := NewTransaction[canon.U32, canon.Unit](1, canon.U32(7))
	if tx.EncodedLen() != 4 {
		t.Fatalf("expected 4 bytes, got %d", tx.EncodedLen())
	}
	buf := make([]byte, tx.EncodedLen())
	if err := tx.WriteTo(canon.NewByteSink(buf, store)); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
}
