package store

import (
	"errors"
	"testing"

	"synnergy-canon/canon"
)

func TestMemStorePutGetRoundTrip(t *testing.T) {
	s := NewMemStore()
	id, err := s.Put(canon.U64(777))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got canon.U64
	err = s.Get(id, func(src canon.Source) error {
		v, err := canon.DecodeU64(src)
		got = v
		return err
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 777 {
		t.Fatalf("got %d", got)
	}
}

func TestMemStorePutRawIdempotent(t *testing.T) {
	s := NewMemStore()
	data := []byte("same bytes twice")

	id1, err := s.PutRaw(data)
	if err != nil {
		t.Fatalf("PutRaw 1: %v", err)
	}
	id2, err := s.PutRaw(data)
	if err != nil {
		t.Fatalf("PutRaw 2: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("idempotent PutRaw must yield the same Id: %s != %s", id1, id2)
	}
	if s.Len() != 1 {
		t.Fatalf("expected exactly one stored blob, got %d", s.Len())
	}
}

func TestMemStoreGetMissReportsNotFound(t *testing.T) {
	s := NewMemStore()
	err := s.Get(canon.Id{}, func(canon.Source) error { return nil })
	if !errors.Is(err, canon.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing digest, got %v", err)
	}
}

func TestMemStoreIdOfMatchesPut(t *testing.T) {
	s := NewMemStore()
	v := canon.U32(42)

	idOf, err := s.IdOf(v)
	if err != nil {
		t.Fatalf("IdOf: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("IdOf must not persist, got %d entries", s.Len())
	}

	putID, err := s.Put(v)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if idOf != putID {
		t.Fatalf("IdOf(v) != Put(v).Id: %s != %s", idOf, putID)
	}
}

func TestMemStoreFetchOverrunBuffer(t *testing.T) {
	s := NewMemStore()
	id, err := s.PutRaw([]byte("0123456789"))
	if err != nil {
		t.Fatalf("PutRaw: %v", err)
	}
	small := make([]byte, 2)
	if _, err := s.Fetch(id, small); err == nil {
		t.Fatalf("expected error when dst buffer is smaller than the stored blob")
	}
}
