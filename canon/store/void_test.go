package store

import (
	"testing"

	"synnergy-canon/canon"
)

func TestVoidRejectsPutAndGet(t *testing.T) {
	v := Void{}
	if _, err := v.PutRaw([]byte("x")); err == nil {
		t.Fatalf("expected PutRaw to fail on Void")
	}
	if err := v.Get(canon.Id{}, func(canon.Source) error { return nil }); err == nil {
		t.Fatalf("expected Get to fail on Void")
	}
	if _, err := v.Fetch(canon.Id{}, make([]byte, 8)); err == nil {
		t.Fatalf("expected Fetch to fail on Void")
	}
}

func TestVoidIdOfStillWorks(t *testing.T) {
	v := Void{}
	id, err := v.IdOf(canon.U64(5))
	if err != nil {
		t.Fatalf("IdOf must succeed without persisting: %v", err)
	}
	if id.IsZero() {
		t.Fatalf("expected a real digest")
	}
}
