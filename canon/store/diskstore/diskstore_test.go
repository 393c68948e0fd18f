package diskstore

import (
	"errors"
	"testing"

	"synnergy-canon/canon"
	"synnergy-canon/internal/testutil"
)

func TestDiskStorePutGetRoundTrip(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	ds, err := New(sb.Root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id, err := ds.Put(canon.U64(999))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got canon.U64
	err = ds.Get(id, func(src canon.Source) error {
		v, err := canon.DecodeU64(src)
		got = v
		return err
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 999 {
		t.Fatalf("got %d", got)
	}
}

func TestDiskStorePutRawIdempotent(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	ds, err := New(sb.Root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := []byte("disk idempotence")
	id1, err := ds.PutRaw(data)
	if err != nil {
		t.Fatalf("PutRaw 1: %v", err)
	}
	id2, err := ds.PutRaw(data)
	if err != nil {
		t.Fatalf("PutRaw 2: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected identical Id, got %s != %s", id1, id2)
	}
}

func TestDiskStoreGetMissReportsNotFound(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	ds, err := New(sb.Root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ds.Get(canon.Id{}, func(canon.Source) error { return nil }); !errors.Is(err, canon.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing digest, got %v", err)
	}
}
