// Package diskstore implements the host-side durable counterpart to
// canon/store.MemStore: a Store that persists every blob as a file named
// by its hex digest, reading and checking existence directly via
// os.Stat/os.ReadFile rather than keeping any in-memory index — the
// filesystem directory is the only index. Grounded on
// canon_host/src/disk_store.rs from the original.
//
// spec.md §1 names disk-backed storage as an external, derivable consumer
// of the core rather than part of it, so this lives in its own
// sub-package layered strictly on the canon.Store interface.
package diskstore

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"synnergy-canon/canon"
)

// DiskStore persists blobs as files under its root directory, named by
// hex(Id).
type DiskStore struct {
	mu   sync.RWMutex
	root string
}

var _ canon.Store = (*DiskStore)(nil)

// New creates a DiskStore rooted at dir, creating it if necessary.
func New(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: dir}, nil
}

func (d *DiskStore) path(id canon.Id) string {
	return filepath.Join(d.root, hex.EncodeToString(id[:]))
}

// PutRaw implements canon.Store.
func (d *DiskStore) PutRaw(bytes []byte) (canon.Id, error) {
	id := canon.IdOfRaw(bytes)

	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.path(id)
	if _, err := os.Stat(p); err == nil {
		return id, nil // idempotent: identical bytes already on disk
	}
	if err := os.WriteFile(p, bytes, 0o644); err != nil {
		return canon.Id{}, err
	}
	return id, nil
}

// Put implements canon.Store.
func (d *DiskStore) Put(v canon.Canon) (canon.Id, error) {
	buf := make([]byte, v.EncodedLen())
	sink := canon.NewByteSink(buf, d)
	if err := v.WriteTo(sink); err != nil {
		return canon.Id{}, err
	}
	return d.PutRaw(buf)
}

// Get implements canon.Store.
func (d *DiskStore) Get(id canon.Id, decode func(canon.Source) error) error {
	d.mu.RLock()
	raw, err := os.ReadFile(d.path(id))
	d.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return canon.ErrNotFound
		}
		return err
	}
	src := canon.NewByteSource(raw, d)
	return decode(src)
}

// Fetch implements canon.Store.
func (d *DiskStore) Fetch(id canon.Id, buf []byte) (int, error) {
	d.mu.RLock()
	raw, err := os.ReadFile(d.path(id))
	d.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return 0, canon.ErrNotFound
		}
		return 0, err
	}
	if len(buf) < len(raw) {
		return 0, canon.ErrInvalidEncoding
	}
	return copy(buf, raw), nil
}

// IdOf implements canon.Store.
func (d *DiskStore) IdOf(v canon.Canon) (canon.Id, error) {
	return canon.IdOf(d, v)
}
