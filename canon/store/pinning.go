package store

// PinningStore decorates any canon.Store with a best-effort mirror of
// every PutRaw'd blob to an IPFS-compatible gateway, addressed by a CIDv1
// derived from the same bytes. It is grounded on core/storage.go's Pin/
// Retrieve pair: a disk-backed LRU cache sits in front of the gateway so a
// value pinned twice in a process lifetime only uploads once.
//
// This is strictly an optional decorator layered on top of the core Store
// contract (spec.md §1 names disk-backed storage as an external,
// non-core concern) — it never changes what Id a value hashes to; the CID
// is an additional, externally-resolvable address for the same bytes.
import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	gocid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"go.uber.org/zap"

	"synnergy-canon/canon"
)

// PinningConfig configures the gateway and local cache a PinningStore uses.
type PinningConfig struct {
	GatewayURL       string
	CacheDir         string
	GatewayTimeout   time.Duration
	CacheSizeEntries int
}

// PinningStore wraps an underlying canon.Store and mirrors every blob
// stored through its PutRaw to cfg.GatewayURL, skipping the upload when the
// blob's CID is already present in the local disk cache. Put, Get, Fetch
// and IdOf are the underlying store's own; Put does not go through this
// PutRaw, so values stored with Put are not mirrored.
type PinningStore struct {
	canon.Store
	cfg    PinningConfig
	client *http.Client
	cache  *diskLRU
	log    *zap.SugaredLogger
}

var _ canon.Store = (*PinningStore)(nil)

// NewPinningStore wires a PinningStore in front of under.
func NewPinningStore(under canon.Store, cfg PinningConfig, log *zap.SugaredLogger) (*PinningStore, error) {
	if cfg.CacheSizeEntries <= 0 {
		cfg.CacheSizeEntries = 10_000
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	cache, err := newDiskLRU(cfg.CacheDir, cfg.CacheSizeEntries)
	if err != nil {
		return nil, fmt.Errorf("pinning store cache: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PinningStore{
		Store:  under,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.GatewayTimeout},
		cache:  cache,
		log:    log,
	}, nil
}

// PutRaw stores through the underlying Store, then mirrors the blob to the
// gateway addressed by its CIDv1, waiting for the gateway's response (up
// to cfg.GatewayTimeout) before returning. Gateway failures are
// logged, not returned: the underlying store's write already succeeded and
// is the operation's source of truth.
func (p *PinningStore) PutRaw(raw []byte) (canon.Id, error) {
	id, err := p.Store.PutRaw(raw)
	if err != nil {
		return id, err
	}
	c, err := cidFor(raw)
	if err != nil {
		p.log.Warnw("pinning: cid derivation failed", "id", id.String(), "err", err)
		return id, nil
	}
	if _, cached := p.cache.get(c.String()); cached {
		return id, nil
	}
	if err := p.pin(context.Background(), c.String(), raw); err != nil {
		p.log.Warnw("pinning: gateway pin failed", "cid", c.String(), "err", err)
		return id, nil
	}
	if err := p.cache.put(c.String(), raw); err != nil {
		p.log.Warnw("pinning: disk cache write failed", "cid", c.String(), "err", err)
	}
	return id, nil
}

func (p *PinningStore) pin(ctx context.Context, cidStr string, data []byte) error {
	url := p.cfg.GatewayURL + "/api/v0/add?pin=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("gateway pin %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func cidFor(data []byte) (gocid.Cid, error) {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return gocid.Cid{}, err
	}
	return gocid.NewCidV1(gocid.Raw, sum), nil
}

// --- local disk LRU cache, grounded on core/storage.go's newDiskLRU -----

type diskEntry struct {
	path string
	size int64
	at   time.Time
}

type diskLRU struct {
	mu    sync.Mutex
	dir   string
	max   int
	index map[string]*diskEntry
	order []*diskEntry
}

func newDiskLRU(dir string, maxEntries int) (*diskLRU, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "synnergy-canon-pins")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskLRU{dir: dir, max: maxEntries, index: make(map[string]*diskEntry)}, nil
}

func (l *diskLRU) put(cid string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.index[cid]; ok {
		ent.at = time.Now()
		return nil
	}
	if len(l.index) >= l.max && len(l.order) > 0 {
		oldest := l.order[0]
		_ = os.Remove(oldest.path)
		delete(l.index, filepath.Base(oldest.path))
		l.order = l.order[1:]
	}
	p := filepath.Join(l.dir, cid)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	ent := &diskEntry{path: p, size: int64(len(data)), at: time.Now()}
	l.index[cid] = ent
	l.order = append(l.order, ent)
	return nil
}

func (l *diskLRU) get(cid string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ent, ok := l.index[cid]
	if !ok {
		return nil, false
	}
	ent.at = time.Now()
	for i, e := range l.order {
		if e == ent {
			copy(l.order[i:], l.order[i+1:])
			l.order[len(l.order)-1] = ent
			break
		}
	}
	b, err := os.ReadFile(ent.path)
	if err != nil {
		return nil, false
	}
	return b, true
}
