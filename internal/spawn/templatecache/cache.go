// Package templatecache is a content-addressed store for the spawner's
// template manifests: the declarative part of a lifecycle.TemplateEntry
// (its descriptor list and per-descriptor instance counts) addressed by
// a CID over its serialized bytes, so two nodes that agree on a manifest
// CID are guaranteed to agree on its contents without shipping the
// manifest itself on every spawn. Grounded on the teacher's
// blockstore.NewBlockstore(dssync.MutexWrap(datastore.NewMapDatastore()))
// pattern (engine/execution/computation/execution_verification_test.go):
// an in-memory, mutex-wrapped go-datastore as the default backing store,
// with go-cid keys instead of raw strings.
package templatecache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	mh "github.com/multiformats/go-multihash"
)

// Manifest is the declarative, content-addressable part of a template:
// everything about a dis_type's spawn shape that is pure data rather
// than Go code. The executable part (TemplateEntry.Apply) always stays
// a compiled function; Manifest only ever describes what Apply is told
// to set up.
type Manifest struct {
	DisType        uint32         `json:"dis_type"`
	Descriptors    []uint32       `json:"descriptors"`
	InstanceCounts map[uint32]int `json:"instance_counts,omitempty"`
}

// Cache is a CID-addressed manifest store plus a dis_type -> CID index,
// so a spawner can resolve "what manifest does dis_type 7 use right
// now" without the caller needing to track CIDs itself.
type Cache struct {
	mu    sync.RWMutex
	store datastore.Datastore
	index map[uint32]cid.Cid
}

// New wraps an arbitrary go-datastore backing store. ds must be safe for
// concurrent use by a single goroutine at a time per key (Cache adds its
// own locking around the index, not around ds itself).
func New(store datastore.Datastore) *Cache {
	return &Cache{store: store, index: make(map[uint32]cid.Cid)}
}

// NewMemCache returns a Cache backed by an in-memory, mutex-wrapped
// datastore, the stand-in the teacher's tests use in place of a real
// durable store.
func NewMemCache() *Cache {
	return New(dssync.MutexWrap(datastore.NewMapDatastore()))
}

func manifestKey(c cid.Cid) datastore.Key {
	return datastore.NewKey("/templates/" + c.String())
}

// Put serializes m, stores it under its content hash, records it in the
// dis_type index, and returns the CID a caller can hand to another node
// as a compact reference.
func (c *Cache) Put(ctx context.Context, m Manifest) (cid.Cid, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return cid.Undef, fmt.Errorf("templatecache: marshal manifest: %w", err)
	}

	sum, err := mh.Sum(payload, mh.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("templatecache: hash manifest: %w", err)
	}
	id := cid.NewCidV1(cid.Raw, sum)

	if err := c.store.Put(ctx, manifestKey(id), payload); err != nil {
		return cid.Undef, fmt.Errorf("templatecache: put manifest: %w", err)
	}

	c.mu.Lock()
	c.index[m.DisType] = id
	c.mu.Unlock()

	return id, nil
}

// Get retrieves and deserializes the manifest stored under id.
func (c *Cache) Get(ctx context.Context, id cid.Cid) (Manifest, error) {
	payload, err := c.store.Get(ctx, manifestKey(id))
	if err != nil {
		return Manifest{}, fmt.Errorf("templatecache: get manifest %s: %w", id, err)
	}
	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return Manifest{}, fmt.Errorf("templatecache: unmarshal manifest %s: %w", id, err)
	}
	return m, nil
}

// Resolve returns the CID currently indexed for disType, if this cache
// has ever Put one.
func (c *Cache) Resolve(disType uint32) (cid.Cid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.index[disType]
	return id, ok
}

// GetByDisType is the common-case call: resolve disType's current CID
// and fetch its manifest in one step.
func (c *Cache) GetByDisType(ctx context.Context, disType uint32) (Manifest, bool, error) {
	id, ok := c.Resolve(disType)
	if !ok {
		return Manifest{}, false, nil
	}
	m, err := c.Get(ctx, id)
	if err != nil {
		return Manifest{}, false, err
	}
	return m, true, nil
}
