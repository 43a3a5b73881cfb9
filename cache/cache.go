// Package cache implements the bounded node cache: a lookup keyed by node
// file offset, coherent with the most recently committed state.
//
// The teacher's go.mod declares github.com/dgraph-io/ristretto/v2 but
// never imports it — every cache in that repo
// (bplustree/buffer_pool.go, storage_engine/bufferpool/bufferpool.go) is
// a hand-rolled map plus an accessOrder slice with a linear evictLRU
// scan. This package wires the declared dependency in for the storage
// itself and keeps no access-order bookkeeping of its own. It does not
// track which offset a commit made stale: txn's Commit looks the old
// offset up in its snapshot's manifest and calls Evict for it.
package cache

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/ordinalkv/ordinalkv/btree"
)

// DefaultCapacity is the default number of node images the cache holds.
const DefaultCapacity = 32

// NodeCache is a bounded cache of decoded nodes, keyed by the byte offset
// their frozen image lives at in the nodes file.
type NodeCache struct {
	store *ristretto.Cache[int64, *btree.Node]

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// New builds a NodeCache sized for capacity entries.
func New(capacity int) (*NodeCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	store, err := ristretto.NewCache(&ristretto.Config[int64, *btree.Node]{
		NumCounters:        int64(capacity) * 10,
		MaxCost:            int64(capacity),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &NodeCache{store: store}, nil
}

// Lookup returns (node, true) on a hit, or (nil, false) on a miss,
// tallying either outcome for Stats.
func (c *NodeCache) Lookup(offset int64) (*btree.Node, bool) {
	n, ok := c.store.Get(offset)
	c.mu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
	return n, ok
}

// Has reports whether offset is currently cached, without affecting hit
// or miss accounting.
func (c *NodeCache) Has(offset int64) bool {
	_, ok := c.store.Get(offset)
	return ok
}

// Insert admits node under offset with unit cost.
func (c *NodeCache) Insert(offset int64, node *btree.Node) {
	c.store.Set(offset, node, 1)
}

// Evict removes offset, used when a commit supersedes the node image
// that lived there with a new image at a new offset.
func (c *NodeCache) Evict(offset int64) {
	c.store.Del(offset)
}

// Wait blocks until ristretto's async admission buffers have drained,
// so a just-inserted entry is guaranteed visible to the next Lookup.
// Tests asserting on hit/miss counts call this after Insert.
func (c *NodeCache) Wait() {
	c.store.Wait()
}

// Stats reports cumulative hit/miss counts since the cache was created.
func (c *NodeCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Close releases ristretto's background goroutines.
func (c *NodeCache) Close() {
	c.store.Close()
}
