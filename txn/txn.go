// Package txn implements the transaction and commit protocol: per-
// transaction snapshots, a local dirty-node overlay, and the write path
// that turns a set of dirty nodes into a durable commit.
//
// It is grounded on storage_engine/transaction_manager/main.go: Begin
// issuing ids, an active-set guarded by a mutex, and Commit/Abort as
// idempotent state transitions run "AFTER the durable write." This
// package keeps that Begin/Commit shape but replaces WAL-record and
// row-rollback bookkeeping with a snapshot {root-id, id-counter,
// manifest} plus a dirty-nodes overlay (the nodes file's append position
// is not part of the snapshot; nodefile.File tracks it): Commit is the one
// place dirty nodes are frozen to the nodes file, the manifest delta is
// appended, the root record is appended last, and the published state
// cell is swapped.
package txn

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ordinalkv/ordinalkv/btree"
	"github.com/ordinalkv/ordinalkv/cache"
	"github.com/ordinalkv/ordinalkv/dberr"
	"github.com/ordinalkv/ordinalkv/manifest"
	"github.com/ordinalkv/ordinalkv/nodefile"
)

// dirtyEntry is a transaction-local overlay slot: either a node pending
// write, or a tombstone marking the id deleted.
type dirtyEntry struct {
	node      *btree.Node
	tombstone bool
}

// Manager owns the durable files and the published state cell shared by
// every transaction; it serializes commits behind a single write lock
// while letting readers proceed against an atomically published
// snapshot without ever blocking on a writer.
type Manager struct {
	order    int
	manifest *manifest.File
	nodes    *nodefile.File
	cache    *cache.NodeCache

	writeMu sync.Mutex
	state   atomic.Pointer[manifest.State]
}

// NewManager wraps already-opened manifest/nodes/cache handles, seeding
// the published state cell with mf's replayed State.
func NewManager(order int, mf *manifest.File, nf *nodefile.File, c *cache.NodeCache, initial manifest.State) *Manager {
	m := &Manager{order: order, manifest: mf, nodes: nf, cache: c}
	m.state.Store(&initial)
	return m
}

// Begin opens a new transaction against the currently published state. A
// write transaction additionally acquires the write lock for the
// lifetime of the transaction, released on Commit or Abort.
func (m *Manager) Begin(write bool) *Transaction {
	if write {
		m.writeMu.Lock()
	}
	snap := m.state.Load()
	return &Transaction{
		mgr:       m,
		write:     write,
		rootID:    snap.RootID,
		idCounter: snap.IDCounter,
		manifest:  *snap,
		dirty:     make(map[int64]*dirtyEntry),
	}
}

// Transaction is a single snapshot plus its local dirty-node overlay. It
// satisfies btree.Tx.
type Transaction struct {
	mgr   *Manager
	write bool
	done  bool

	rootID    int64
	idCounter int64
	manifest  manifest.State // the snapshot this transaction read from
	dirty     map[int64]*dirtyEntry
}

var _ btree.Tx = (*Transaction)(nil)

// Order returns the tree's fanout bound.
func (tx *Transaction) Order() int { return tx.mgr.order }

// Root returns the transaction's current root id: its own pending
// SetRoot if one was made, otherwise the id it started from.
func (tx *Transaction) Root() int64 { return tx.rootID }

// SetRoot records a new root id, effective for the rest of this
// transaction and published on Commit.
func (tx *Transaction) SetRoot(id int64) { tx.rootID = id }

// NextID issues a fresh node id, unique within this transaction and
// every transaction before it.
func (tx *Transaction) NextID() int64 {
	tx.idCounter++
	return tx.idCounter
}

// PutNode stages node as dirty, superseding any earlier staged image or
// tombstone for the same id.
func (tx *Transaction) PutNode(n *btree.Node) {
	tx.dirty[n.ID] = &dirtyEntry{node: n}
}

// DeleteNode stages id as tombstoned.
func (tx *Transaction) DeleteNode(id int64) {
	tx.dirty[id] = &dirtyEntry{tombstone: true}
}

// GetNode resolves id against, in order, this transaction's dirty
// overlay, the node cache, and finally the nodes file — synthesizing an
// empty leaf for the bootstrap case of a fresh database's root.
func (tx *Transaction) GetNode(id int64) (*btree.Node, error) {
	if e, ok := tx.dirty[id]; ok {
		if e.tombstone {
			return nil, fmt.Errorf("%w: node %d deleted in this transaction", dberr.CorruptState, id)
		}
		return e.node, nil
	}

	offset, ok := tx.manifest.Offset(id)
	if !ok {
		if id == tx.manifest.RootID && len(tx.manifest.Entries) == 0 {
			return btree.NewLeaf(id), nil
		}
		return nil, fmt.Errorf("%w: node %d has no manifest entry", dberr.CorruptState, id)
	}

	if n, hit := tx.mgr.cache.Lookup(offset); hit {
		return n, nil
	}

	n, err := tx.mgr.nodes.ReadAt(offset)
	if err != nil {
		return nil, err
	}
	tx.mgr.cache.Insert(offset, n)
	return n, nil
}

// Commit durably publishes every staged change: dirty node images are
// appended to the nodes file and fsynced first, then the manifest delta
// (one entry per dirty id, a root record last if the root moved) is
// appended and fsynced, then the in-memory state cell is swapped and the
// cache is reconciled. A read-only transaction's Commit is a no-op
// besides releasing resources.
func (tx *Transaction) Commit() error {
	if tx.done {
		return nil
	}
	defer tx.finish()

	if !tx.write {
		return nil
	}
	if len(tx.dirty) == 0 && tx.rootID == tx.manifest.RootID {
		return nil
	}

	ids := make([]int64, 0, len(tx.dirty))
	for id := range tx.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var toWrite []*btree.Node
	var writeIDs []int64
	var entries []manifest.Entry
	for _, id := range ids {
		e := tx.dirty[id]
		if e.tombstone {
			entries = append(entries, manifest.TombstoneEntry(id))
			continue
		}
		toWrite = append(toWrite, e.node)
		writeIDs = append(writeIDs, id)
	}

	offsets, err := tx.mgr.nodes.AppendRun(toWrite)
	if err != nil {
		return err
	}
	if err := tx.mgr.nodes.Sync(); err != nil {
		return err
	}
	for i, id := range writeIDs {
		entries = append(entries, manifest.Entry{ID: id, Payload: offsets[i]})
	}

	rootChanged := tx.rootID != tx.manifest.RootID
	if rootChanged {
		entries = append(entries, manifest.RootEntry(tx.rootID))
	}

	if err := tx.mgr.manifest.AppendEntries(entries); err != nil {
		return err
	}
	if err := tx.mgr.manifest.Sync(); err != nil {
		return err
	}

	next := tx.manifest.Clone()
	for i, id := range writeIDs {
		if old, ok := next.Entries[id]; ok {
			tx.mgr.cache.Evict(old)
		}
		next.Entries[id] = offsets[i]
		tx.mgr.cache.Insert(offsets[i], toWrite[i])
	}
	for id, e := range tx.dirty {
		if !e.tombstone {
			continue
		}
		if old, ok := next.Entries[id]; ok {
			tx.mgr.cache.Evict(old)
		}
		next.Entries[id] = manifest.TombstoneEntry(id).Payload
	}
	if rootChanged {
		next.RootID = tx.rootID
	}
	if tx.idCounter > next.IDCounter {
		next.IDCounter = tx.idCounter
	}

	tx.mgr.state.Store(&next)
	return nil
}

// Abort discards this transaction's dirty overlay without publishing
// anything.
func (tx *Transaction) Abort() {
	tx.finish()
}

func (tx *Transaction) finish() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.write {
		tx.mgr.writeMu.Unlock()
	}
}
