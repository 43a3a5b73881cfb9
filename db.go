// Package ordinalkv is the database façade: open/close lifecycle, the
// process-wide registry of open databases, and the Get/Seek/Insert/
// Remove convenience API layered over explicit read/write transactions.
//
// It mirrors storage_engine/structs.go's StorageEngine struct, which
// aggregates BufferPool, DiskManager, WalManager, and TxnManager behind
// one façade opened by main.go's top-level wiring — here that becomes
// manifest.File, nodefile.File, cache.NodeCache, and txn.Manager behind
// one Database.
package ordinalkv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ordinalkv/ordinalkv/btree"
	"github.com/ordinalkv/ordinalkv/cache"
	"github.com/ordinalkv/ordinalkv/codec"
	"github.com/ordinalkv/ordinalkv/dberr"
	"github.com/ordinalkv/ordinalkv/manifest"
	"github.com/ordinalkv/ordinalkv/nodefile"
	"github.com/ordinalkv/ordinalkv/txn"
)

// Options configures Open. Open fills every zero field from
// DefaultOptions, so callers set only what they need, following the
// teacher's constructor-arg style (NewBufferPool(capacity int, ...))
// rather than a config-file or environment layer, since nothing in the
// pack reads configuration from files.
type Options struct {
	Order         int
	CacheCapacity int
	Codec         codec.Codec
	Comparator    btree.Comparator
}

// DefaultOptions returns the Options Open uses when none are given.
func DefaultOptions() Options {
	return Options{
		Order:         btree.DefaultOrder,
		CacheCapacity: cache.DefaultCapacity,
		Codec:         codec.GobCodec{},
		Comparator:    bytes.Compare,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Order == 0 {
		o.Order = d.Order
	}
	if o.CacheCapacity == 0 {
		o.CacheCapacity = d.CacheCapacity
	}
	if o.Codec == nil {
		o.Codec = d.Codec
	}
	if o.Comparator == nil {
		o.Comparator = d.Comparator
	}
	return o
}

// Database is one open handle on a database directory.
type Database struct {
	path string
	cmp  btree.Comparator

	manifest *manifest.File
	nodes    *nodefile.File
	cache    *cache.NodeCache
	mgr      *txn.Manager
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Database{}
)

// Open opens the database directory at path, creating it if absent. If
// path is already open in this process, the existing handle is closed
// first and a fresh one opened in its place against opts, matching the
// idempotent reinitialization spec.md calls for rather than silently
// handing back a handle still running some earlier call's Options.
func Open(path string, opts Options) (*Database, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := registry[path]; ok {
		delete(registry, path)
		if err := existing.closeLocked(); err != nil {
			return nil, err
		}
	}

	opts = opts.withDefaults()

	if stat, err := os.Stat(path); err == nil && !stat.IsDir() {
		return nil, fmt.Errorf("%w: %s exists and is not a directory", dberr.InvalidDatabase, path)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", dberr.InvalidDatabase, path, err)
	}

	mf, state, err := manifest.Open(filepath.Join(path, "manifest"), uint32(opts.Order))
	if err != nil {
		return nil, err
	}
	nf, err := nodefile.Open(filepath.Join(path, "nodes"), opts.Codec)
	if err != nil {
		mf.Close()
		return nil, err
	}
	c, err := cache.New(opts.CacheCapacity)
	if err != nil {
		mf.Close()
		nf.Close()
		return nil, err
	}

	mgr := txn.NewManager(opts.Order, mf, nf, c, state)
	db := &Database{path: path, cmp: opts.Comparator, manifest: mf, nodes: nf, cache: c, mgr: mgr}
	registry[path] = db
	return db, nil
}

// Close closes db's file handles and cache, and removes it from the
// open-databases registry so a later Open on the same path starts
// fresh.
func (db *Database) Close() error {
	registryMu.Lock()
	delete(registry, db.path)
	registryMu.Unlock()

	return db.closeLocked()
}

// closeLocked releases db's file handles and cache without touching the
// registry; callers already hold registryMu and have deregistered (or
// are about to register a replacement for) db.path themselves.
func (db *Database) closeLocked() error {
	db.cache.Close()
	nodesErr := db.nodes.Close()
	manifestErr := db.manifest.Close()
	if nodesErr != nil {
		return nodesErr
	}
	return manifestErr
}

// WithWriteTransaction runs fn against a fresh write transaction,
// committing on success and aborting (discarding every staged change)
// if fn returns an error.
func (db *Database) WithWriteTransaction(fn func(*txn.Transaction) error) error {
	tx := db.mgr.Begin(true)
	if err := fn(tx); err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

// WithReadTransaction runs fn against a read-only snapshot transaction.
// The snapshot is fixed at call time and never observes a writer that
// commits afterward.
func (db *Database) WithReadTransaction(fn func(*txn.Transaction) error) error {
	tx := db.mgr.Begin(false)
	defer tx.Abort()
	return fn(tx)
}

// Get returns the value stored for k, and false if k is absent.
func (db *Database) Get(k []byte) (value []byte, found bool, err error) {
	err = db.WithReadTransaction(func(tx *txn.Transaction) error {
		var getErr error
		value, found, getErr = btree.Get(tx, k, db.cmp)
		return getErr
	})
	return value, found, err
}

// Seek returns every (key, value) pair with start <= key <= end, in
// ascending order, stopping early once limit pairs are collected if
// limit is non-negative.
func (db *Database) Seek(start, end []byte, limit int) (pairs []btree.Pair, err error) {
	err = db.WithReadTransaction(func(tx *txn.Transaction) error {
		var seekErr error
		pairs, seekErr = btree.Seek(tx, start, end, limit, db.cmp)
		return seekErr
	})
	return pairs, err
}

// Insert adds or replaces k -> v in a dedicated write transaction.
func (db *Database) Insert(k, v []byte) error {
	return db.WithWriteTransaction(func(tx *txn.Transaction) error {
		return btree.Insert(tx, k, v, db.cmp)
	})
}

// Remove deletes k in a dedicated write transaction; a no-op if k is
// absent.
func (db *Database) Remove(k []byte) error {
	return db.WithWriteTransaction(func(tx *txn.Transaction) error {
		return btree.Remove(tx, k, db.cmp)
	})
}
