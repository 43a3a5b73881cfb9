// Package nodefile implements the append-only nodes file: a log of
// (length, bytes) records holding frozen node images, addressed by byte
// offset rather than by a fixed-size page number.
//
// It is grounded on storage_engine/disk_manager's FileDescriptor: a
// single *os.File guarded by its own mutex, ReadAt/WriteAt at computed
// offsets, and an explicit Sync/Close pair that nils the handle. This
// package keeps that shape but drops the disk manager's fixed-page-size
// and global-page-id machinery, since node images are variable-length
// and are addressed by the offset a commit actually wrote them at.
package nodefile

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/ordinalkv/ordinalkv/btree"
	"github.com/ordinalkv/ordinalkv/codec"
	"github.com/ordinalkv/ordinalkv/dberr"
)

const lengthPrefixSize = 8

// File is the append-only nodes file. Append calls are expected to come
// from exactly one writer at a time (txn serializes commits); Read calls
// may run concurrently with an in-flight Append since they only ever
// touch offsets already fsynced by a prior commit.
type File struct {
	file  *os.File
	codec codec.Codec
	mu    sync.Mutex
	size  int64
}

// Open opens or creates the nodes file at path. O_APPEND makes each
// Write land atomically at the OS-tracked end of file, so a commit's
// run of node records can never interleave with another writer's.
func Open(path string, c codec.Codec) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("nodefile: open %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("nodefile: stat: %w", err)
	}
	return &File{file: f, codec: c, size: stat.Size()}, nil
}

// Size returns the current end-of-file offset: where the next AppendRun
// starts writing. Transactions do not capture it in their snapshot.
func (nf *File) Size() int64 {
	nf.mu.Lock()
	defer nf.mu.Unlock()
	return nf.size
}

// AppendRun writes nodes as a contiguous run of (length, bytes) records
// followed by 8 bytes of zero padding, returning the offset each node
// was written at, in order. A commit writes its whole dirty set as one
// run so a single Sync durably commits every image together; the
// trailing padding separates one commit's run from the next. The end
// offset is tracked here in memory and, on Open, taken from the file's
// size; the manifest does not record it.
func (nf *File) AppendRun(nodes []*btree.Node) ([]int64, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	offsets := make([]int64, len(nodes))
	var buf []byte

	nf.mu.Lock()
	defer nf.mu.Unlock()

	offset := nf.size
	for i, n := range nodes {
		body, err := nf.codec.Freeze(n)
		if err != nil {
			return nil, err
		}
		offsets[i] = offset

		var prefix [lengthPrefixSize]byte
		binary.BigEndian.PutUint64(prefix[:], uint64(len(body)))
		buf = append(buf, prefix[:]...)
		buf = append(buf, body...)

		offset += lengthPrefixSize + int64(len(body))
	}
	buf = append(buf, make([]byte, lengthPrefixSize)...)
	offset += lengthPrefixSize

	if _, err := nf.file.Write(buf); err != nil {
		return nil, fmt.Errorf("%w: nodefile append: %v", dberr.IoFailure, err)
	}
	nf.size = offset
	return offsets, nil
}

// ReadAt decodes the node image at offset: a length prefix followed by
// that many frozen bytes, random-access without consulting the cache.
func (nf *File) ReadAt(offset int64) (*btree.Node, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := nf.file.ReadAt(prefix[:], offset); err != nil {
		return nil, fmt.Errorf("%w: nodefile read length at %d: %v", dberr.IoFailure, offset, err)
	}
	length := binary.BigEndian.Uint64(prefix[:])

	body := make([]byte, length)
	if _, err := nf.file.ReadAt(body, offset+lengthPrefixSize); err != nil {
		return nil, fmt.Errorf("%w: nodefile read body at %d: %v", dberr.IoFailure, offset, err)
	}

	n := new(btree.Node)
	if err := nf.codec.Thaw(body, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Sync forces the nodes file's pending writes to disk. A commit calls
// this before appending its manifest delta, so a crash can never leave a
// manifest entry pointing at a node image that isn't actually on disk.
func (nf *File) Sync() error {
	if err := nf.file.Sync(); err != nil {
		return fmt.Errorf("%w: nodefile sync: %v", dberr.IoFailure, err)
	}
	return nil
}

// Close closes the nodes file.
func (nf *File) Close() error {
	return nf.file.Close()
}
