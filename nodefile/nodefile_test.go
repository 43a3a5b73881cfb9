package nodefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ordinalkv/ordinalkv/btree"
	"github.com/ordinalkv/ordinalkv/codec"
)

func TestAppendRunThenReadAt(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "ordinalkv_nodefile_test")
	os.MkdirAll(dir, 0755)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nodes")
	nf, err := Open(path, codec.GobCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer nf.Close()

	leaf := btree.NewLeaf(2)
	leaf.Keys = [][]byte{[]byte("a"), []byte("b")}
	leaf.Values = [][]byte{[]byte("1"), []byte("2")}

	internal := btree.NewInternal(3)
	internal.Keys = [][]byte{nil, []byte("b")}
	internal.Children = []int64{2, 4}

	offsets, err := nf.AppendRun([]*btree.Node{leaf, internal})
	if err != nil {
		t.Fatalf("AppendRun: %v", err)
	}
	if len(offsets) != 2 {
		t.Fatalf("AppendRun returned %d offsets, want 2", len(offsets))
	}
	if err := nf.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, err := nf.ReadAt(offsets[0])
	if err != nil {
		t.Fatalf("ReadAt(leaf): %v", err)
	}
	if got.ID != leaf.ID || got.Kind != btree.Leaf || len(got.Keys) != 2 {
		t.Errorf("ReadAt(leaf) = %+v, want match for %+v", got, leaf)
	}

	got2, err := nf.ReadAt(offsets[1])
	if err != nil {
		t.Fatalf("ReadAt(internal): %v", err)
	}
	if got2.ID != internal.ID || got2.Kind != btree.Internal || len(got2.Children) != 2 {
		t.Errorf("ReadAt(internal) = %+v, want match for %+v", got2, internal)
	}
}

func TestSizeAdvancesByRunPlusPadding(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "ordinalkv_nodefile_test2")
	os.MkdirAll(dir, 0755)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nodes")
	nf, err := Open(path, codec.GobCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer nf.Close()

	if nf.Size() != 0 {
		t.Fatalf("fresh file size = %d, want 0", nf.Size())
	}

	leaf := btree.NewLeaf(1)
	if _, err := nf.AppendRun([]*btree.Node{leaf}); err != nil {
		t.Fatalf("AppendRun: %v", err)
	}
	if nf.Size() <= lengthPrefixSize {
		t.Errorf("Size() = %d, want > %d (length prefix + body + padding)", nf.Size(), lengthPrefixSize)
	}
}

func TestReopenPreservesExistingOffsets(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "ordinalkv_nodefile_test3")
	os.MkdirAll(dir, 0755)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nodes")
	nf, err := Open(path, codec.GobCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	leaf := btree.NewLeaf(7)
	leaf.Keys = [][]byte{[]byte("x")}
	leaf.Values = [][]byte{[]byte("y")}
	offsets, err := nf.AppendRun([]*btree.Node{leaf})
	if err != nil {
		t.Fatalf("AppendRun: %v", err)
	}
	if err := nf.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := nf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	nf2, err := Open(path, codec.GobCodec{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer nf2.Close()

	got, err := nf2.ReadAt(offsets[0])
	if err != nil {
		t.Fatalf("ReadAt after reopen: %v", err)
	}
	if got.ID != 7 || len(got.Keys) != 1 || string(got.Keys[0]) != "x" {
		t.Errorf("ReadAt after reopen = %+v, want id 7 with key x", got)
	}
}
