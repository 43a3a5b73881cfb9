package btree

import "github.com/ordinalkv/ordinalkv/dberr"

// Tx is the minimal view of a transaction the tree algorithms need: node
// lookup through the dirty-nodes/cache/file chain, staging new or deleted
// node images, and allocating fresh ids and a new root.
//
// txn.Transaction implements this; btree stays ignorant of manifests,
// caches and files so it can be tested against an in-memory fake.
type Tx interface {
	GetNode(id int64) (*Node, error)
	PutNode(n *Node)
	DeleteNode(id int64)
	NextID() int64
	Root() int64
	SetRoot(id int64)
	Order() int
}

// Min is the per-node floor(order/2) lower bound used by remove.
func Min(order int) int {
	return order / 2
}

// matchingChildIndex returns the index of the entry with the greatest key
// <= k among an internal node's records. keys must be ascending, with at
// most keys[0] == nil (the sentinel).
func matchingChildIndex(keys [][]byte, k []byte, cmp Comparator) int {
	lo, hi, ans := 0, len(keys)-1, 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if compareKey(keys[mid], k, cmp) <= 0 {
			ans = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return ans
}

// matchingLeaf descends from node to the leaf that would hold k,
// re-fetching each child through tx.
func matchingLeaf(tx Tx, node *Node, k []byte, cmp Comparator) (*Node, error) {
	for node.Kind == Internal {
		if len(node.Children) == 0 {
			return nil, dberr.CorruptState
		}
		idx := matchingChildIndex(node.Keys, k, cmp)
		child, err := tx.GetNode(node.Children[idx])
		if err != nil {
			return nil, err
		}
		node = child
	}
	return node, nil
}

// exactIndex finds the position of an exact leaf key via binary search.
// When k is absent it returns (pos, false), where pos is the index at
// which k would be inserted to keep keys ascending. Leaf keys are never
// nil.
func exactIndex(keys [][]byte, k []byte, cmp Comparator) (int, bool) {
	lo, hi := 0, len(keys)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		c := cmp(keys[mid], k)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return lo, false
}

// root fetches the current root node. On a fresh database this is id 1
// with no manifest entry, which Tx implementations synthesize as an empty
// leaf.
func root(tx Tx) (*Node, error) {
	return tx.GetNode(tx.Root())
}
