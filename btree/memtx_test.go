package btree

import "fmt"

// memTx is an in-memory Tx used only by this package's tests: a plain
// map standing in for the manifest+nodes+cache stack a real
// transaction layers on top of.
type memTx struct {
	nodes   map[int64]*Node
	rootID  int64
	counter int64
	order   int
}

func newMemTx(order int) *memTx {
	tx := &memTx{nodes: make(map[int64]*Node), order: order, rootID: 1, counter: 1}
	tx.nodes[1] = NewLeaf(1)
	return tx
}

func (tx *memTx) GetNode(id int64) (*Node, error) {
	n, ok := tx.nodes[id]
	if !ok {
		return nil, fmt.Errorf("memTx: node %d not found", id)
	}
	return n, nil
}

func (tx *memTx) PutNode(n *Node)     { tx.nodes[n.ID] = n }
func (tx *memTx) DeleteNode(id int64) { delete(tx.nodes, id) }
func (tx *memTx) NextID() int64       { tx.counter++; return tx.counter }
func (tx *memTx) Root() int64         { return tx.rootID }
func (tx *memTx) SetRoot(id int64)    { tx.rootID = id }
func (tx *memTx) Order() int          { return tx.order }

var _ Tx = (*memTx)(nil)
