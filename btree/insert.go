package btree

// splitRecord is a tagged variant return value: insertNode either stages
// its updated node copy as-is (zero value, split == false) or reports the
// split it produced
// so the caller can incorporate it into its own node.
type splitRecord struct {
	split    bool
	splitKey []byte
	leftID   int64
	rightID  int64
}

// Insert adds or replaces k -> v.
func Insert(tx Tx, k, v []byte, cmp Comparator) error {
	r, err := root(tx)
	if err != nil {
		return err
	}
	res, err := insertNode(tx, r, k, v, cmp)
	if err != nil {
		return err
	}
	if res.split {
		newRoot := NewInternal(tx.NextID())
		newRoot.Keys = [][]byte{nil, res.splitKey}
		newRoot.Children = []int64{res.leftID, res.rightID}
		tx.PutNode(newRoot)
		tx.SetRoot(newRoot.ID)
	}
	return nil
}

func insertNode(tx Tx, node *Node, k, v []byte, cmp Comparator) (splitRecord, error) {
	if node.Kind == Leaf {
		return insertLeaf(tx, node, k, v, cmp)
	}
	return insertInternal(tx, node, k, v, cmp)
}

// insertLeaf replaces or adds k -> v.
func insertLeaf(tx Tx, leaf *Node, k, v []byte, cmp Comparator) (splitRecord, error) {
	n := leaf.Clone()
	idx, found := exactIndex(n.Keys, k, cmp)
	if found {
		n.Values[idx] = v
	} else {
		n.Keys = insertAt(n.Keys, idx, k)
		n.Values = insertAt(n.Values, idx, v)
	}
	if len(n.Keys) < tx.Order() {
		tx.PutNode(n)
		return splitRecord{}, nil
	}
	return splitLeaf(tx, n)
}

// splitLeaf splits an overfull leaf in two, keeping both halves linked.
func splitLeaf(tx Tx, n *Node) (splitRecord, error) {
	pos := ceilHalf(len(n.Keys))
	right := NewLeaf(tx.NextID())
	right.Keys = append([][]byte(nil), n.Keys[pos:]...)
	right.Values = append([][]byte(nil), n.Values[pos:]...)
	right.Next = n.Next

	n.Keys = n.Keys[:pos:pos]
	n.Values = n.Values[:pos:pos]
	n.Next = right.ID

	tx.PutNode(n)
	tx.PutNode(right)

	return splitRecord{split: true, splitKey: right.Keys[0], leftID: n.ID, rightID: right.ID}, nil
}

// insertInternal descends into the matching child and incorporates any
// split it reports.
func insertInternal(tx Tx, node *Node, k, v []byte, cmp Comparator) (splitRecord, error) {
	idx := matchingChildIndex(node.Keys, k, cmp)
	child, err := tx.GetNode(node.Children[idx])
	if err != nil {
		return splitRecord{}, err
	}
	childRes, err := insertNode(tx, child, k, v, cmp)
	if err != nil {
		return splitRecord{}, err
	}
	if !childRes.split {
		return splitRecord{}, nil
	}

	n := node.Clone()
	n.Keys = insertAt(n.Keys, idx+1, childRes.splitKey)
	n.Children = insertAt(n.Children, idx+1, childRes.rightID)

	if len(n.Keys) <= tx.Order() {
		tx.PutNode(n)
		return splitRecord{}, nil
	}
	return splitInternal(tx, n)
}

// splitInternal splits an overfull internal node, promoting the first key
// of the right half to the parent as the new separator.
func splitInternal(tx Tx, n *Node) (splitRecord, error) {
	pos := ceilHalf(len(n.Keys))
	right := NewInternal(tx.NextID())
	right.Keys = append([][]byte(nil), n.Keys[pos:]...)
	right.Children = append([]int64(nil), n.Children[pos:]...)

	splitKey := right.Keys[0]
	right.Keys[0] = nil // right's subtree already covers everything >= splitKey

	n.Keys = n.Keys[:pos:pos]
	n.Children = n.Children[:pos:pos]

	tx.PutNode(n)
	tx.PutNode(right)

	return splitRecord{split: true, splitKey: splitKey, leftID: n.ID, rightID: right.ID}, nil
}
