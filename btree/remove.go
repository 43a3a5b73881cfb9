package btree

// combineRecord is a tagged variant return value: removeNode either
// finishes in place (combine == false) or reports that its child dropped
// below the minimum fill, so the parent must combine it with a sibling.
type combineRecord struct {
	combine bool
}

// Remove deletes k. Removing an absent key is a no-op.
func Remove(tx Tx, k []byte, cmp Comparator) error {
	r, err := root(tx)
	if err != nil {
		return err
	}
	res, err := removeNode(tx, r, k, cmp)
	if err != nil {
		return err
	}
	if !res.combine {
		return nil
	}
	// Root is exempt from the min-fill bound; the only actionable case is
	// a degenerate single-child internal root, which collapses.
	newRoot, err := tx.GetNode(tx.Root())
	if err != nil {
		return err
	}
	if newRoot.Kind == Internal && len(newRoot.Keys) == 1 {
		onlyChild := newRoot.Children[0]
		tx.DeleteNode(newRoot.ID)
		tx.SetRoot(onlyChild)
	}
	return nil
}

func removeNode(tx Tx, node *Node, k []byte, cmp Comparator) (combineRecord, error) {
	if node.Kind == Leaf {
		return removeLeaf(tx, node, k, cmp)
	}
	return removeInternal(tx, node, k, cmp)
}

// removeLeaf deletes k from the leaf, if present.
func removeLeaf(tx Tx, leaf *Node, k []byte, cmp Comparator) (combineRecord, error) {
	idx, found := exactIndex(leaf.Keys, k, cmp)
	if !found {
		return combineRecord{}, nil
	}
	n := leaf.Clone()
	n.Keys = removeAt(n.Keys, idx)
	n.Values = removeAt(n.Values, idx)
	tx.PutNode(n)
	return combineRecord{combine: len(n.Keys) < Min(tx.Order())}, nil
}

// removeInternal descends into the matching child and resolves any
// underflow the child reports.
func removeInternal(tx Tx, node *Node, k []byte, cmp Comparator) (combineRecord, error) {
	idx := matchingChildIndex(node.Keys, k, cmp)
	child, err := tx.GetNode(node.Children[idx])
	if err != nil {
		return combineRecord{}, err
	}
	childRes, err := removeNode(tx, child, k, cmp)
	if err != nil {
		return combineRecord{}, err
	}
	if !childRes.combine {
		return combineRecord{}, nil
	}
	return combineChildren(tx, node.Clone(), idx, cmp)
}

// combineChildren resolves a focal child's underflow against a sibling by
// redistribution or merge.
func combineChildren(tx Tx, parent *Node, idx int, cmp Comparator) (combineRecord, error) {
	min := Min(tx.Order())

	focal, err := tx.GetNode(parent.Children[idx])
	if err != nil {
		return combineRecord{}, err
	}

	var leftSib, rightSib *Node
	var childKey, rightKey []byte
	if idx > 0 {
		childKey = parent.Keys[idx]
		leftSib, err = tx.GetNode(parent.Children[idx-1])
		if err != nil {
			return combineRecord{}, err
		}
	}
	if idx < len(parent.Children)-1 {
		rightKey = parent.Keys[idx+1]
		rightSib, err = tx.GetNode(parent.Children[idx+1])
		if err != nil {
			return combineRecord{}, err
		}
	}

	switch {
	case rightSib != nil && len(rightSib.Keys) > min:
		splitKey, err := redistribute(tx, rightKey, focal, rightSib, cmp)
		if err != nil {
			return combineRecord{}, err
		}
		parent.Keys[idx+1] = splitKey

	case leftSib != nil && len(leftSib.Keys) > min:
		splitKey, err := redistribute(tx, childKey, leftSib, focal, cmp)
		if err != nil {
			return combineRecord{}, err
		}
		parent.Keys[idx] = splitKey

	case rightSib != nil && len(rightSib.Keys) == min:
		if err := merge(tx, rightKey, focal, rightSib, cmp); err != nil {
			return combineRecord{}, err
		}
		parent.Keys = removeAt(parent.Keys, idx+1)
		parent.Children = removeAt(parent.Children, idx+1)

	default:
		if err := merge(tx, childKey, leftSib, focal, cmp); err != nil {
			return combineRecord{}, err
		}
		parent.Keys = removeAt(parent.Keys, idx)
		parent.Children = removeAt(parent.Children, idx)
	}

	tx.PutNode(parent)
	return combineRecord{combine: len(parent.Keys) < min}, nil
}

// redistribute moves records between adjacent siblings left and right so
// both satisfy the minimum fill, returning the new separator key. midKey
// is the separator currently between them.
func redistribute(tx Tx, midKey []byte, left, right *Node, cmp Comparator) ([]byte, error) {
	l, r := left.Clone(), right.Clone()

	combinedKeys, combinedValues, combinedChildren := combineRecords(midKey, l, r)

	pos := ceilHalf(len(combinedKeys))
	l.Keys = append([][]byte(nil), combinedKeys[:pos]...)
	r.Keys = append([][]byte(nil), combinedKeys[pos:]...)
	splitKey := r.Keys[0]

	if l.Kind == Leaf {
		l.Values = append([][]byte(nil), combinedValues[:pos]...)
		r.Values = append([][]byte(nil), combinedValues[pos:]...)
	} else {
		l.Children = append([]int64(nil), combinedChildren[:pos]...)
		r.Children = append([]int64(nil), combinedChildren[pos:]...)
		r.Keys[0] = nil
	}

	tx.PutNode(l)
	tx.PutNode(r)
	return splitKey, nil
}

// merge folds right's records into left and tombstones right. midKey
// restores an internal right node's sentinel separator.
func merge(tx Tx, midKey []byte, left, right *Node, cmp Comparator) error {
	l, r := left.Clone(), right.Clone()

	keys, values, children := combineRecords(midKey, l, r)
	l.Keys = keys
	if l.Kind == Leaf {
		l.Values = values
		l.Next = r.Next
	} else {
		l.Children = children
	}

	tx.PutNode(l)
	tx.DeleteNode(r.ID)
	return nil
}

// combineRecords concatenates left's and right's records. For internal
// nodes, right's leading sentinel is renamed to midKey first, restoring
// its real separator before the two record sets are unioned. For leaves
// the key sets are disjoint by construction.
func combineRecords(midKey []byte, left, right *Node) (keys [][]byte, values [][]byte, children []int64) {
	if left.Kind == Leaf {
		keys = append(append([][]byte{}, left.Keys...), right.Keys...)
		values = append(append([][]byte{}, left.Values...), right.Values...)
		return keys, values, nil
	}
	rightKeys := append([][]byte(nil), right.Keys...)
	if len(rightKeys) > 0 {
		rightKeys[0] = midKey
	}
	keys = append(append([][]byte{}, left.Keys...), rightKeys...)
	children = append(append([]int64{}, left.Children...), right.Children...)
	return keys, nil, children
}
