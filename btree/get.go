package btree

// Get returns the value stored for k, and false if k is absent.
func Get(tx Tx, k []byte, cmp Comparator) ([]byte, bool, error) {
	r, err := root(tx)
	if err != nil {
		return nil, false, err
	}
	leaf, err := matchingLeaf(tx, r, k, cmp)
	if err != nil {
		return nil, false, err
	}
	idx, ok := exactIndex(leaf.Keys, k, cmp)
	if !ok {
		return nil, false, nil
	}
	return leaf.Values[idx], true, nil
}
