package btree

// Pair is one (key, value) result from Seek, in ascending key order.
type Pair struct {
	Key   []byte
	Value []byte
}

// Seek returns every (key, value) pair with start <= key <= end, in
// ascending order, stopping early once limit pairs are collected if limit
// is non-negative. The leaf walk terminates strictly on next == 0, so a
// malformed or concurrently-mutated chain can never loop forever.
func Seek(tx Tx, start, end []byte, limit int, cmp Comparator) ([]Pair, error) {
	r, err := root(tx)
	if err != nil {
		return nil, err
	}
	startLeaf, err := matchingLeaf(tx, r, start, cmp)
	if err != nil {
		return nil, err
	}
	endLeaf, err := matchingLeaf(tx, r, end, cmp)
	if err != nil {
		return nil, err
	}

	var out []Pair
	fits := func() bool { return limit < 0 || len(out) < limit }

	if startLeaf.ID == endLeaf.ID {
		for i, key := range startLeaf.Keys {
			if !fits() {
				break
			}
			if cmp(key, start) >= 0 && cmp(key, end) <= 0 {
				out = append(out, Pair{Key: key, Value: startLeaf.Values[i]})
			}
		}
		return truncate(out, limit), nil
	}

	leaf := startLeaf
	for i, key := range leaf.Keys {
		if !fits() {
			return truncate(out, limit), nil
		}
		if cmp(key, start) >= 0 {
			out = append(out, Pair{Key: key, Value: leaf.Values[i]})
		}
	}

	for leaf.ID != endLeaf.ID {
		if leaf.Next == 0 {
			// Tree changed underneath us, or end predates start; stop
			// rather than loop forever.
			return truncate(out, limit), nil
		}
		leaf, err = tx.GetNode(leaf.Next)
		if err != nil {
			return nil, err
		}
		for i, key := range leaf.Keys {
			if !fits() {
				return truncate(out, limit), nil
			}
			if leaf.ID == endLeaf.ID {
				if cmp(key, end) <= 0 {
					out = append(out, Pair{Key: key, Value: leaf.Values[i]})
				}
			} else {
				out = append(out, Pair{Key: key, Value: leaf.Values[i]})
			}
		}
	}

	return truncate(out, limit), nil
}

func truncate(out []Pair, limit int) []Pair {
	if limit >= 0 && len(out) > limit {
		return out[:limit]
	}
	return out
}
