package art

// GetHigherValue returns the value of the smallest key strictly greater
// than k, and whether one exists. Used by the direct matching engine to
// find the neighboring price bucket when splicing in a new price level.
func (t *Tree) GetHigherValue(k int64) (Value, bool) {
	key, ok := higherKey(t.root, k, 0)
	if !ok {
		return nil, false
	}
	v, _ := t.Get(key)
	return v, true
}

// GetLowerValue returns the value of the largest key strictly less than k.
func (t *Tree) GetLowerValue(k int64) (Value, bool) {
	key, ok := lowerKey(t.root, k, 0)
	if !ok {
		return nil, false
	}
	v, _ := t.Get(key)
	return v, true
}

// higherKey/lowerKey walk the trie level by level; because depth always
// consumes exactly one key byte (no path compression), at each inner node
// we either recurse on the matching-byte child looking for a closer bound,
// or take the first strictly-greater/lesser sibling subtree wholesale.
func higherKey(n *node, k int64, depth int) (int64, bool) {
	if n == nil {
		return 0, false
	}
	if n.kind == kindLeaf {
		if n.key > k {
			return n.key, true
		}
		return 0, false
	}
	b := keyByte(k, depth)
	entries := n.sortedEntries()
	for i, e := range entries {
		if e.b == b {
			if key, ok := higherKey(e.c, k, depth+1); ok {
				return key, true
			}
			// No higher key under the equal-byte branch; fall through to
			// the next sibling, which is unconditionally higher.
			if i+1 < len(entries) {
				return minKey(entries[i+1].c), true
			}
			return 0, false
		}
		if e.b > b {
			return minKey(e.c), true
		}
	}
	return 0, false
}

func lowerKey(n *node, k int64, depth int) (int64, bool) {
	if n == nil {
		return 0, false
	}
	if n.kind == kindLeaf {
		if n.key < k {
			return n.key, true
		}
		return 0, false
	}
	b := keyByte(k, depth)
	entries := n.sortedEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.b == b {
			if key, ok := lowerKey(e.c, k, depth+1); ok {
				return key, true
			}
			if i-1 >= 0 {
				return maxKey(entries[i-1].c), true
			}
			return 0, false
		}
		if e.b < b {
			return maxKey(e.c), true
		}
	}
	return 0, false
}

func minKey(n *node) int64 {
	for n.kind != kindLeaf {
		entries := n.sortedEntries()
		n = entries[0].c
	}
	return n.key
}

func maxKey(n *node) int64 {
	for n.kind != kindLeaf {
		entries := n.sortedEntries()
		n = entries[len(entries)-1].c
	}
	return n.key
}

// ForEach visits up to `limit` entries in strictly ascending key order
// (limit <= 0 means unlimited). Returning false from fn stops the walk.
func (t *Tree) ForEach(limit int, fn func(key int64, value Value) bool) {
	count := 0
	walk(t.root, true, func(key int64, value Value) bool {
		if limit > 0 && count >= limit {
			return false
		}
		count++
		return fn(key, value)
	})
}

// ForEachDesc visits up to `limit` entries in strictly descending key order.
func (t *Tree) ForEachDesc(limit int, fn func(key int64, value Value) bool) {
	count := 0
	walk(t.root, false, func(key int64, value Value) bool {
		if limit > 0 && count >= limit {
			return false
		}
		count++
		return fn(key, value)
	})
}

func walk(n *node, ascending bool, fn func(key int64, value Value) bool) bool {
	if n == nil {
		return true
	}
	if n.kind == kindLeaf {
		return fn(n.key, n.value)
	}
	entries := n.sortedEntries()
	if !ascending {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	for _, e := range entries {
		if !walk(e.c, ascending, fn) {
			return false
		}
	}
	return true
}
