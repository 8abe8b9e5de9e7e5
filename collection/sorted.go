package collection

// Block location. Every non-placeholder block is non-empty, so bottom and top
// are read directly. A miss encodes the block a value would be inserted into
// as -(block + 1).

func (b *Block[V]) bottom() V { return b.values[0] }

func (b *Block[V]) top() V { return b.values[b.count-1] }

// findBlockContaining returns a block whose [bottom, top] range straddles the
// probed key.
func (c *Collection[V]) findBlockContaining(probe Probe[V]) int {
	if c.count == 0 {
		return -1
	}
	lo, hi := 0, len(c.blocks)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		b := c.blocks[mid]
		switch {
		case probe(b.top()) < 0:
			lo = mid + 1
		case probe(b.bottom()) > 0:
			hi = mid - 1
		default:
			return mid
		}
	}
	// lo is the first block whose values sort above the key.
	return -(min(lo, len(c.blocks)-1) + 1)
}

// findFirstBlock returns the block holding the first occurrence of the probed
// key when its range straddles the key.
func (c *Collection[V]) findFirstBlock(probe Probe[V]) int {
	if c.count == 0 {
		return -1
	}
	n := len(c.blocks)
	// first block whose top is at or above the key
	lo, hi := 0, n-1
	for hi-lo >= linearWindow {
		mid := int(uint(lo+hi) >> 1)
		if probe(c.blocks[mid].top()) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	i := lo
	for i <= hi && probe(c.blocks[i].top()) < 0 {
		i++
	}
	if i == n {
		return -n
	}
	if probe(c.blocks[i].bottom()) > 0 {
		// the key falls in the gap before block i
		return -(max(i-1, 0) + 1)
	}
	return i
}

// findLastBlock returns the block holding the last occurrence of the probed
// key when its range straddles the key.
func (c *Collection[V]) findLastBlock(probe Probe[V]) int {
	if c.count == 0 {
		return -1
	}
	// last block whose bottom is at or below the key
	lo, hi := 0, len(c.blocks)-1
	for hi-lo >= linearWindow {
		mid := int(uint(lo+hi) >> 1)
		if probe(c.blocks[mid].bottom()) > 0 {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	i := hi
	for i >= lo && probe(c.blocks[i].bottom()) > 0 {
		i--
	}
	if i < 0 {
		return -1
	}
	if probe(c.blocks[i].top()) < 0 {
		// the key falls in the gap after block i
		return -(i + 1)
	}
	return i
}

func decodeBlock(bi int) int {
	if bi < 0 {
		return -(bi + 1)
	}
	return bi
}

// Natural order.

// Contains reports whether a value equal to value is stored.
func (c *Collection[V]) Contains(value V) bool {
	probe := probeOf(c.compare, value)
	bi := c.findLastBlock(probe)
	if bi < 0 {
		return false
	}
	return c.blocks[bi].SearchFirst(probe) >= 0
}

// InsertSort inserts value at its sorted position. It returns false without
// changing anything when an equal value is already stored.
func (c *Collection[V]) InsertSort(value V) (bool, error) {
	if err := c.checkWritable(); err != nil {
		return false, err
	}
	probe := probeOf(c.compare, value)
	c.ensureBlock()
	bi := decodeBlock(c.findLastBlock(probe))
	pos := c.blocks[bi].SearchLast(probe)
	if pos >= 0 {
		return false, nil
	}
	if err := c.insertAt(bi, -(pos + 1), value); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveSort removes a value equal to value. It returns false when there is
// none. The located value is checked against value with the identity check
// (see SetEqual) before anything is removed; a mismatch means the natural
// order has ties the identity check tells apart and yields
// ErrInvariantViolation.
func (c *Collection[V]) RemoveSort(value V) (bool, error) {
	if err := c.checkWritable(); err != nil {
		return false, err
	}
	probe := probeOf(c.compare, value)
	bi := c.findLastBlock(probe)
	if bi < 0 {
		return false, nil
	}
	pos := c.blocks[bi].SearchLast(probe)
	if pos < 0 {
		return false, nil
	}
	if found := c.blocks[bi].values[pos]; !c.equal(found, value) {
		return false, invariantf("located %v at block %d offset %d, wanted %v", found, bi, pos, value)
	}
	if _, err := c.removeAt(bi, pos); err != nil {
		return false, err
	}
	return true, nil
}

// Probe based counterparts. The probe fixes the lookup key; see Comparer.Bind.

// ContainsFunc reports whether a value matching probe is stored.
func (c *Collection[V]) ContainsFunc(probe Probe[V]) bool {
	bi := c.findBlockContaining(probe)
	if bi < 0 {
		return false
	}
	return c.blocks[bi].BinarySearch(probe) >= 0
}

// InsertSortFunc inserts value after every stored value matching probe, so
// values sharing a key keep their insertion order.
func (c *Collection[V]) InsertSortFunc(probe Probe[V], value V) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	c.ensureBlock()
	bi := decodeBlock(c.findLastBlock(probe))
	pos := c.blocks[bi].SearchLast(probe)
	if pos >= 0 {
		pos++
	} else {
		pos = -(pos + 1)
	}
	return c.insertAt(bi, pos, value)
}

// RemoveSortFunc removes value from the run of values matching probe. Keys
// need not be unique, so the run is scanned, across block boundaries, until
// a value identical to value (see SetEqual) is found.
func (c *Collection[V]) RemoveSortFunc(probe Probe[V], value V) (V, error) {
	var zero V
	if err := c.checkWritable(); err != nil {
		return zero, err
	}
	bi := c.findFirstBlock(probe)
	if bi < 0 {
		return zero, ErrNotFound
	}
	pos := c.blocks[bi].SearchFirst(probe)
	if pos < 0 {
		return zero, ErrNotFound
	}
	for ; bi < len(c.blocks); bi, pos = bi+1, 0 {
		b := c.blocks[bi]
		for ; pos < b.count; pos++ {
			v := b.values[pos]
			if probe(v) != 0 {
				return zero, ErrNotFound
			}
			if c.equal(v, value) {
				return c.removeAt(bi, pos)
			}
		}
	}
	return zero, ErrNotFound
}

// SearchFirstFunc returns the global index of the first value matching probe,
// or -(insertion index + 1).
func (c *Collection[V]) SearchFirstFunc(probe Probe[V]) int {
	if c.count == 0 {
		return -1
	}
	bi := c.findFirstBlock(probe)
	if bi < 0 {
		bi = -(bi + 1)
		return -(c.offsetOf(bi) + c.insertionPoint(bi, probe) + 1)
	}
	pos := c.blocks[bi].SearchFirst(probe)
	if pos < 0 {
		return -(c.offsetOf(bi) + -(pos + 1) + 1)
	}
	return c.offsetOf(bi) + pos
}

// SearchLastFunc returns the global index of the last value matching probe,
// or -(insertion index + 1).
func (c *Collection[V]) SearchLastFunc(probe Probe[V]) int {
	if c.count == 0 {
		return -1
	}
	bi := c.findLastBlock(probe)
	if bi < 0 {
		bi = -(bi + 1)
		return -(c.offsetOf(bi) + c.insertionPoint(bi, probe) + 1)
	}
	pos := c.blocks[bi].SearchLast(probe)
	if pos < 0 {
		return -(c.offsetOf(bi) + -(pos + 1) + 1)
	}
	return c.offsetOf(bi) + pos
}

// insertionPoint returns where a key missing from the collection would go
// within block bi.
func (c *Collection[V]) insertionPoint(bi int, probe Probe[V]) int {
	pos := c.blocks[bi].SearchFirst(probe)
	if pos >= 0 {
		return pos
	}
	return -(pos + 1)
}

// Key based API. These are functions rather than methods because a method
// cannot introduce the key type parameter.

// ContainsKey reports whether a value matching key is stored.
func ContainsKey[V, K any](c *Collection[V], key K, cmp Comparer[V, K]) bool {
	return c.ContainsFunc(cmp.Bind(key))
}

// InsertSortKey inserts value after every stored value whose key equals key.
func InsertSortKey[V, K any](c *Collection[V], key K, value V, cmp Comparer[V, K]) error {
	return c.InsertSortFunc(cmp.Bind(key), value)
}

// RemoveSortKey removes value from the run of values whose key equals key
// and returns the removed value.
func RemoveSortKey[V, K any](c *Collection[V], key K, value V, cmp Comparer[V, K]) (V, error) {
	return c.RemoveSortFunc(cmp.Bind(key), value)
}

// SearchFirstKey returns the global index of the first value whose key
// equals key, or -(insertion index + 1).
func SearchFirstKey[V, K any](c *Collection[V], key K, cmp Comparer[V, K]) int {
	return c.SearchFirstFunc(cmp.Bind(key))
}

// SearchLastKey returns the global index of the last value whose key equals
// key, or -(insertion index + 1).
func SearchLastKey[V, K any](c *Collection[V], key K, cmp Comparer[V, K]) int {
	return c.SearchLastFunc(cmp.Bind(key))
}
