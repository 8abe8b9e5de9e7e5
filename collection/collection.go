package collection

import (
	"cmp"
	"iter"
	"slices"

	"github.com/cockroachdb/errors"
)

// SortedCollection is the contract the index layer programs against.
type SortedCollection[V any] interface {
	Len() int
	Get(index int) (V, error)
	Add(value V) error
	Insert(index int, value V) error
	RemoveAt(index int) (V, error)

	Contains(value V) bool
	InsertSort(value V) (bool, error)
	RemoveSort(value V) (bool, error)

	ContainsFunc(probe Probe[V]) bool
	InsertSortFunc(probe Probe[V], value V) error
	RemoveSortFunc(probe Probe[V], value V) (V, error)
	SearchFirstFunc(probe Probe[V]) int
	SearchLastFunc(probe Probe[V]) int

	Cursor(start, end int) (*Cursor[V], error)
	All() iter.Seq[V]
	ReadOnly() bool
}

// Collection is an ordered sequence of fixed-capacity blocks. For blocks i < j
// every value of i sorts at or below every value of j.
//
// A Collection is not safe for concurrent use; callers serialize writers and
// keep readers out while a write is in progress.
type Collection[V any] struct {
	blocks   []*Block[V]
	count    int
	capacity int
	compare  func(a, b V) int
	equal    func(a, b V) bool
	readOnly bool

	// mods counts structural mutations so cursors can detect foreign writes.
	mods uint64
}

var _ SortedCollection[int] = (*Collection[int])(nil)

// Option configures a Collection.
type Option func(*options)

type options struct {
	capacity int
}

// WithCapacity sets the block capacity. Values below MinCapacity are raised.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		o.capacity = max(capacity, MinCapacity)
	}
}

func buildOptions(opts []Option) options {
	o := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates an empty collection ordered by the natural order of V.
func New[V cmp.Ordered](opts ...Option) *Collection[V] {
	return NewFunc(cmp.Compare[V], opts...)
}

// NewFunc creates an empty collection ordered by compare. No block is
// allocated until the first mutation.
func NewFunc[V any](compare func(a, b V) int, opts ...Option) *Collection[V] {
	o := buildOptions(opts)
	return &Collection[V]{
		capacity: o.capacity,
		compare:  compare,
		equal: func(a, b V) bool {
			return compare(a, b) == 0
		},
	}
}

// SetEqual sets the identity check used to pick one value out of a run of
// values that sort equal. By default values are identical when the natural
// order says they are equal; a multi-map ordered by key only needs a finer
// check.
func (c *Collection[V]) SetEqual(equal func(a, b V) bool) {
	c.equal = equal
}

// NewFromValues creates a collection holding a sorted copy of values. Equal
// values keep their relative order. Blocks are filled to the same ratio an
// overflow split leaves behind.
func NewFromValues[V any](values []V, compare func(a, b V) int, opts ...Option) *Collection[V] {
	c := NewFunc(compare, opts...)
	if len(values) == 0 {
		return c
	}
	sorted := slices.Clone(values)
	slices.SortStableFunc(sorted, compare)

	fill := c.capacity - splitSize(c.capacity)
	for start := 0; start < len(sorted); start += fill {
		end := min(start+fill, len(sorted))
		c.blocks = append(c.blocks, NewBlockOf(c.capacity, sorted[start:end]))
	}
	c.count = len(sorted)
	return c
}

// NewFromBlocks creates a collection from pre-built blocks, typically ones
// decoded from an index snapshot. Empty blocks are dropped. The blocks must be
// sorted internally and must not overlap.
func NewFromBlocks[V any](blocks []*Block[V], compare func(a, b V) int, opts ...Option) (*Collection[V], error) {
	c := NewFunc(compare, opts...)
	for i, b := range blocks {
		if b == nil || b.IsEmpty() {
			continue
		}
		if !b.sortedBy(compare) {
			return nil, invariantf("block %d is not sorted", i)
		}
		if b.IsFull() {
			return nil, invariantf("block %d has no free slot", i)
		}
		if n := len(c.blocks); n > 0 {
			prev := c.blocks[n-1]
			if compare(prev.values[prev.count-1], b.values[0]) > 0 {
				return nil, invariantf("block %d overlaps its predecessor", i)
			}
		}
		c.blocks = append(c.blocks, b)
		c.count += b.count
	}
	return c, nil
}

// Clone creates a collection with the contents of src ordered by compare.
// When src is a *Collection[V] its blocks are copied one for one, keeping the
// block boundaries, the read-only flag and the source's own comparer and
// identity check; compare is ignored since the copied blocks are already
// ordered by the source. Any other source is re-inserted value by value.
func Clone[V any](src SortedCollection[V], compare func(a, b V) int, opts ...Option) (*Collection[V], error) {
	if other, ok := src.(*Collection[V]); ok {
		c := NewFunc(other.compare, opts...)
		if len(opts) == 0 {
			c.capacity = other.capacity
		}
		c.blocks = make([]*Block[V], len(other.blocks))
		for i, b := range other.blocks {
			nb := NewBlock[V](max(b.Cap(), c.capacity))
			b.CopyTo(nb)
			c.blocks[i] = nb
		}
		c.count = other.count
		c.readOnly = other.readOnly
		c.equal = other.equal
		return c, nil
	}

	c := NewFunc(compare, opts...)
	i := 0
	for v := range src.All() {
		if err := c.InsertSortFunc(probeOf(compare, v), v); err != nil {
			return nil, errors.Wrapf(err, "clone value %d", i)
		}
		i++
	}
	if n := src.Len(); c.count != n {
		return nil, invariantf("cloned %d values from a source of length %d", c.count, n)
	}
	if src.ReadOnly() {
		c.readOnly = true
	}
	return c, nil
}

// Len returns the number of live values.
func (c *Collection[V]) Len() int { return c.count }

// BlockCount returns the number of blocks currently allocated.
func (c *Collection[V]) BlockCount() int { return len(c.blocks) }

// Capacity returns the capacity used for newly created blocks.
func (c *Collection[V]) Capacity() int { return c.capacity }

// Blocks returns the blocks in order. The blocks are shared with the
// collection and must not be modified.
func (c *Collection[V]) Blocks() []*Block[V] {
	return slices.Clone(c.blocks)
}

// SetReadOnly makes every later mutation fail with ErrReadOnly.
func (c *Collection[V]) SetReadOnly() { c.readOnly = true }

func (c *Collection[V]) ReadOnly() bool { return c.readOnly }

func (c *Collection[V]) checkWritable() error {
	if c.readOnly {
		return ErrReadOnly
	}
	return nil
}

// ensureBlock lazily creates the first block.
func (c *Collection[V]) ensureBlock() {
	if len(c.blocks) == 0 {
		c.blocks = append(c.blocks, NewBlock[V](c.capacity))
	}
}

// locate maps a global index to a block and an offset within it. Not optimal:
// it walks the blocks, but blocks are few relative to the values they hold.
func (c *Collection[V]) locate(index int) (int, int, error) {
	if index < 0 || index >= c.count {
		return 0, 0, outOfRange(index, c.count)
	}
	for i, b := range c.blocks {
		if index < b.count {
			return i, index, nil
		}
		index -= b.count
	}
	return 0, 0, invariantf("count %d exceeds the sum of block sizes", c.count)
}

// locateInsert is locate for insert positions, where index == Len() is valid
// and lands at the end of the last block.
func (c *Collection[V]) locateInsert(index int) (int, int, error) {
	if index < 0 || index > c.count {
		return 0, 0, outOfRange(index, c.count)
	}
	if len(c.blocks) == 0 {
		return 0, 0, nil
	}
	for i, b := range c.blocks {
		if index <= b.count {
			return i, index, nil
		}
		index -= b.count
	}
	return 0, 0, invariantf("count %d exceeds the sum of block sizes", c.count)
}

// offsetOf returns the global index of the first value of block bi.
func (c *Collection[V]) offsetOf(bi int) int {
	offset := 0
	for _, b := range c.blocks[:bi] {
		offset += b.count
	}
	return offset
}

// Get returns the value at index.
func (c *Collection[V]) Get(index int) (V, error) {
	bi, off, err := c.locate(index)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.blocks[bi].values[off], nil
}

// Insert places value at index regardless of ordering. Keeping the
// collection sorted is then up to the caller.
func (c *Collection[V]) Insert(index int, value V) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	bi, off, err := c.locateInsert(index)
	if err != nil {
		return err
	}
	return c.insertAt(bi, off, value)
}

// Add appends value to the last block.
func (c *Collection[V]) Add(value V) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	c.ensureBlock()
	last := len(c.blocks) - 1
	return c.insertAt(last, c.blocks[last].count, value)
}

// RemoveAt removes and returns the value at index.
func (c *Collection[V]) RemoveAt(index int) (V, error) {
	if err := c.checkWritable(); err != nil {
		var zero V
		return zero, err
	}
	bi, off, err := c.locate(index)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.removeAt(bi, off)
}

// insertAt inserts into block bi at off and handles overflow.
func (c *Collection[V]) insertAt(bi, off int, value V) error {
	c.ensureBlock()
	b := c.blocks[bi]
	if err := b.InsertAt(value, off); err != nil {
		return err
	}
	c.count++
	c.mods++
	return c.split(bi)
}

// removeAt removes from block bi at off and handles underflow.
func (c *Collection[V]) removeAt(bi, off int) (V, error) {
	b := c.blocks[bi]
	value, err := b.RemoveAt(off)
	if err != nil {
		return value, err
	}
	c.count--
	c.mods++
	if b.IsEmpty() && len(c.blocks) > 1 {
		c.blocks = slices.Delete(c.blocks, bi, bi+1)
	}
	return value, nil
}

// splitSize is the number of values moved out of a full block.
func splitSize(count int) int {
	return max(count/7-1, 1)
}

// split moves the tail of block bi out once it is full: into the next block
// when that one has room, otherwise into a new block placed right after.
func (c *Collection[V]) split(bi int) error {
	b := c.blocks[bi]
	if !b.IsFull() {
		return nil
	}
	moveSize := splitSize(b.count)
	if bi+1 < len(c.blocks) {
		if next := c.blocks[bi+1]; next.CanContain(moveSize) {
			return b.MoveTo(next, 0, moveSize)
		}
	}
	nb := NewBlock[V](c.capacity)
	if err := b.MoveTo(nb, 0, moveSize); err != nil {
		return err
	}
	c.blocks = slices.Insert(c.blocks, bi+1, nb)
	return nil
}

// Values returns every value in order.
func (c *Collection[V]) Values() []V {
	out := make([]V, 0, c.count)
	for _, b := range c.blocks {
		out = append(out, b.values[:b.count]...)
	}
	return out
}

// All iterates over every value in order. The collection must not be
// modified during iteration; use a Cursor to remove while scanning.
func (c *Collection[V]) All() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, b := range c.blocks {
			for _, v := range b.values[:b.count] {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Range iterates over the values with global index in [start, end], paired
// with that index.
func (c *Collection[V]) Range(start, end int) iter.Seq2[int, V] {
	return func(yield func(int, V) bool) {
		lo, hi := max(start, 0), min(end, c.count-1)
		if lo > hi {
			return
		}
		bi, off, err := c.locate(lo)
		if err != nil {
			return
		}
		for i := lo; i <= hi; i++ {
			for off >= c.blocks[bi].count {
				bi++
				off = 0
			}
			if !yield(i, c.blocks[bi].values[off]) {
				return
			}
			off++
		}
	}
}

// Verify checks the block invariants and the cached count.
func (c *Collection[V]) Verify() error {
	total := 0
	for i, b := range c.blocks {
		if b.IsEmpty() && len(c.blocks) > 1 {
			return invariantf("block %d of %d is empty", i, len(c.blocks))
		}
		if b.IsFull() {
			return invariantf("block %d is full", i)
		}
		if !b.sortedBy(c.compare) {
			return invariantf("block %d is not sorted", i)
		}
		if i > 0 && !b.IsEmpty() {
			prev := c.blocks[i-1]
			if c.compare(prev.values[prev.count-1], b.values[0]) > 0 {
				return invariantf("block %d overlaps block %d", i, i-1)
			}
		}
		total += b.count
	}
	if total != c.count {
		return invariantf("cached count %d, blocks hold %d", c.count, total)
	}
	return nil
}
