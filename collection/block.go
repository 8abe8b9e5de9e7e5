package collection

import (
	"github.com/cockroachdb/errors"
)

const (
	// DefaultCapacity is the number of slots in a block unless overridden.
	DefaultCapacity = 512
	// MinCapacity is the smallest capacity a block can be created with.
	MinCapacity = 2

	// linearWindow is the search window size below which the first/last
	// searches switch from bisection to a linear scan.
	linearWindow = 3
)

// Block is a fixed-capacity run of sorted values. It owns its backing array
// and never grows past its capacity; callers check IsFull or CanContain
// before inserting.
type Block[V any] struct {
	values  []V
	count   int
	changed bool
}

// NewBlock creates an empty block with the given capacity.
func NewBlock[V any](capacity int) *Block[V] {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &Block[V]{values: make([]V, capacity)}
}

// NewBlockOf creates a block holding a copy of values. The block capacity is
// raised to len(values)+1 when needed so one slot is always free.
func NewBlockOf[V any](capacity int, values []V) *Block[V] {
	if capacity <= len(values) {
		capacity = len(values) + 1
	}
	b := NewBlock[V](capacity)
	b.count = copy(b.values, values)
	b.changed = true
	return b
}

func (b *Block[V]) Len() int { return b.count }

func (b *Block[V]) Cap() int { return len(b.values) }

func (b *Block[V]) IsFull() bool { return b.count >= len(b.values) }

func (b *Block[V]) IsEmpty() bool { return b.count == 0 }

// CanContain reports whether n more values fit while still leaving one slot
// free.
func (b *Block[V]) CanContain(n int) bool {
	return b.count+n+1 < len(b.values)
}

// Changed reports whether the block was mutated since the flag was last
// cleared.
func (b *Block[V]) Changed() bool { return b.changed }

func (b *Block[V]) ClearChanged() { b.changed = false }

// Top returns the highest stored value.
func (b *Block[V]) Top() (V, error) {
	if b.count == 0 {
		var zero V
		return zero, ErrEmptyBlock
	}
	return b.values[b.count-1], nil
}

// Bottom returns the lowest stored value.
func (b *Block[V]) Bottom() (V, error) {
	if b.count == 0 {
		var zero V
		return zero, ErrEmptyBlock
	}
	return b.values[0], nil
}

// At returns the value at index.
func (b *Block[V]) At(index int) (V, error) {
	if index < 0 || index >= b.count {
		var zero V
		return zero, outOfRange(index, b.count)
	}
	return b.values[index], nil
}

// Values returns a copy of the live values.
func (b *Block[V]) Values() []V {
	out := make([]V, b.count)
	copy(out, b.values[:b.count])
	return out
}

// Add appends value at the logical end.
func (b *Block[V]) Add(value V) error {
	if b.IsFull() {
		return outOfRange(b.count, len(b.values))
	}
	b.values[b.count] = value
	b.count++
	b.changed = true
	return nil
}

// InsertAt shifts [index, count) right by one and writes value at index.
func (b *Block[V]) InsertAt(value V, index int) error {
	if index < 0 || index > b.count {
		return outOfRange(index, b.count)
	}
	if b.IsFull() {
		return outOfRange(b.count, len(b.values))
	}
	copy(b.values[index+1:b.count+1], b.values[index:b.count])
	b.values[index] = value
	b.count++
	b.changed = true
	return nil
}

// RemoveAt removes and returns the value at index, shifting the tail left.
func (b *Block[V]) RemoveAt(index int) (V, error) {
	var zero V
	if index < 0 || index >= b.count {
		return zero, outOfRange(index, b.count)
	}
	value := b.values[index]
	copy(b.values[index:b.count-1], b.values[index+1:b.count])
	b.count--
	// drop the reference held by the vacated slot
	b.values[b.count] = zero
	b.changed = true
	return value, nil
}

// IndexOf scans backward from the end and returns the last position holding
// a value equal to value, or -1.
func (b *Block[V]) IndexOf(value V, equal func(a, b V) bool) int {
	for i := b.count - 1; i >= 0; i-- {
		if equal(b.values[i], value) {
			return i
		}
	}
	return -1
}

// IndexOfFrom scans forward from start and returns the first position holding
// a value equal to value, or -1.
func (b *Block[V]) IndexOfFrom(value V, start int, equal func(a, b V) bool) int {
	if start < 0 {
		start = 0
	}
	for i := start; i < b.count; i++ {
		if equal(b.values[i], value) {
			return i
		}
	}
	return -1
}

// MoveTo relocates the last n values of b into dest starting at destIndex.
// dest grows by n and b shrinks by n; both are marked changed.
func (b *Block[V]) MoveTo(dest *Block[V], destIndex, n int) error {
	if n < 0 || n > b.count {
		return outOfRange(n, b.count)
	}
	if destIndex < 0 || destIndex > dest.count {
		return outOfRange(destIndex, dest.count)
	}
	if dest.count+n > len(dest.values) {
		return errors.Wrapf(ErrIndexOutOfRange, "moving %d values into block holding %d of %d", n, dest.count, len(dest.values))
	}
	if n == 0 {
		return nil
	}
	copy(dest.values[destIndex+n:dest.count+n], dest.values[destIndex:dest.count])
	copy(dest.values[destIndex:destIndex+n], b.values[b.count-n:b.count])
	dest.count += n

	var zero V
	for i := b.count - n; i < b.count; i++ {
		b.values[i] = zero
	}
	b.count -= n

	b.changed = true
	dest.changed = true
	return nil
}

// CopyTo replaces the contents of dest with a copy of b. dest keeps its own
// capacity when it is large enough, otherwise its backing array is replaced.
func (b *Block[V]) CopyTo(dest *Block[V]) {
	if len(dest.values) < b.count {
		dest.values = make([]V, len(b.values))
	}
	var zero V
	for i := b.count; i < dest.count; i++ {
		dest.values[i] = zero
	}
	dest.count = copy(dest.values, b.values[:b.count])
	dest.changed = true
}

// BinarySearch returns the position of a value matching probe, or
// -(insertion point + 1) when there is none. Among equal values any match
// may be returned.
func (b *Block[V]) BinarySearch(probe Probe[V]) int {
	lo, hi := 0, b.count-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		c := probe(b.values[mid])
		switch {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid - 1
		default:
			return mid
		}
	}
	return -(lo + 1)
}

// SearchFirst returns the position of the first value matching probe, or
// -(insertion point + 1).
func (b *Block[V]) SearchFirst(probe Probe[V]) int {
	// values before lo are known to sort below the key, values after hi are
	// known to sort at or above it.
	lo, hi := 0, b.count-1
	for hi-lo >= linearWindow {
		mid := int(uint(lo+hi) >> 1)
		if probe(b.values[mid]) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	for i := lo; i <= hi; i++ {
		c := probe(b.values[i])
		if c == 0 {
			return i
		}
		if c > 0 {
			return -(i + 1)
		}
	}
	return -(hi + 2)
}

// SearchLast returns the position of the last value matching probe, or
// -(insertion point + 1).
func (b *Block[V]) SearchLast(probe Probe[V]) int {
	// values before lo are known to sort at or below the key, values after hi
	// are known to sort above it.
	lo, hi := 0, b.count-1
	for hi-lo >= linearWindow {
		mid := int(uint(lo+hi) >> 1)
		if probe(b.values[mid]) > 0 {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	for i := hi; i >= lo; i-- {
		c := probe(b.values[i])
		if c == 0 {
			return i
		}
		if c < 0 {
			return -(i + 2)
		}
	}
	return -(lo + 1)
}

// sortedBy reports whether the live values are non-decreasing under compare.
func (b *Block[V]) sortedBy(compare func(a, b V) int) bool {
	for i := 1; i < b.count; i++ {
		if compare(b.values[i-1], b.values[i]) > 0 {
			return false
		}
	}
	return true
}
