package collection

import "cmp"

// Comparer orders a stored value against an external lookup key. It returns a
// negative number when value sorts before key, zero when they are equal and a
// positive number otherwise.
//
// A comparer lets a collection of row ids be searched by column value: the
// stored value is the id, the key is the column value looked up separately.
type Comparer[V, K any] func(value V, key K) int

// Probe is a comparer with its key already bound.
type Probe[V any] func(value V) int

// Bind fixes the lookup key of c.
func (c Comparer[V, K]) Bind(key K) Probe[V] {
	return func(value V) int {
		return c(value, key)
	}
}

// Natural returns the comparer that orders values of an ordered type by
// their own ordering.
func Natural[V cmp.Ordered]() Comparer[V, V] {
	return cmp.Compare[V]
}

// probeOf binds a natural compare function to a value.
func probeOf[V any](compare func(a, b V) int, value V) Probe[V] {
	return func(v V) int {
		return compare(v, value)
	}
}
