package collection

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrIndexOutOfRange is returned for a positional index outside the valid range.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptyBlock is returned when Top or Bottom is called on an empty block.
	ErrEmptyBlock = errors.New("block is empty")
	// ErrReadOnly is returned by every mutating call on a read-only collection.
	ErrReadOnly = errors.New("collection is read-only")
	// ErrInvariantViolation signals that an internal consistency check failed.
	// It usually means the caller supplied a comparer inconsistent with the
	// collection order.
	ErrInvariantViolation = errors.New("sorted collection invariant violated")
	// ErrNotFound is returned when a key-based removal cannot find the value.
	ErrNotFound = errors.New("value not found")
	// ErrInvalidCursorState is returned on cursor misuse.
	ErrInvalidCursorState = errors.New("invalid cursor state")
)

func outOfRange(index, limit int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index %d, limit %d", index, limit)
}

func invariantf(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrInvariantViolation)
}
