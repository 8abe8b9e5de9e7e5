package collection

import (
	"github.com/cockroachdb/errors"
)

type cursorState int

const (
	cursorCreated cursorState = iota
	cursorPositioned
	cursorExhausted
)

// Cursor walks the values whose global index lies in [start, end] and can
// remove the value it is visiting. It holds the collection exclusively for
// its lifetime: any mutation not made through the cursor invalidates it.
type Cursor[V any] struct {
	c *Collection[V]

	start, end int

	// pos is the global index of the current value; block and offset locate it
	// and blockSize caches the size of that block.
	pos       int
	block     int
	offset    int
	blockSize int

	state   cursorState
	current bool
	removed bool
	mods    uint64
	err     error
}

// Cursor returns a cursor over the values with global index in [start, end].
// A range with end < start yields nothing.
func (c *Collection[V]) Cursor(start, end int) (*Cursor[V], error) {
	if end < start {
		end = start - 1
	} else {
		if start < 0 {
			return nil, outOfRange(start, c.count)
		}
		if end >= c.count {
			return nil, outOfRange(end, c.count)
		}
	}
	cur := &Cursor[V]{c: c, start: start, end: end}
	cur.Reset()
	return cur, nil
}

// Reset rewinds the cursor to just before start.
func (cur *Cursor[V]) Reset() {
	cur.state = cursorCreated
	cur.current = false
	cur.removed = false
	cur.err = nil
	cur.mods = cur.c.mods
	cur.pos = cur.start - 1
	cur.seek(cur.pos)
}

// seek points block and offset at global index p; p may be -1.
func (cur *Cursor[V]) seek(p int) {
	blocks := cur.c.blocks
	cur.block, cur.offset, cur.blockSize = 0, -1, 0
	if len(blocks) == 0 {
		return
	}
	if p < 0 {
		cur.blockSize = blocks[0].count
		return
	}
	for i, b := range blocks {
		if p < b.count {
			cur.block, cur.offset, cur.blockSize = i, p, b.count
			return
		}
		p -= b.count
	}
	last := len(blocks) - 1
	cur.block, cur.offset, cur.blockSize = last, blocks[last].count-1, blocks[last].count
}

func (cur *Cursor[V]) checkMods() error {
	if cur.mods != cur.c.mods {
		cur.err = errors.Wrap(ErrInvalidCursorState, "collection modified outside the cursor")
		cur.current = false
		return cur.err
	}
	return nil
}

// MoveNext advances to the next value and reports whether there is one.
func (cur *Cursor[V]) MoveNext() bool {
	if cur.err != nil || cur.state == cursorExhausted {
		return false
	}
	if cur.checkMods() != nil {
		return false
	}
	if cur.pos+1 > cur.end {
		cur.state = cursorExhausted
		cur.current = false
		return false
	}
	cur.pos++
	cur.offset++
	for cur.offset >= cur.blockSize {
		cur.block++
		if cur.block >= len(cur.c.blocks) {
			cur.err = invariantf("cursor ran past the last block at index %d", cur.pos)
			cur.current = false
			return false
		}
		cur.offset = 0
		cur.blockSize = cur.c.blocks[cur.block].count
	}
	cur.state = cursorPositioned
	cur.current = true
	cur.removed = false
	return true
}

// Current returns the value the cursor is visiting.
func (cur *Cursor[V]) Current() (V, error) {
	var zero V
	if cur.err != nil {
		return zero, cur.err
	}
	if err := cur.checkMods(); err != nil {
		return zero, err
	}
	if !cur.current {
		return zero, cur.stateError()
	}
	return cur.c.blocks[cur.block].values[cur.offset], nil
}

// Index returns the global index of the current value.
func (cur *Cursor[V]) Index() int { return cur.pos }

// Err returns the error that stopped the cursor, if any.
func (cur *Cursor[V]) Err() error { return cur.err }

// Remove deletes the current value from the collection. The next MoveNext
// visits the value that followed it. Only one Remove is allowed per MoveNext.
func (cur *Cursor[V]) Remove() (V, error) {
	var zero V
	if cur.err != nil {
		return zero, cur.err
	}
	if err := cur.checkMods(); err != nil {
		return zero, err
	}
	if !cur.current {
		return zero, cur.stateError()
	}
	if err := cur.c.checkWritable(); err != nil {
		return zero, err
	}

	blocks := len(cur.c.blocks)
	value, err := cur.c.removeAt(cur.block, cur.offset)
	if err != nil {
		return zero, err
	}
	cur.mods = cur.c.mods
	cur.end--
	cur.pos--
	if len(cur.c.blocks) == blocks {
		// the next value slid into the vacated slot; step back onto its
		// predecessor
		cur.blockSize--
		cur.offset--
	} else {
		cur.seek(cur.pos)
	}
	cur.current = false
	cur.removed = true
	return value, nil
}

func (cur *Cursor[V]) stateError() error {
	switch {
	case cur.removed:
		return errors.Wrap(ErrInvalidCursorState, "current value already removed")
	case cur.state == cursorExhausted:
		return errors.Wrap(ErrInvalidCursorState, "cursor exhausted")
	default:
		return errors.Wrap(ErrInvalidCursorState, "MoveNext not called")
	}
}
