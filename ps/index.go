package ps

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nickyhof/BlockIndex/collection"
	"github.com/nickyhof/BlockIndex/core"
)

var (
	ErrUniqueViolation = errors.New("unique constraint violated")
	ErrIndexExists     = errors.New("index already exists")
	ErrIndexNotFound   = errors.New("index not found")
)

// Entry is one indexed (column value, primary key) pair.
type Entry struct {
	Value      string `json:"v"`
	PrimaryKey string `json:"k"`
}

// Index keeps the entries of a column index ordered by value, then by
// primary key, in a block-chained sorted collection.
type Index struct {
	core.IndexDef

	// SnapshotID identifies the snapshot this index was last saved to or
	// loaded from; empty for an index that was never persisted.
	SnapshotID string

	entries *collection.Collection[Entry]
	byValue collection.Comparer[Entry, string]
	mu      sync.RWMutex
}

// NewIndex creates an empty index for def. A zero capacity uses the
// collection default.
func NewIndex(def core.IndexDef) *Index {
	if def.Capacity <= 0 {
		def.Capacity = collection.DefaultCapacity
	}
	idx := &Index{IndexDef: def}
	idx.byValue = valueComparer(def.Type)
	idx.entries = collection.NewFunc(entryOrder(def.Type), collection.WithCapacity(def.Capacity))
	return idx
}

// entryOrder is the natural order of entries: by typed value, then primary
// key.
func entryOrder(t core.ColumnType) func(a, b Entry) int {
	return func(a, b Entry) int {
		if c := core.CompareValues(t, a.Value, b.Value); c != 0 {
			return c
		}
		return strings.Compare(a.PrimaryKey, b.PrimaryKey)
	}
}

func valueComparer(t core.ColumnType) collection.Comparer[Entry, string] {
	return func(e Entry, value string) int {
		return core.CompareValues(t, e.Value, value)
	}
}

// Insert adds (value, primaryKey). Inserting a pair that is already indexed
// is a no-op; on a unique index a value held by another primary key is
// rejected with ErrUniqueViolation.
func (idx *Index) Insert(value, primaryKey string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.insert(Entry{Value: value, PrimaryKey: primaryKey})
}

func (idx *Index) insert(e Entry) error {
	if idx.Unique && collection.ContainsKey(idx.entries, e.Value, idx.byValue) && !idx.entries.Contains(e) {
		return fmt.Errorf("%w: duplicate value %s on index %s", ErrUniqueViolation, e.Value, idx.Name)
	}
	if _, err := idx.entries.InsertSort(e); err != nil {
		return fmt.Errorf("failed to insert into index %s: %w", idx.Name, err)
	}
	return nil
}

// checkInsert reports whether Insert(value, primaryKey) would be rejected.
func (idx *Index) checkInsert(value, primaryKey string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.Unique {
		return nil
	}
	e := Entry{Value: value, PrimaryKey: primaryKey}
	if collection.ContainsKey(idx.entries, value, idx.byValue) && !idx.entries.Contains(e) {
		return fmt.Errorf("%w: duplicate value %s on index %s", ErrUniqueViolation, value, idx.Name)
	}
	return nil
}

// Delete removes (value, primaryKey) and reports whether it was indexed.
func (idx *Index) Delete(value, primaryKey string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := collection.RemoveSortKey(idx.entries, value, Entry{Value: value, PrimaryKey: primaryKey}, idx.byValue)
	if errors.Is(err, collection.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete from index %s: %w", idx.Name, err)
	}
	return true, nil
}

// bounds returns the inclusive global range of entries with
// min <= value <= max; first > last when there is none.
func (idx *Index) bounds(minValue, maxValue string) (first, last int) {
	first = collection.SearchFirstKey(idx.entries, minValue, idx.byValue)
	if first < 0 {
		first = -(first + 1)
	}
	last = collection.SearchLastKey(idx.entries, maxValue, idx.byValue)
	if last < 0 {
		last = -(last + 1) - 1
	}
	return first, last
}

// Lookup returns the primary keys indexed under value, in primary key order.
func (idx *Index) Lookup(value string) []string {
	return idx.LookupRange(value, value)
}

// LookupRange returns the primary keys whose value lies in [minValue,
// maxValue], ordered by value and then primary key.
func (idx *Index) LookupRange(minValue, maxValue string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	first, last := idx.bounds(minValue, maxValue)
	if first > last {
		return nil
	}
	keys := make([]string, 0, last-first+1)
	for _, e := range idx.entries.Range(first, last) {
		keys = append(keys, e.PrimaryKey)
	}
	return keys
}

// DeleteRange removes every entry whose value lies in [minValue, maxValue]
// and returns how many were removed.
func (idx *Index) DeleteRange(minValue, maxValue string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	first, last := idx.bounds(minValue, maxValue)
	return idx.removeWhere(first, last, func(Entry) bool { return true })
}

// DeletePrimaryKey removes every entry of primaryKey. It scans the whole
// index, so callers that know the indexed value should use Delete.
func (idx *Index) DeletePrimaryKey(primaryKey string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return idx.removeWhere(0, idx.entries.Len()-1, func(e Entry) bool {
		return e.PrimaryKey == primaryKey
	})
}

func (idx *Index) removeWhere(first, last int, match func(Entry) bool) (int, error) {
	cur, err := idx.entries.Cursor(first, last)
	if err != nil {
		return 0, err
	}
	removed := 0
	for cur.MoveNext() {
		e, err := cur.Current()
		if err != nil {
			return removed, err
		}
		if !match(e) {
			continue
		}
		if _, err := cur.Remove(); err != nil {
			return removed, fmt.Errorf("failed to delete from index %s: %w", idx.Name, err)
		}
		removed++
	}
	return removed, cur.Err()
}

// Entries returns a copy of every entry in index order.
func (idx *Index) Entries() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entries.Values()
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entries.Len()
}

// ReadOnly reports whether the index rejects writes, as historical
// snapshots do.
func (idx *Index) ReadOnly() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entries.ReadOnly()
}

// Verify checks the ordering invariants of the backing collection.
func (idx *Index) Verify() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entries.Verify()
}

// IndexStats summarizes an index.
type IndexStats struct {
	Entries  int
	Distinct int
	Blocks   int
	Capacity int
	MinValue string
	MaxValue string
	// Bytes approximates the encoded size of the entries.
	Bytes    uint64
	ReadOnly bool
}

func (idx *Index) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := IndexStats{
		Entries:  idx.entries.Len(),
		Blocks:   idx.entries.BlockCount(),
		Capacity: idx.entries.Capacity(),
		ReadOnly: idx.entries.ReadOnly(),
	}
	var prev *Entry
	for e := range idx.entries.All() {
		if prev == nil {
			stats.MinValue = e.Value
		}
		if prev == nil || core.CompareValues(idx.Type, prev.Value, e.Value) != 0 {
			stats.Distinct++
		}
		stats.MaxValue = e.Value
		stats.Bytes += uint64(len(e.Value) + len(e.PrimaryKey))
		prev = &e
	}
	return stats
}

func (idx *Index) String() string {
	return fmt.Sprintf("Index{%s on %s, unique: %t, entries: %d}", idx.Name, idx.Qualified(), idx.Unique, idx.Len())
}
