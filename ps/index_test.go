package ps

import (
	"errors"
	"slices"
	"strconv"
	"testing"

	"github.com/nickyhof/BlockIndex/core"
)

func newTestIndex(t core.ColumnType, unique bool, capacity int) *Index {
	return NewIndex(core.IndexDef{
		Name:     "idx_test",
		Database: "testdb",
		Table:    "users",
		Column:   "col",
		Type:     t,
		Unique:   unique,
		Capacity: capacity,
	})
}

func TestIndexInsertAndLookup(t *testing.T) {
	idx := newTestIndex(core.StringType, false, 4)

	for _, e := range []Entry{{"Alice", "1"}, {"Bob", "2"}, {"Alice", "3"}, {"Carol", "4"}, {"Alice", "0"}} {
		if err := idx.Insert(e.Value, e.PrimaryKey); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	keys := idx.Lookup("Alice")
	if !slices.Equal(keys, []string{"0", "1", "3"}) {
		t.Errorf("Expected [0 1 3] for Alice, got %v", keys)
	}
	if keys := idx.Lookup("Dave"); len(keys) != 0 {
		t.Errorf("Expected no keys for Dave, got %v", keys)
	}

	// the same pair twice is a no-op
	if err := idx.Insert("Alice", "1"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if idx.Len() != 5 {
		t.Errorf("Expected 5 entries, got %d", idx.Len())
	}
	if err := idx.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestIndexDelete(t *testing.T) {
	idx := newTestIndex(core.StringType, false, 2)

	idx.Insert("Alice", "1")
	idx.Insert("Alice", "2")
	idx.Insert("Alice", "3")
	idx.Insert("Bob", "4")

	removed, err := idx.Delete("Alice", "2")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Error("Expected Alice/2 to be removed")
	}
	if keys := idx.Lookup("Alice"); !slices.Equal(keys, []string{"1", "3"}) {
		t.Errorf("Expected [1 3], got %v", keys)
	}

	removed, err = idx.Delete("Alice", "2")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed {
		t.Error("Deleting a missing entry should report false")
	}

	if removed, _ := idx.Delete("Bob", "4"); !removed {
		t.Error("Expected Bob/4 to be removed")
	}
	if idx.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", idx.Len())
	}
	if err := idx.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestUniqueIndex(t *testing.T) {
	idx := newTestIndex(core.StringType, true, 4)

	if err := idx.Insert("alice@example.com", "1"); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := idx.Insert("alice@example.com", "2"); !errors.Is(err, ErrUniqueViolation) {
		t.Errorf("Expected ErrUniqueViolation, got %v", err)
	}
	// re-indexing the same row is allowed
	if err := idx.Insert("alice@example.com", "1"); err != nil {
		t.Errorf("Re-insert of the same pair failed: %v", err)
	}
	if err := idx.checkInsert("alice@example.com", "3"); !errors.Is(err, ErrUniqueViolation) {
		t.Errorf("Expected checkInsert to reject, got %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", idx.Len())
	}
}

func TestIndexLookupRangeTyped(t *testing.T) {
	idx := newTestIndex(core.IntType, false, 3)

	// as strings "9" > "10"; as ints it is the other way around
	for i := 1; i <= 20; i++ {
		if err := idx.Insert(strconv.Itoa(i), "pk"+strconv.Itoa(i)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	keys := idx.LookupRange("9", "12")
	if !slices.Equal(keys, []string{"pk9", "pk10", "pk11", "pk12"}) {
		t.Errorf("Expected pk9..pk12, got %v", keys)
	}
	if keys := idx.LookupRange("25", "30"); keys != nil {
		t.Errorf("Expected nothing above the maximum, got %v", keys)
	}
	if keys := idx.LookupRange("12", "9"); keys != nil {
		t.Errorf("Expected nothing for an inverted range, got %v", keys)
	}
	// bounds need not be present
	if keys := idx.LookupRange("0", "2"); !slices.Equal(keys, []string{"pk1", "pk2"}) {
		t.Errorf("Expected [pk1 pk2], got %v", keys)
	}
}

func TestIndexLookupLargeInts(t *testing.T) {
	idx := newTestIndex(core.IntType, false, 2)

	for _, e := range []Entry{{"9007199254740993", "a"}, {"9007199254740992", "b"}, {"9007199254740992.0", "c"}} {
		if err := idx.Insert(e.Value, e.PrimaryKey); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	want := []Entry{{"9007199254740992", "b"}, {"9007199254740992.0", "c"}, {"9007199254740993", "a"}}
	if got := idx.Entries(); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if keys := idx.Lookup("9007199254740993"); !slices.Equal(keys, []string{"a"}) {
		t.Errorf("Expected [a], got %v", keys)
	}
	if keys := idx.Lookup("9007199254740992"); !slices.Equal(keys, []string{"b", "c"}) {
		t.Errorf("Expected [b c], got %v", keys)
	}
	if err := idx.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestIndexDeleteRange(t *testing.T) {
	idx := newTestIndex(core.IntType, false, 4)
	for i := 0; i < 50; i++ {
		idx.Insert(strconv.Itoa(i%10), strconv.Itoa(i))
	}

	removed, err := idx.DeleteRange("3", "5")
	if err != nil {
		t.Fatalf("DeleteRange failed: %v", err)
	}
	if removed != 15 {
		t.Errorf("Expected 15 removed, got %d", removed)
	}
	if idx.Len() != 35 {
		t.Errorf("Expected 35 left, got %d", idx.Len())
	}
	if keys := idx.LookupRange("3", "5"); len(keys) != 0 {
		t.Errorf("Expected empty range after delete, got %v", keys)
	}
	if err := idx.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}

	removed, err = idx.DeleteRange("100", "200")
	if err != nil || removed != 0 {
		t.Errorf("Expected nothing removed, got %d (%v)", removed, err)
	}
}

func TestIndexDeletePrimaryKey(t *testing.T) {
	idx := newTestIndex(core.StringType, false, 2)
	idx.Insert("a", "1")
	idx.Insert("b", "1")
	idx.Insert("b", "2")

	removed, err := idx.DeletePrimaryKey("1")
	if err != nil {
		t.Fatalf("DeletePrimaryKey failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if entries := idx.Entries(); !slices.Equal(entries, []Entry{{"b", "2"}}) {
		t.Errorf("Unexpected entries %v", entries)
	}

	empty := newTestIndex(core.StringType, false, 2)
	if removed, err := empty.DeletePrimaryKey("1"); err != nil || removed != 0 {
		t.Errorf("Expected no-op on empty index, got %d (%v)", removed, err)
	}
}

func TestIndexStats(t *testing.T) {
	idx := newTestIndex(core.IntType, false, 4)
	for i := 0; i < 10; i++ {
		idx.Insert(strconv.Itoa(i/2), strconv.Itoa(i))
	}

	stats := idx.Stats()
	if stats.Entries != 10 {
		t.Errorf("Expected 10 entries, got %d", stats.Entries)
	}
	if stats.Distinct != 5 {
		t.Errorf("Expected 5 distinct values, got %d", stats.Distinct)
	}
	if stats.MinValue != "0" || stats.MaxValue != "4" {
		t.Errorf("Expected min 0 and max 4, got %s and %s", stats.MinValue, stats.MaxValue)
	}
	if stats.Capacity != 4 {
		t.Errorf("Expected capacity 4, got %d", stats.Capacity)
	}
	if stats.Blocks < 3 {
		t.Errorf("Expected at least 3 blocks for 10 entries of capacity 4, got %d", stats.Blocks)
	}
	if stats.Bytes != 20 {
		t.Errorf("Expected 20 bytes, got %d", stats.Bytes)
	}
}

func TestIndexDefaultCapacity(t *testing.T) {
	idx := newTestIndex(core.StringType, false, 0)
	if idx.Capacity <= 0 {
		t.Errorf("Expected a default capacity, got %d", idx.Capacity)
	}
}
