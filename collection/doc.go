// Package collection provides the block-chained sorted collection used by
// BlockIndex to keep table indexes ordered.
//
// A Collection stores its values in fixed-capacity blocks kept in range
// order. Lookups bisect the blocks by their bottom and top values and then
// bisect inside the owning block, so a sorted insert or delete touches a
// single block. A block that fills up spills roughly a seventh of its values
// into its successor, or into a fresh block when the successor is crowded. A
// block emptied by a removal is dropped unless it is the last one left.
//
// # Natural and key order
//
// Every collection has a natural order used by Contains, InsertSort and
// RemoveSort:
//
//	c := collection.New[int]()
//	c.InsertSort(5)
//	c.InsertSort(3)
//	c.Contains(3) // true
//
// Values can also be searched by a derived key through a Comparer. Values
// sharing a key keep their insertion order:
//
//	type row struct{ id, age int }
//	byAge := collection.Comparer[row, int](func(r row, age int) int {
//	    return cmp.Compare(r.age, age)
//	})
//	rows := collection.NewFunc(func(a, b row) int { return cmp.Compare(a.age, b.age) })
//	rows.SetEqual(func(a, b row) bool { return a.id == b.id })
//	collection.InsertSortKey(rows, 42, row{id: 7, age: 42}, byAge)
//	first := collection.SearchFirstKey(rows, 42, byAge)
//
// A collection searched by key must be ordered consistently with that key.
// When the natural order has ties, SetEqual tells RemoveSort and
// RemoveSortKey which value of a run is meant.
//
// # Cursors
//
// A Cursor walks a range of global indexes and may remove the value it is
// visiting:
//
//	cur, _ := c.Cursor(0, c.Len()-1)
//	for cur.MoveNext() {
//	    v, _ := cur.Current()
//	    if v%2 == 0 {
//	        cur.Remove()
//	    }
//	}
//
// Collections are not synchronized. The index layer holds its own lock
// around writers.
package collection
